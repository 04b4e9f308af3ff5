package render

import (
	"strings"
	"testing"
)

func TestRenderHeading(t *testing.T) {
	markup, err := Render("# Hi")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.TrimSpace(markup) != "<h1>Hi</h1>" {
		t.Fatalf("unexpected markup: %q", markup)
	}
}

func TestRenderEmpty(t *testing.T) {
	markup, err := Render("")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if markup != "" {
		t.Fatalf("expected empty markup, got %q", markup)
	}
}

func TestRenderIsPure(t *testing.T) {
	inputs := []string{
		"plain",
		"# Title\n\nbody with *emphasis*",
		"| a | b |\n|---|---|\n| 1 | 2 |",
		"```go\nfunc main() {}\n```",
		"unterminated `code and [link(",
	}
	for _, input := range inputs {
		first, err := Render(input)
		if err != nil {
			t.Fatalf("render %q: %v", input, err)
		}
		second, err := Render(string([]byte(input)))
		if err != nil {
			t.Fatalf("re-render %q: %v", input, err)
		}
		if first != second {
			t.Fatalf("render not stable for %q: %q vs %q", input, first, second)
		}
	}
}

func TestRenderGFMExtensions(t *testing.T) {
	source := strings.Join([]string{
		"| name | value |",
		"|------|-------|",
		"| a    | 1     |",
		"",
		"~~gone~~",
		"",
		"- [x] done",
		"- [ ] todo",
		"",
		"see https://example.com",
	}, "\n")

	markup, err := Render(source)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"<table>",
		"<td>a</td>",
		"<del>gone</del>",
		`<input checked="" disabled="" type="checkbox"`,
		`<input disabled="" type="checkbox"`,
		`<a href="https://example.com">`,
	} {
		if !strings.Contains(markup, want) {
			t.Fatalf("expected %q in markup:\n%s", want, markup)
		}
	}
}

func TestRenderFootnote(t *testing.T) {
	markup, err := Render("text[^1]\n\n[^1]: note")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(markup, "footnote") {
		t.Fatalf("expected footnote markup, got %q", markup)
	}
}

func TestRenderMalformedInputDegrades(t *testing.T) {
	markup, err := Render("**unclosed\n\n| broken | table\n|--")
	if err != nil {
		t.Fatalf("expected best-effort output, got %v", err)
	}
	if !strings.Contains(markup, "unclosed") {
		t.Fatalf("expected source text to survive, got %q", markup)
	}
}

func TestRenderPassesRawHTMLWithoutSanitize(t *testing.T) {
	markup, err := New(Options{}).Render("<script>alert(1)</script>")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(markup, "<script>") {
		t.Fatalf("expected raw html to pass through, got %q", markup)
	}
}

func TestRenderSanitize(t *testing.T) {
	renderer := New(Options{Sanitize: true})
	markup, err := renderer.Render("# Safe\n\n<script>alert(1)</script>\n\n- [x] kept")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(markup, "<script>") {
		t.Fatalf("expected script to be stripped, got %q", markup)
	}
	if !strings.Contains(markup, "<h1>Safe</h1>") {
		t.Fatalf("expected heading to survive, got %q", markup)
	}
	if !strings.Contains(markup, `type="checkbox"`) {
		t.Fatalf("expected task list checkbox to survive, got %q", markup)
	}
}
