// Package render converts markdown source into HTML markup for the preview.
//
// Rendering is a pure function of its input. Malformed markdown degrades to
// best-effort output; only an internal parser fault is reported, as ErrRender.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var ErrRender = errors.New("render failed")

type Options struct {
	// Sanitize strips scripts, event handlers and other unsafe markup from
	// the rendered output. Raw HTML in the source is passed through otherwise.
	Sanitize bool
}

// Renderer is safe for concurrent use.
type Renderer struct {
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

var defaultRenderer = New(Options{})

func New(options Options) *Renderer {
	renderer := &Renderer{
		markdown: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Footnote,
				extension.Typographer,
			),
			goldmark.WithParserOptions(parser.WithAttribute()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
	if options.Sanitize {
		renderer.policy = newPolicy()
	}
	return renderer
}

// Render uses the package default renderer, which does not sanitize.
func Render(text string) (string, error) {
	return defaultRenderer.Render(text)
}

func (r *Renderer) Render(text string) (markup string, err error) {
	if text == "" {
		return "", nil
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			markup = ""
			err = fmt.Errorf("%w: %v", ErrRender, recovered)
		}
	}()

	var out bytes.Buffer
	if convertErr := r.markdown.Convert([]byte(text), &out); convertErr != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, convertErr)
	}
	if r.policy == nil {
		return out.String(), nil
	}
	return r.policy.Sanitize(out.String()), nil
}

func newPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	// GFM task list checkboxes.
	policy.AllowElements("input")
	policy.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	policy.AllowAttrs("checked", "disabled").OnElements("input")
	policy.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+-]+$`)).OnElements("code")
	return policy
}
