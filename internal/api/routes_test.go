package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"watchfile/internal/logging"
	"watchfile/internal/metrics"
	"watchfile/internal/version"
)

func newTestRouter(logger *logging.Logger, registry *metrics.Registry) http.Handler {
	return NewRouter(RouterOptions{
		WatchPath: "doc.md",
		StaticFS: fstest.MapFS{
			"index.html": {Data: []byte("<html>index</html>")},
			"test.html":  {Data: []byte("<html>test</html>")},
			"preview.js": {Data: []byte("console.log(1)")},
			"sub/a.css":  {Data: []byte("body{}")},
		},
		Logger:  logger,
		Metrics: registry,
	})
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestStaticRoutes(t *testing.T) {
	router := newTestRouter(nil, &metrics.Registry{})

	cases := map[string]string{
		"/":           "<html>index</html>",
		"/test":       "<html>test</html>",
		"/preview.js": "console.log(1)",
		"/sub/a.css":  "body{}",
		"/test.html":  "<html>test</html>",
	}
	for path, want := range cases {
		resp := get(t, router, path)
		if resp.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, resp.Code)
		}
		if body := resp.Body.String(); body != want {
			t.Fatalf("GET %s: expected %q, got %q", path, want, body)
		}
		if resp.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("GET %s: expected nosniff header", path)
		}
	}

	for _, path := range []string{"/missing.js", "/sub", "/sub/"} {
		if resp := get(t, router, path); resp.Code != http.StatusNotFound {
			t.Fatalf("GET %s: expected 404, got %d", path, resp.Code)
		}
	}
}

func TestVersionEndpoint(t *testing.T) {
	resp := get(t, newTestRouter(nil, &metrics.Registry{}), "/version")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var info version.AppInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.AppName != "watchfile" || info.Repository != version.Repository {
		t.Fatalf("unexpected app info %+v", info)
	}
	if info.Version != version.Version {
		t.Fatalf("expected version %q, got %q", version.Version, info.Version)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	registry := &metrics.Registry{}
	registry.IncPayloadsSent()
	resp := get(t, newTestRouter(nil, registry), "/metrics")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "watchfile_payloads_sent_total 1") {
		t.Fatalf("unexpected metrics body:\n%s", body)
	}
}

func TestLogsEndpoint(t *testing.T) {
	buffer := logging.NewLogBuffer(10)
	logger := logging.NewLoggerWithOutput(buffer, logging.LevelInfo, io.Discard)
	logger.Info("preview connected", map[string]string{"conn_id": "1"})

	resp := get(t, newTestRouter(logger, &metrics.Registry{}), "/api/logs")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var entries []logging.LogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) == 0 || entries[0].Message != "preview connected" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestHealthEndpoint(t *testing.T) {
	resp := get(t, newTestRouter(nil, &metrics.Registry{}), "/healthz")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %q", resp.Code, resp.Body.String())
	}
}

func TestLoggingMiddlewareRecordsRequest(t *testing.T) {
	buffer := logging.NewLogBuffer(10)
	logger := logging.NewLoggerWithOutput(buffer, logging.LevelDebug, io.Discard)

	get(t, newTestRouter(logger, &metrics.Registry{}), "/version")

	var found *logging.LogEntry
	for _, entry := range buffer.List() {
		if entry.Message == "http request" {
			entry := entry
			found = &entry
		}
	}
	if found == nil {
		t.Fatalf("expected request log entry, got %+v", buffer.List())
	}
	if found.Context["path"] != "/version" || found.Context["status"] != "200" {
		t.Fatalf("unexpected context %v", found.Context)
	}
	if found.Context["request_id"] == "" {
		t.Fatalf("expected request id in context %v", found.Context)
	}
}

func TestLoggingMiddlewarePassesStatus(t *testing.T) {
	handler := loggingMiddleware(logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	resp := get(t, handler, "/anything")
	if resp.Code != http.StatusTeapot {
		t.Fatalf("expected status to pass through, got %d", resp.Code)
	}
}
