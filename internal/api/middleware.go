package api

import (
	"net/http"
	"strconv"
	"time"

	"watchfile/internal/logging"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

const (
	cacheControlNoStore = "no-store, must-revalidate"
	cacheControlNoCache = "no-cache"
)

func setSecurityHeaders(w http.ResponseWriter, cacheControl string) {
	headers := w.Header()
	headers.Set("X-Content-Type-Options", "nosniff")
	if cacheControl != "" {
		headers.Set("Cache-Control", cacheControl)
	}
}

// loggingMiddleware logs each request once it completes. For /watch that is
// when the preview connection ends.
func loggingMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)

			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
				if websocket.IsWebSocketUpgrade(r) {
					status = http.StatusSwitchingProtocols
				}
			}
			fields := map[string]string{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      strconv.Itoa(status),
				"duration_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10),
			}
			if requestID := middleware.GetReqID(r.Context()); requestID != "" {
				fields["request_id"] = requestID
			}
			if r.RemoteAddr != "" {
				fields["remote_addr"] = r.RemoteAddr
			}
			if status >= http.StatusInternalServerError {
				logger.Warn("http request", fields)
				return
			}
			logger.Debug("http request", fields)
		})
	}
}
