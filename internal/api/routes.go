package api

import (
	"io/fs"
	"net/http"

	"watchfile/internal/logging"
	"watchfile/internal/metrics"
	"watchfile/internal/render"
	"watchfile/internal/session"
	"watchfile/internal/watcher"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterOptions struct {
	// WatchPath is the file every /watch connection follows.
	WatchPath      string
	Renderer       *render.Renderer
	StaticFS       fs.FS
	AllowedOrigins []string
	WatchOptions   watcher.Options
	SessionOptions session.Options
	Logger         *logging.Logger
	Metrics        *metrics.Registry
}

func NewRouter(options RouterOptions) http.Handler {
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	registry := options.Metrics
	if registry == nil {
		registry = metrics.Default
	}
	renderer := options.Renderer
	if renderer == nil {
		renderer = render.New(render.Options{})
	}

	watch := &watchHandler{
		watchPath:      options.WatchPath,
		renderer:       renderer,
		allowedOrigins: options.AllowedOrigins,
		watchOptions:   options.WatchOptions,
		sessionOptions: options.SessionOptions,
		logger:         logger,
		metrics:        registry,
	}
	static := newStaticHandler(options.StaticFS)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	r.Get("/watch", watch.ServeHTTP)
	r.Get("/version", handleVersion)
	r.Get("/healthz", handleHealth)
	r.Get("/metrics", metricsHandler(registry))
	r.Get("/api/logs", logsHandler(logger))

	r.Get("/", static.serveNamed("index.html"))
	r.Get("/test", static.serveNamed("test.html"))
	r.Get("/*", static.ServeHTTP)
	return r
}
