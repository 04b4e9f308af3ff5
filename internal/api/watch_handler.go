package api

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"watchfile/internal/logging"
	"watchfile/internal/metrics"
	"watchfile/internal/preview"
	"watchfile/internal/render"
	"watchfile/internal/session"
	"watchfile/internal/watcher"
)

// watchHandler upgrades /watch and runs one preview supervisor per
// connection on the request goroutine.
type watchHandler struct {
	watchPath      string
	renderer       *render.Renderer
	allowedOrigins []string
	watchOptions   watcher.Options
	sessionOptions session.Options
	logger         *logging.Logger
	metrics        *metrics.Registry
	nextID         atomic.Uint64
}

func (h *watchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgradeWebSocket(w, r, h.allowedOrigins)
	if err != nil {
		// The upgrader has already written the HTTP error response.
		logWSError(h.logger, r, "websocket upgrade failed", err)
		return
	}

	logger := h.logger.With(map[string]string{
		"conn_id": strconv.FormatUint(h.nextID.Add(1), 10),
		"path":    h.watchPath,
	})
	sessionOptions := h.sessionOptions
	sessionOptions.Logger = logger
	sess := session.New(conn, sessionOptions)
	defer sess.Close()

	watchOptions := h.watchOptions
	watchOptions.Logger = logger

	h.metrics.ConnectionOpened()
	defer h.metrics.ConnectionClosed()

	started := time.Now()
	logger.Info("preview connected", map[string]string{
		"remote_addr": r.RemoteAddr,
	})

	supervisor := preview.NewSupervisor(preview.Options{
		Path:         h.watchPath,
		Session:      sess,
		Renderer:     h.renderer,
		WatchOptions: watchOptions,
		Logger:       logger,
		Metrics:      h.metrics,
	})
	if err := supervisor.Run(r.Context()); err != nil {
		logger.Error("watch loop failed", map[string]string{
			"error": err.Error(),
		})
	}
	logger.Info("preview disconnected", map[string]string{
		"duration": time.Since(started).Round(time.Millisecond).String(),
	})
}
