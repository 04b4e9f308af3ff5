package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"watchfile"
	"watchfile/internal/api"
	"watchfile/internal/logging"
	"watchfile/internal/metrics"
	"watchfile/internal/render"
	"watchfile/internal/session"
	"watchfile/internal/version"
	"watchfile/internal/watcher"
)

const readHeaderTimeout = 5 * time.Second

func runServer(args []string) int {
	cfg, err := loadConfig(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if cfg.ShowVersion {
		fmt.Fprintln(os.Stdout, version.String())
		return 0
	}

	logger := logging.NewLogger(logging.NewLogBuffer(logging.DefaultBufferSize), cfg.LogLevel)

	watchPath, err := filepath.Abs(cfg.WatchPath)
	if err != nil {
		logger.Error("resolve watch path failed", map[string]string{
			"path":  cfg.WatchPath,
			"error": err.Error(),
		})
		return 1
	}

	staticFS, staticSource, err := resolveStaticFS(cfg.StaticDir)
	if err != nil {
		logger.Error("static assets unavailable", map[string]string{
			"error": err.Error(),
		})
		return 1
	}

	router := api.NewRouter(api.RouterOptions{
		WatchPath:      watchPath,
		Renderer:       render.New(render.Options{Sanitize: cfg.Sanitize}),
		StaticFS:       staticFS,
		AllowedOrigins: cfg.AllowedOrigins,
		WatchOptions: watcher.Options{
			PollInterval: cfg.PollInterval,
			Buffer:       cfg.EventBuffer,
		},
		SessionOptions: session.Options{
			WriteTimeout: cfg.WriteTimeout,
			PingInterval: cfg.PingInterval,
		},
		Logger:  logger,
		Metrics: metrics.Default,
	})

	// Open /watch handlers follow baseCtx, so cancelling it ends every
	// supervisor before Shutdown waits on their connections.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	listenAddr := net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port))
	server := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},
	}
	server.RegisterOnShutdown(cancelBase)

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		logger.Error("listen failed", map[string]string{
			"addr":  listenAddr,
			"error": err.Error(),
		})
		return 1
	}

	logger.Info("watchfile listening", map[string]string{
		"addr":    listener.Addr().String(),
		"path":    watchPath,
		"static":  staticSource,
		"version": version.Version,
	})

	stopCtx, stop := context.WithCancel(context.Background())
	defer stop()
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	stopWatching := watchShutdownSignals(logger, stop, signals)
	defer stopWatching()

	runner := &ServerRunner{Logger: logger, ShutdownTimeout: httpServerShutdownTimeout}
	serveErr := runner.Run(stopCtx, ManagedServer{
		Name: "http",
		Serve: func() error {
			return server.Serve(listener)
		},
		Shutdown: server.Shutdown,
	})
	if serveErr != nil && !errors.Is(serveErr.err, http.ErrServerClosed) {
		return 1
	}
	logger.Info("watchfile stopped", nil)
	return 0
}

// resolveStaticFS prefers an explicit directory, then ./static, then the
// copy embedded in the binary.
func resolveStaticFS(dir string) (fs.FS, string, error) {
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, "", fmt.Errorf("static dir %s: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, "", fmt.Errorf("static dir %s is not a directory", dir)
		}
		return os.DirFS(dir), dir, nil
	}
	if info, err := os.Stat("static"); err == nil && info.IsDir() {
		return os.DirFS("static"), "static", nil
	}
	sub, err := fs.Sub(watchfile.EmbeddedStaticFS, "static")
	if err != nil {
		return nil, "", err
	}
	return sub, "embedded", nil
}
