package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"watchfile/internal/logging"
)

const httpServerShutdownTimeout = 5 * time.Second

type ManagedServer struct {
	Name     string
	Serve    func() error
	Shutdown func(context.Context) error
}

// ServerRunner serves until stop is cancelled or a server exits, then shuts
// every server down within ShutdownTimeout.
type ServerRunner struct {
	Logger          *logging.Logger
	ShutdownTimeout time.Duration
}

type serverError struct {
	name string
	err  error
}

func (e *serverError) Error() string {
	if e == nil || e.err == nil {
		return ""
	}
	return e.name + ": " + e.err.Error()
}

func (runner *ServerRunner) Run(stop context.Context, servers ...ManagedServer) *serverError {
	results := make(chan serverError, len(servers))
	running := 0
	for _, server := range servers {
		if server.Serve == nil {
			continue
		}
		running++
		go func(server ManagedServer) {
			results <- serverError{name: server.Name, err: server.Serve()}
		}(server)
	}
	if running == 0 {
		return nil
	}

	var first *serverError
	select {
	case result := <-results:
		first = &result
		running--
	case <-stop.Done():
	}
	runner.report(first)

	timeout := runner.ShutdownTimeout
	if timeout <= 0 {
		timeout = httpServerShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, server := range servers {
		if server.Shutdown == nil {
			continue
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			runner.Logger.Warn("server shutdown failed", map[string]string{
				"server": server.Name,
				"error":  err.Error(),
			})
		}
	}

	for ; running > 0; running-- {
		select {
		case result := <-results:
			runner.report(&result)
		case <-shutdownCtx.Done():
			return first
		}
	}
	if first != nil && errors.Is(first.err, http.ErrServerClosed) {
		return nil
	}
	return first
}

func (runner *ServerRunner) report(result *serverError) {
	if runner == nil || result == nil || result.err == nil {
		return
	}
	if errors.Is(result.err, http.ErrServerClosed) {
		return
	}
	runner.Logger.Error("http server stopped", map[string]string{
		"server": result.name,
		"error":  result.err.Error(),
	})
}
