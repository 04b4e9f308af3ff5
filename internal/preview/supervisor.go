// Package preview runs the per-connection watch loop: wait for a significant
// change, read the file, render it and push the markup to the client.
package preview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"watchfile/internal/logging"
	"watchfile/internal/metrics"
	"watchfile/internal/render"
	"watchfile/internal/session"
	"watchfile/internal/watcher"
)

type State int32

const (
	StateInitializing State = iota
	StateWatching
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateWatching:
		return "watching"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Sender delivers one payload to the client. It returns session.ErrClosed
// once the client is gone; Done is closed at the same time.
type Sender interface {
	Send(markup string) error
	Done() <-chan struct{}
}

type Renderer interface {
	Render(text string) (string, error)
}

type Detector interface {
	Next(ctx context.Context, target *watcher.Target) (watcher.Change, error)
	Close() error
}

type DetectorFactory func(path string, options watcher.Options) (Detector, error)

type Options struct {
	Path         string
	Session      Sender
	Renderer     Renderer
	NewDetector  DetectorFactory
	WatchOptions watcher.Options
	ReadFile     func(path string) ([]byte, error)
	Logger       *logging.Logger
	Metrics      *metrics.Registry
}

// Supervisor owns one detector and one session for the lifetime of a
// connection. Run may be called once.
type Supervisor struct {
	path        string
	session     Sender
	renderer    Renderer
	newDetector DetectorFactory
	watchOpts   watcher.Options
	readFile    func(string) ([]byte, error)
	logger      *logging.Logger
	metrics     *metrics.Registry
	state       atomic.Int32
}

func NewSupervisor(options Options) *Supervisor {
	renderer := options.Renderer
	if renderer == nil {
		renderer = render.New(render.Options{})
	}
	newDetector := options.NewDetector
	if newDetector == nil {
		newDetector = func(path string, options watcher.Options) (Detector, error) {
			detector, err := watcher.New(path, options)
			if err != nil {
				return nil, err
			}
			return detector, nil
		}
	}
	readFile := options.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	watchOpts := options.WatchOptions
	if watchOpts.Logger == nil {
		watchOpts.Logger = logger
	}
	return &Supervisor{
		path:        options.Path,
		session:     options.Session,
		renderer:    renderer,
		newDetector: newDetector,
		watchOpts:   watchOpts,
		readFile:    readFile,
		logger:      logger,
		metrics:     options.Metrics,
	}
}

func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Run blocks until the client disconnects, ctx is cancelled, or the
// notification source fails. Only the last case returns an error.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.state.Store(int32(StateTerminated))
	if s.session == nil {
		return errors.New("preview: session is required")
	}

	target := watcher.NewTarget(s.path)
	if !target.Exists() {
		s.logger.Info("watch target absent, waiting for it to appear", nil)
	}

	detector, err := s.newDetector(s.path, s.watchOpts)
	if err != nil {
		return fmt.Errorf("start detector: %w", err)
	}
	defer func() {
		if err := detector.Close(); err != nil {
			s.logger.Warn("detector close failed", map[string]string{
				"error": err.Error(),
			})
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.session.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	s.state.Store(int32(StateWatching))
	for {
		change, err := detector.Next(ctx, target)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, watcher.ErrDetectorClosed) {
				return nil
			}
			s.metrics.IncDetectorFailures()
			return err
		}
		if err := s.push(target, change); err != nil {
			if errors.Is(err, session.ErrClosed) {
				s.logger.Debug("client gone, stopping watch", nil)
				return nil
			}
			return err
		}
	}
}

// push handles one significant change. Only a closed session is returned as
// an error; every other failure is logged and the loop continues.
func (s *Supervisor) push(target *watcher.Target, change watcher.Change) error {
	content, err := s.readFile(target.Path)
	if err != nil {
		// Leave the watermark alone so the next event retries the read.
		s.metrics.IncReadFailures()
		s.logger.Warn("read watched file failed", map[string]string{
			"error": err.Error(),
		})
		return nil
	}
	if len(content) == 0 {
		// Editors truncate before writing; the write that follows may carry
		// the same timestamp, so the watermark stays put.
		s.metrics.IncPayloadsSkipped()
		s.logger.Debug("empty content suppressed", nil)
		return nil
	}
	target.Advance(change.ModTime)

	markup, err := s.renderer.Render(strings.ToValidUTF8(string(content), "�"))
	if err != nil {
		s.metrics.IncRenderFailures()
		s.logger.Warn("render failed, payload dropped", map[string]string{
			"error": err.Error(),
		})
		return nil
	}

	if err := s.session.Send(markup); err != nil {
		if errors.Is(err, session.ErrClosed) {
			return err
		}
		s.logger.Warn("send failed", map[string]string{
			"error": err.Error(),
		})
		return nil
	}
	s.metrics.IncPayloadsSent()
	s.logger.Debug("payload sent", map[string]string{
		"bytes":    strconv.Itoa(len(markup)),
		"mod_time": change.ModTime.UTC().Format(time.RFC3339Nano),
	})
	return nil
}
