package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"watchfile/internal/logging"

	"github.com/fsnotify/fsnotify"
)

const (
	DefaultPollInterval         = time.Second
	DefaultBuffer               = 16
	DefaultMaxConsecutiveErrors = 3
)

// Detector produces significant changes for one file. Next must be called
// from a single goroutine.
type Detector struct {
	path         string
	dir          string
	notify       *fsnotify.Watcher
	events       chan Event
	done         chan struct{}
	closeOnce    sync.Once
	wg           sync.WaitGroup
	watching     atomic.Bool
	pollInterval time.Duration
	maxErrors    int
	logger       *logging.Logger

	// owned by the Next caller
	consecutiveErrors int

	// owned by the poll goroutine
	rewatchAttempts int
	nextRewatch     time.Time
}

// New starts watching path. The file does not need to exist yet. If fsnotify
// is unavailable the detector falls back to polling alone.
func New(path string, options Options) (*Detector, error) {
	if path == "" {
		return nil, errors.New("watch path is required")
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve watch path: %w", err)
	}

	pollInterval := options.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	buffer := options.Buffer
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	maxErrors := options.MaxConsecutiveErrors
	if maxErrors <= 0 {
		maxErrors = DefaultMaxConsecutiveErrors
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	detector := &Detector{
		path:         absolute,
		dir:          filepath.Dir(absolute),
		events:       make(chan Event, buffer),
		done:         make(chan struct{}),
		pollInterval: pollInterval,
		maxErrors:    maxErrors,
		logger: logger.With(map[string]string{
			"component": "watcher",
			"path":      absolute,
		}),
	}

	notify, err := fsnotify.NewWatcher()
	if err != nil {
		detector.logger.Warn("fsnotify unavailable, polling only", map[string]string{
			"error": err.Error(),
		})
	} else {
		detector.notify = notify
		detector.rewatch()
		detector.wg.Add(1)
		go detector.forward()
	}

	detector.wg.Add(1)
	go detector.poll()
	return detector, nil
}

// Path returns the absolute path being watched.
func (d *Detector) Path() string {
	return d.path
}

// Next blocks until a significant change for target arrives, ctx is done,
// the detector is closed, or the notification source keeps failing.
// The watermark in target is not modified.
func (d *Detector) Next(ctx context.Context, target *Target) (Change, error) {
	for {
		select {
		case <-ctx.Done():
			return Change{}, ctx.Err()
		case <-d.done:
			return Change{}, ErrDetectorClosed
		case event := <-d.events:
			if event.Err != nil {
				d.consecutiveErrors++
				d.logger.Warn("watch error", map[string]string{
					"error":       event.Err.Error(),
					"consecutive": strconv.Itoa(d.consecutiveErrors),
				})
				if d.consecutiveErrors >= d.maxErrors {
					return Change{}, fmt.Errorf("%w: %v", ErrNotificationSource, event.Err)
				}
				continue
			}
			d.consecutiveErrors = 0

			change, reason := significant(target, event)
			if reason != "" {
				if d.logger.Enabled(logging.LevelDebug) {
					d.logger.Debug("event ignored", map[string]string{
						"reason": reason,
						"op":     event.Op.String(),
						"polled": strconv.FormatBool(event.Polled),
					})
				}
				continue
			}
			return change, nil
		}
	}
}

// Close releases the fsnotify handle and stops the background goroutines.
// It is safe to call more than once.
func (d *Detector) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.done)
		if d.notify != nil {
			err = d.notify.Close()
		}
		d.wg.Wait()
	})
	return err
}

func significant(target *Target, event Event) (Change, string) {
	modTime, ok := target.Stat()
	if !ok {
		return Change{}, "absent"
	}
	if !modTime.After(target.LastModified()) {
		return Change{}, "unchanged"
	}
	return Change{
		Path:    target.Path,
		ModTime: modTime,
		Op:      event.Op,
		Polled:  event.Polled,
	}, ""
}

func (d *Detector) forward() {
	defer d.wg.Done()
	for {
		select {
		case event, ok := <-d.notify.Events:
			if !ok {
				return
			}
			name := filepath.Clean(event.Name)
			if name == d.dir && event.Op.Has(fsnotify.Remove|fsnotify.Rename) {
				// inotify drops the watch with the directory
				d.watching.Store(false)
			} else if name != d.path {
				continue
			}
			d.send(Event{
				Paths:     []string{name},
				Op:        event.Op,
				Timestamp: time.Now().UTC(),
			})
		case err, ok := <-d.notify.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				d.logger.Warn("watch queue overflow", nil)
				d.offer(Event{Paths: []string{d.path}, Polled: true, Timestamp: time.Now().UTC()})
				continue
			}
			d.watching.Store(false)
			d.send(Event{Err: err, Timestamp: time.Now().UTC()})
		case <-d.done:
			return
		}
	}
}

// send blocks while the consumer is behind so notifications are not lost.
func (d *Detector) send(event Event) {
	select {
	case d.events <- event:
	case <-d.done:
	}
}

// offer drops the event when the channel is full; anything already queued
// triggers the same stat.
func (d *Detector) offer(event Event) {
	select {
	case d.events <- event:
	default:
	}
}
