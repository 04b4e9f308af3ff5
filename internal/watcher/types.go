package watcher

import (
	"errors"
	"time"

	"watchfile/internal/logging"

	"github.com/fsnotify/fsnotify"
)

var (
	// ErrNotificationSource reports that the underlying notification source
	// kept failing and the detector gave up.
	ErrNotificationSource = errors.New("notification source failed")
	ErrDetectorClosed     = errors.New("detector closed")
)

// Event is a raw notification before filtering. Err is set for errors
// reported by the notification source.
type Event struct {
	Paths     []string
	Op        fsnotify.Op
	Polled    bool
	Err       error
	Timestamp time.Time
}

// Change is a significant event: the watched file exists and its
// modification time is newer than the Target's watermark.
type Change struct {
	Path    string
	ModTime time.Time
	Op      fsnotify.Op
	Polled  bool
}

// Options controls detector behavior.
type Options struct {
	Logger *logging.Logger
	// PollInterval is how often the file is stat'ed regardless of fsnotify.
	PollInterval time.Duration
	// Buffer is the capacity of the pending event channel.
	Buffer int
	// MaxConsecutiveErrors is how many source errors in a row end the detector.
	MaxConsecutiveErrors int
}
