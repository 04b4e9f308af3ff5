package watcher

import (
	"os"
	"strconv"
	"time"
)

const (
	rewatchBaseDelay = 200 * time.Millisecond
	rewatchMaxDelay  = 30 * time.Second
)

func (d *Detector) poll() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	// Start from zero so a file that appeared before the first tick is
	// still offered; Next filters it against the target watermark.
	var lastSeen time.Time
	for {
		select {
		case <-ticker.C:
		case <-d.done:
			return
		}

		if d.notify != nil && !d.watching.Load() {
			d.rewatch()
		}

		modTime, ok := statModTime(d.path)
		if !ok || modTime.Equal(lastSeen) {
			continue
		}
		lastSeen = modTime
		d.offer(Event{
			Paths:     []string{d.path},
			Polled:    true,
			Timestamp: time.Now().UTC(),
		})
	}
}

// rewatch (re)adds the parent directory to fsnotify, backing off between
// failed attempts. Until it succeeds, polling alone drives the detector.
func (d *Detector) rewatch() {
	now := time.Now()
	if now.Before(d.nextRewatch) {
		return
	}
	if err := d.notify.Add(d.dir); err != nil {
		if d.rewatchAttempts == 0 {
			d.logger.Warn("directory watch unavailable, polling", map[string]string{
				"dir":   d.dir,
				"error": err.Error(),
			})
		}
		d.nextRewatch = now.Add(rewatchDelay(d.rewatchAttempts))
		d.rewatchAttempts++
		return
	}
	if d.rewatchAttempts > 0 {
		d.logger.Info("directory watch restored", map[string]string{
			"dir":      d.dir,
			"attempts": strconv.Itoa(d.rewatchAttempts),
		})
	}
	d.rewatchAttempts = 0
	d.nextRewatch = time.Time{}
	d.watching.Store(true)
}

func rewatchDelay(attempt int) time.Duration {
	if attempt > 16 {
		return rewatchMaxDelay
	}
	delay := rewatchBaseDelay * time.Duration(1<<attempt)
	if delay > rewatchMaxDelay {
		return rewatchMaxDelay
	}
	return delay
}

func statModTime(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
