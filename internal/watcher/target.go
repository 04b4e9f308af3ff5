package watcher

import "time"

// Target is the file being watched plus the watermark of the last
// modification time that was acted on. It is owned by a single supervisor
// loop and is not safe for concurrent use.
type Target struct {
	Path         string
	lastModified time.Time
}

// NewTarget captures the file's current modification time as the baseline.
// An absent file gets a zero baseline, so its first appearance counts as a
// change.
func NewTarget(path string) *Target {
	target := &Target{Path: path}
	if modTime, ok := target.Stat(); ok {
		target.lastModified = modTime
	}
	return target
}

func (t *Target) LastModified() time.Time {
	return t.lastModified
}

// Advance moves the watermark forward. It never moves it backwards and
// reports whether it moved.
func (t *Target) Advance(modTime time.Time) bool {
	if !modTime.After(t.lastModified) {
		return false
	}
	t.lastModified = modTime
	return true
}

// Stat returns the current modification time of a regular file at Path.
func (t *Target) Stat() (time.Time, bool) {
	return statModTime(t.Path)
}

// Exists reports whether Path is currently a regular file.
func (t *Target) Exists() bool {
	_, ok := t.Stat()
	return ok
}
