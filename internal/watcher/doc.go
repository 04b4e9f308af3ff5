// Package watcher detects content changes to a single file.
//
// A Detector combines fsnotify events on the file's parent directory with a
// stat poll, so editors that save by rename or that only touch metadata are
// still seen. Raw events are funnelled through a small bounded channel and
// filtered by Next down to "the modification time advanced past the
// Target's watermark". Events may be coalesced; callers re-read the file on
// every significant change rather than relying on event counts.
package watcher
