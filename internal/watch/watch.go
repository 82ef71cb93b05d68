// Package watch re-triggers planning when the scene file changes on disk.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/magebay99/multiexporter-hack/internal/checksum"
	"github.com/magebay99/multiexporter-hack/internal/storage"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

// Change describes the scene file after a settled burst of events.
type Change struct {
	Path     string
	Checksum string
	Data     []byte
	Removed  bool
}

// Callback receives every settled change whose content differs from the
// previous one.
type Callback func(Change)

// Watch watches the directory holding path and calls cb once per settled
// change of that file until ctx is cancelled.
//
// The directory is watched rather than the file so that editors which save
// by writing a temp file and renaming it over the original are seen.
func Watch(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, cb Callback) error {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir, name := filepath.Split(abs)

	store, err := storage.NewFS(dir)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("path", abs))

	// The initial content is the baseline; only later edits are reported.
	var last string
	if data, readErr := store.Read(name); readErr == nil {
		last = checksum.Sum(data)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			data, readErr := store.Read(name)
			switch {
			case errors.Is(readErr, fs.ErrNotExist):
				if last == "" {
					continue
				}
				last = ""
				logger.Debug("watcher: removed", slog.String("path", abs))
				if cb != nil {
					cb(Change{Path: abs, Removed: true})
				}
			case readErr != nil:
				logger.Warn("watcher: read failed",
					slog.String("path", abs),
					slog.String("error", readErr.Error()))
			default:
				sum := checksum.Sum(data)
				if sum == last {
					continue
				}
				last = sum
				logger.Debug("watcher: changed", slog.String("path", abs), slog.String("checksum", sum))
				if cb != nil {
					cb(Change{Path: abs, Checksum: sum, Data: data})
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
