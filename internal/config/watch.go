package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "schedview/internal/log"
)

// watchDebounce absorbs the burst of events editors emit for one save.
const watchDebounce = 250 * time.Millisecond

// Watch reloads path whenever it changes on disk and hands the new config to
// onChange. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so that
// editors which save via rename keep triggering reloads. A file that fails to
// parse is logged and skipped; the previous config stays in effect.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	appLog.Info("watching config", "path", abs)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			cfg, err := read(abs)
			if err != nil {
				appLog.Error("config reload failed; keeping previous config", err, "path", abs)
				continue
			}
			appLog.Info("config reloaded", "path", abs)
			onChange(cfg)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			appLog.Error("config watcher error", err)
		}
	}
}
