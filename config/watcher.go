package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher reloads the config file when it changes on disk.
type Watcher struct {
	path     string
	onReload func(*Config)
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	reloads  atomic.Uint32
}

// Watch starts watching path until ctx is done. onReload is called with
// every config that loads and validates; invalid edits are logged and
// skipped. The parent directory is watched so editors that replace the
// file by rename are seen too.
func Watch(ctx context.Context, path string, logger *slog.Logger, onReload func(*Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:     abs,
		onReload: onReload,
		logger:   logger,
		watcher:  fw,
	}

	go w.loop(ctx)

	return w, nil
}

// loop runs reloads on its own goroutine, so onReload calls never overlap.
func (w *Watcher) loop(ctx context.Context) {
	defer w.watcher.Close()

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()

	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			timer.Reset(reloadDebounce)
			pending = timer.C

		case <-pending:
			pending = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	count := w.reloads.Add(1)

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("reloading config, keeping previous", "path", w.path, "error", err)
		return
	}

	w.logger.Info("config reloaded", "path", w.path, "count", count)
	w.onReload(cfg)
}

// ReloadCount returns how many reloads were attempted.
func (w *Watcher) ReloadCount() uint32 {
	return w.reloads.Load()
}
