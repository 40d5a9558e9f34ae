package certwatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader gracefully reloads the running proxy.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Watcher triggers a proxy reload when certificate files under a directory
// change. Renewals touch several files in quick succession, so events are
// debounced before reloading.
type Watcher struct {
	dir      string
	reloader Reloader
	logger   *slog.Logger
	debounce time.Duration
}

// New creates a Watcher over dir and its immediate per-domain
// subdirectories.
func New(dir string, reloader Reloader, logger *slog.Logger) *Watcher {
	return &Watcher{
		dir:      dir,
		reloader: reloader,
		logger:   logger,
		debounce: time.Second,
	}
}

// Run blocks until ctx is cancelled. Reload failures are logged and the
// watcher keeps running.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating certificate watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	entries, err := os.ReadDir(w.dir)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				fw.Add(filepath.Join(w.dir, entry.Name()))
			}
		}
	}

	w.logger.Info("Watching certificate directory", slog.String("dir", w.dir))

	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					fw.Add(event.Name)
					continue
				}
			}

			if !isCertFile(event.Name) {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename) {
				w.logger.Debug("Certificate file changed",
					slog.String("file", event.Name),
					slog.String("op", event.Op.String()))
				pending = time.After(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Certificate watcher error", slog.Any("err", err))

		case <-pending:
			pending = nil
			if err := w.reloader.Reload(ctx); err != nil {
				w.logger.Warn("Reload after certificate change failed",
					slog.Any("err", err))
			} else {
				w.logger.Info("Reloaded proxy after certificate change")
			}
		}
	}
}

func isCertFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pem", ".crt", ".key":
		return true
	default:
		return false
	}
}
