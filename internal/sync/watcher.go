package sync

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fleetingnotes/fleeting-sync/internal/apperr"
	"github.com/fleetingnotes/fleeting-sync/internal/vault"
)

// Watch runs the serve-mode trigger loop until ctx is cancelled: an
// fsnotify watcher on the synced folder schedules a debounced sync after
// local edits, and interval (when positive) fires a periodic sync.
//
// A trigger that lands while a cycle is in flight is dropped, not queued;
// the running cycle already races ahead of it and the next edit or tick
// reschedules.
func Watch(ctx context.Context, syncer *Syncer, vaultRoot string, debounce, interval time.Duration, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watchRoot := filepath.Join(vaultRoot, filepath.FromSlash(vault.NormalizeFolder(syncer.Settings().Folder)))
	if err := addDirsRecursive(w, watchRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", watchRoot))

	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	// syncTimer debounces bursts of file events into one sync.
	var syncTimer *time.Timer
	var syncCh <-chan time.Time

	scheduleSync := func() {
		if syncTimer == nil {
			syncTimer = time.NewTimer(debounce)
			syncCh = syncTimer.C
		} else {
			syncTimer.Reset(debounce)
		}
	}

	var tickCh <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tickCh = ticker.C
	}

	runSync := func(trigger string) {
		if _, err := syncer.Sync(ctx); err != nil {
			if errors.Is(err, apperr.ErrSyncInProgress) {
				logger.Debug("watcher: sync already running", slog.String("trigger", trigger))
				return
			}
			logger.Warn("watcher: sync failed",
				slog.String("trigger", trigger),
				slog.String("error", err.Error()))
		}
	}

	for {
		select {
		case <-ctx.Done():
			if syncTimer != nil {
				syncTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-syncCh:
			runSync("file-change")

		case <-tickCh:
			runSync("interval")

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			// New directories join the watch list so later writes in
			// them still trigger.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			// Atomic-write temp files from our own apply pass churn the
			// directory; only settled .md paths schedule a sync.
			if strings.Contains(filepath.Base(ev.Name), ".fleeting-tmp-") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
				scheduleSync()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
