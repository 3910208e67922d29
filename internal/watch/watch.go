// Package watch triggers rebuilds when a repository's HEAD or branch refs
// move.
package watch

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

// HeadWatcher watches the git directories of many repositories and calls
// onChange once per burst of ref updates. onChange runs on the watcher's
// goroutine, so calls never overlap.
type HeadWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(ctx context.Context)
	log      *slog.Logger
}

// NewHeadWatcher creates a watcher. A zero debounce fires on every event.
func NewHeadWatcher(debounce time.Duration, onChange func(ctx context.Context), log *slog.Logger) (*HeadWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &HeadWatcher{
		watcher:  watcher,
		debounce: debounce,
		onChange: onChange,
		log:      log,
	}, nil
}

// AddRepository watches repoPath/.git and its refs/heads directory.
// A .git file (linked worktree) is accepted but not watched.
func (w *HeadWatcher) AddRepository(repoPath string) error {
	gitDir := filepath.Join(repoPath, ".git")
	info, err := os.Stat(gitDir)
	if err != nil {
		return fmt.Errorf("stat git dir: %w", err)
	}
	if !info.IsDir() {
		w.log.Debug("not watching non-directory git entry", "path", gitDir)
		return nil
	}

	// Git replaces HEAD by renaming a lock file, so watch the directory
	// rather than the file.
	if err := w.watcher.Add(gitDir); err != nil {
		return fmt.Errorf("watching %s: %w", gitDir, err)
	}

	refsPath := filepath.Join(gitDir, "refs", "heads")
	if _, err := os.Stat(refsPath); err == nil {
		if err := w.watcher.Add(refsPath); err != nil {
			w.log.Debug("failed to watch refs/heads", "path", refsPath, "error", err)
		}
	}
	return nil
}

// Start processes events until ctx is done or the watcher is closed.
func (w *HeadWatcher) Start(ctx context.Context) {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			w.log.Debug("ref change detected", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case <-timer.C:
			w.log.Info("repository refs changed, rebuilding")
			w.onChange(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", "error", err)

		case <-ctx.Done():
			w.log.Debug("watcher stopping")
			return
		}
	}
}

// Close releases the underlying watcher.
func (w *HeadWatcher) Close() error {
	return w.watcher.Close()
}

// relevant reports whether an event moves HEAD or a branch.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.ToSlash(event.Name)
	if strings.HasSuffix(name, ".lock") {
		return false
	}
	base := filepath.Base(event.Name)
	return base == "HEAD" || base == "packed-refs" || strings.Contains(name, "/refs/heads/")
}
