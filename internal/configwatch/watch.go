// Package configwatch optionally watches an agent's config.json and
// schedule.json for hand-edits. The core kernel never watches anything on
// its own — an out-of-scope executor process opts in per agent so it can
// react to an edited file instead of polling it.
package configwatch

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/nextlevelbuilder/orgkernel/internal/pathresolver"
)

// Watcher watches one agent's directory for changes to config.json and
// schedule.json and invokes onChange with the path that changed.
type Watcher struct {
	paths    *pathresolver.Resolver
	agentID  string
	onChange func(path string)

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

func New(paths *pathresolver.Resolver, agentID string, onChange func(path string)) *Watcher {
	return &Watcher{paths: paths, agentID: agentID, onChange: onChange}
}

// Watch starts the watch loop in a background goroutine. Callers stop it by
// cancelling ctx or calling Close.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	dir := w.paths.AgentDir(w.agentID)
	if err := watcher.Add(dir); err != nil {
		slog.Warn("configwatch: could not watch agent directory", "agent", w.agentID, "dir", dir, "error", err)
	}

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	configPath := w.paths.ConfigPath(w.agentID)
	schedulePath := w.paths.SchedulePath(w.agentID)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, configPath, schedulePath)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("configwatch: watch error", "agent", w.agentID, "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, configPath, schedulePath string) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	name := filepath.Clean(event.Name)
	if name != configPath && name != schedulePath {
		return
	}
	if w.onChange != nil {
		w.onChange(name)
	}
}

// Close stops the watch loop and releases the underlying OS watch.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
