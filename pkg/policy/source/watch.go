package source

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reports raw changes to policy files below the source path. Events
// are not debounced; callers that reload on change should coalesce them.
// New subdirectories are watched as they appear.
func (s *FileSource) Watch(ctx context.Context) (<-chan Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := s.addTree(watcher, s.path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", s.path, err)
	}

	s.logger.Info("policy watcher started", "source", s.Name())

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("policy watcher stopped", "source", s.Name())
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) && isDir(ev.Name) && !isHidden(ev.Name) {
					if err := s.addTree(watcher, ev.Name); err != nil {
						s.logger.Warn("cannot watch new directory", "path", ev.Name, "error", err)
					}
					continue
				}
				typ, relevant := classify(ev)
				if !relevant {
					continue
				}
				s.logger.Debug("policy file event", "path", ev.Name, "op", ev.Op.String())
				if !send(ctx, events, Event{Type: typ, Path: ev.Name, Time: time.Now()}) {
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("policy watcher error", "error", err)
				if !send(ctx, events, Event{Type: EventError, Path: s.path, Time: time.Now(), Err: err}) {
					return
				}
			}
		}
	}()

	return events, nil
}

// addTree watches path itself, or path and every non-hidden directory
// below it.
func (s *FileSource) addTree(w *fsnotify.Watcher, root string) error {
	if !isDir(root) {
		return w.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if isHidden(path) && path != root {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func classify(ev fsnotify.Event) (EventType, bool) {
	if !IsPolicyFile(ev.Name) || isHidden(ev.Name) {
		return 0, false
	}
	switch {
	case ev.Has(fsnotify.Create):
		return EventCreated, true
	case ev.Has(fsnotify.Write):
		return EventModified, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return EventDeleted, true
	default:
		// chmod
		return 0, false
	}
}

func send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
