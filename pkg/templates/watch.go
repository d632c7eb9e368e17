package templates

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch invalidates cached templates when files under the override
// directory or any on-disk source change, calling onChange with the
// template name after each invalidation. onChange may be nil. Watch blocks
// until ctx is done or the watcher fails to start.
func (s *Store) Watch(ctx context.Context, onChange func(name string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	var roots []string
	if s.overrideDir != "" {
		roots = append(roots, s.overrideDir)
	}
	for _, src := range s.sources {
		if src.dir != "" {
			roots = append(roots, src.dir)
		}
	}
	for _, root := range roots {
		if err := addTree(watcher, root); err != nil {
			return err
		}
	}
	s.logger.Info("watching templates", "dirs", roots)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				// New subdirectories need their own watch.
				_ = addTree(watcher, event.Name)
			}
			name, ok := s.nameFor(roots, event.Name)
			if !ok {
				continue
			}
			s.Invalidate(name)
			s.logger.Info("template changed", "name", name, "op", event.Op.String())
			if onChange != nil {
				onChange(name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("template watcher", "error", err)
		}
	}
}

// nameFor maps a changed file to its template name.
func (s *Store) nameFor(roots []string, file string) (string, bool) {
	if filepath.Ext(file) != s.ext {
		return "", false
	}
	for _, root := range roots {
		rel, err := filepath.Rel(root, file)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		return strings.TrimSuffix(filepath.ToSlash(rel), s.ext), true
	}
	return "", false
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watching %q: %w", p, err)
		}
		return nil
	})
}
