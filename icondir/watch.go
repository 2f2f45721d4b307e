package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-errors/errors"
)

const settleDelay = 500 * time.Millisecond

// watchedPaths returns the directories to register for target. A single
// file is watched through its parent so that replaced files are noticed.
func watchedPaths(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	if !info.IsDir() {
		return []string{filepath.Dir(target)}, nil
	}
	paths := []string{}
	err = filepath.WalkDir(target, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	return paths, nil
}

// relevant drops pure attribute changes and, for a file target, events on
// its siblings.
func relevant(target string, targetIsDir bool, event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if targetIsDir {
		return true
	}
	return filepath.Clean(event.Name) == target
}

// watch reports target again once changes to it have settled, until ctx is
// done.
func (s *scanner) watch(ctx context.Context, target string) error {
	info, err := os.Stat(target)
	if err != nil {
		return errors.Wrap(err, 0)
	}
	paths, err := watchedPaths(target)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, 0)
	}
	defer watcher.Close()
	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			return errors.WrapPrefix(err, "watching "+path, 0)
		}
	}
	s.logger.Info("watching for changes", "target", target, "directories", len(paths))

	timer := time.NewTimer(settleDelay)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(target, info.IsDir(), event) {
				continue
			}
			if event.Has(fsnotify.Create) && info.IsDir() {
				if created, err := os.Stat(event.Name); err == nil && created.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						s.logger.Warn("unable to watch directory", "path", event.Name, "error", err)
					}
				}
			}
			s.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			timer.Reset(settleDelay)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", "error", err)
		case <-timer.C:
			if err := s.report(ctx, target); err != nil {
				s.logger.Warn("unable to fingerprint", "target", target, "error", err)
			}
		}
	}
}
