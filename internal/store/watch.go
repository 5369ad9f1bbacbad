package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ScottN-PV/cc-launcher/internal/config"
)

// ChangeFunc receives the reloaded document, or the error from reloading it.
type ChangeFunc func(doc *config.Document, err error)

// Watch blocks until ctx is done, calling fn after each burst of changes to
// the primary file. The directory is watched rather than the file because
// saves replace the file by rename.
func (s *Store) Watch(ctx context.Context, fn ChangeFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	s.logger.Info("watching configuration", "path", s.path)

	name := filepath.Base(s.path)
	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Remove) {
				s.logger.Warn("config file removed", "path", event.Name)
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				s.logger.Debug("config change detected", "op", event.Op.String())
				timer.Reset(s.debounce)
			}

		case <-timer.C:
			doc, err := s.Load()
			if err != nil {
				s.logger.Error("reloading configuration", "error", err)
			}
			fn(doc, err)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("config watcher error", "error", err)
		}
	}
}
