// Package watch reports record changes in an archive year as they happen on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/pavlix/invoice/internal/checksum"
	"github.com/pavlix/invoice/internal/record"
)

// Event kinds.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// Event describes one record change.
type Event struct {
	Kind   string
	Record record.Kind
	Name   string
}

// Callback is called for every record change.
type Callback func(Event)

type watched struct {
	coll *record.Collection
	dir  string
}

// Watch watches the given collections until ctx is cancelled. Only file
// names matching a collection's grammar produce events; Updated is reported
// only when the file content changed. Missing collection directories are
// created so they can be watched.
func Watch(ctx context.Context, colls []*record.Collection, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dirs := make(map[string]watched, len(colls))
	sums := make(map[string]string)
	for _, c := range colls {
		dir, err := c.Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("watch: create %s: %w", dir, err)
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch: add %s: %w", dir, err)
		}
		dirs[dir] = watched{coll: c, dir: dir}

		for r, err := range c.All() {
			if err != nil {
				return err
			}
			if sum, err := checksum.File(r.Path()); err == nil {
				sums[r.Path()] = sum
			}
		}
		logger.Info("watcher: started", slog.String("dir", dir))
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: error", slog.String("error", err.Error()))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			wd, known := dirs[filepath.Dir(ev.Name)]
			if !known {
				continue
			}
			name := filepath.Base(ev.Name)
			schema := wd.coll.Schema()
			if _, match := schema.Captures(name); !match {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if _, seen := sums[ev.Name]; !seen {
					continue
				}
				delete(sums, ev.Name)
				logger.Debug("watcher: deleted", slog.String("path", ev.Name))
				cb(Event{Kind: Deleted, Record: schema.Kind, Name: name})

			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				sum, readErr := checksum.File(ev.Name)
				if readErr != nil {
					logger.Debug("watcher: read failed", slog.String("path", ev.Name), slog.String("error", readErr.Error()))
					continue
				}
				prev, seen := sums[ev.Name]
				if seen && prev == sum {
					continue
				}
				sums[ev.Name] = sum
				kind := Updated
				if !seen {
					kind = Created
				}
				logger.Debug("watcher: changed", slog.String("path", ev.Name), slog.String("op", kind))
				cb(Event{Kind: kind, Record: schema.Kind, Name: name})
			}
		}
	}
}
