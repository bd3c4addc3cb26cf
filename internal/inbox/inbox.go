// Package inbox watches a directory and hands newly arrived files to a
// handler in batches.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a directory must be quiet before pending files
// are handed off. Copies in progress keep producing write events.
const DefaultSettle = 750 * time.Millisecond

// HandleFunc processes one batch of file paths.
type HandleFunc func(ctx context.Context, paths []string) error

// Config configures a Watcher.
type Config struct {
	Dir             string
	Settle          time.Duration // Default: DefaultSettle
	IncludeExisting bool          // Treat files already in Dir as new
	Logger          *slog.Logger  // Optional
}

// Watcher batches files created or rewritten in a directory.
type Watcher struct {
	dir             string
	settle          time.Duration
	includeExisting bool
	logger          *slog.Logger
}

type stamp struct {
	size int64
	mod  time.Time
}

// New creates a watcher for cfg.Dir.
func New(cfg Config) *Watcher {
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Watcher{
		dir:             cfg.Dir,
		settle:          cfg.Settle,
		includeExisting: cfg.IncludeExisting,
		logger:          cfg.Logger.With("inbox", cfg.Dir),
	}
}

// Run watches until ctx is done. Batches are handled one at a time, in
// arrival order; files arriving while a batch is handled wait for the next
// one. A handler error stops the watcher.
func (w *Watcher) Run(ctx context.Context, handle HandleFunc) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batches := make(chan []string, 16)
	handled := make(chan error, 1)
	go func() {
		defer close(handled)
		for batch := range batches {
			if err := handle(ctx, batch); err != nil {
				handled <- err
				cancel()
				// Drain so the collector never blocks on a dead worker.
				for range batches {
				}
				return
			}
		}
	}()

	err = w.collect(ctx, fw, batches)
	close(batches)
	if herr := <-handled; herr != nil {
		return herr
	}
	return err
}

func (w *Watcher) collect(ctx context.Context, fw *fsnotify.Watcher, batches chan<- []string) error {
	pending := make(map[string]struct{})
	seen := make(map[string]stamp)

	timer := time.NewTimer(w.settle)
	timer.Stop()
	var flush <-chan time.Time

	if w.includeExisting {
		entries, err := os.ReadDir(w.dir)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", w.dir, err)
		}
		for _, e := range entries {
			if !e.IsDir() && candidate(e.Name()) {
				pending[filepath.Join(w.dir, e.Name())] = struct{}{}
			}
		}
		if len(pending) > 0 {
			timer.Reset(w.settle)
			flush = timer.C
		}
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !candidate(filepath.Base(ev.Name)) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.settle)
			flush = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-flush:
			flush = nil
			batch := w.ready(pending, seen)
			clear(pending)
			if len(batch) == 0 {
				continue
			}
			w.logger.Info("new files", "count", len(batch))
			select {
			case batches <- batch:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// ready returns the pending regular files not already handed off with the
// same size and modification time, sorted by name.
func (w *Watcher) ready(pending map[string]struct{}, seen map[string]stamp) []string {
	var batch []string
	for path := range pending {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		st := stamp{size: info.Size(), mod: info.ModTime()}
		if prev, ok := seen[path]; ok && prev == st {
			continue
		}
		seen[path] = st
		batch = append(batch, path)
	}
	sort.Strings(batch)
	return batch
}

// candidate skips hidden and editor temporary files.
func candidate(name string) bool {
	return !strings.HasPrefix(name, ".") && !strings.HasSuffix(name, "~")
}
