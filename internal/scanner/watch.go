package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceWindow suppresses re-processing a path that fired multiple events
// in quick succession (editors typically emit several writes per save).
const debounceWindow = 2 * time.Second

// debouncer tracks the last accepted event per path. Entries outside the
// window are evicted on every pass, keeping the map bounded by recent
// activity rather than by process lifetime.
type debouncer struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{window: window, seen: map[string]time.Time{}}
}

// allow reports whether an event for path should be processed at now.
func (d *debouncer) allow(path string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for p, t := range d.seen {
		if now.Sub(t) >= d.window {
			delete(d.seen, p)
		}
	}

	if t, ok := d.seen[path]; ok && now.Sub(t) < d.window {
		return false
	}
	d.seen[path] = now
	return true
}

// Watch reacts to create/write events on the scan roots between sweeps,
// feeding changed files through the same per-file pipeline. Watching is
// non-recursive: only the roots themselves are registered, which covers the
// common drop-a-file-in-home case; the periodic sweep picks up the rest.
func (s *Scanner) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, root := range s.roots {
		if err := watcher.Add(root); err != nil {
			s.logger.Warn("cannot watch root", zap.String("root", root), zap.Error(err))
		}
	}

	deb := newDebouncer(debounceWindow)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !s.Eligible(event.Name) {
				continue
			}

			if !deb.allow(event.Name, time.Now()) {
				continue
			}

			s.ProcessFile(ctx, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", zap.Error(err))
		}
	}
}
