package snapshot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"query-router/internal/common/logger"
)

// Watcher reloads a Store when files in a FileSource directory change. Bursts
// of events within the debounce period trigger a single reload.
type Watcher struct {
	dir      string
	store    *Store
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      logger.Logger

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

func NewWatcher(dir string, store *Store, debounce time.Duration, log logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config dir %s: %w", dir, err)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Watcher{
		dir:      dir,
		store:    store,
		watcher:  fw,
		debounce: debounce,
		log:      log.WithFields(map[string]interface{}{"component": "snapshot-watcher", "dir": dir}),
		done:     make(chan struct{}),
	}, nil
}

// Run processes events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			w.log.Debug("Config change detected", map[string]interface{}{
				"file": event.Name,
				"op":   event.Op.String(),
			})
			w.schedule(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("Config watcher error", map[string]interface{}{"error": err})
		}
	}
}

func (w *Watcher) Close() error {
	w.stopTimer()
	return w.watcher.Close()
}

// Done is closed when Run returns.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		// failures are logged by the store and keep the old snapshot
		_, _ = w.store.Reload(ctx)
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return false
	}
	return strings.HasSuffix(base, ".txt")
}
