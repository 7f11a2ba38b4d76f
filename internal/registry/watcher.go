package registry

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/applyr/internal/common"
)

// Watcher hot-reloads strategy definition files. Editors fire bursts of
// write events per save, so reloads are debounced per file; only the last
// event in a burst triggers the callback.
type Watcher struct {
	dir      string
	debounce time.Duration
	logger   arbor.ILogger
	onChange func(path string)

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	timers  map[string]*time.Timer
	done    chan struct{}
}

// NewWatcher creates a definitions-directory watcher. onChange receives the
// changed file path after the debounce window closes.
func NewWatcher(dir string, debounce time.Duration, onChange func(path string), logger arbor.ILogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		logger:   logger,
		onChange: onChange,
		watcher:  fsw,
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}, nil
}

// Start runs the event loop until the context is cancelled or Stop is called
func (w *Watcher) Start(ctx context.Context) {
	common.SafeGoWithContext(ctx, w.logger, "strategy-watcher", func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.done:
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !isStrategyFile(event.Name) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				w.schedule(event.Name)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn().Err(err).Msg("Strategy watcher error")
			}
		}
	})
	w.logger.Info().Str("dir", w.dir).Dur("debounce", w.debounce).Msg("Strategy hot-reload watcher started")
}

// schedule (re)arms the per-file debounce timer
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.onChange(path)
	})
}

// Stop halts the event loop and cancels pending reloads
func (w *Watcher) Stop() error {
	close(w.done)
	w.mu.Lock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func isStrategyFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
