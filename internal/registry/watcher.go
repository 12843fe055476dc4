package registry

import (
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
)

const reloadDebounce = 200 * time.Millisecond

// Watcher re-scans the agent definitions directory when documents change,
// so serve mode picks up edited definitions without a restart.
type Watcher struct {
	registry *Registry
	dir      string
	watcher  *fsnotify.Watcher
	log      *logging.Logger

	stop     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	debounce *time.Timer
}

// NewWatcher creates a watcher over dir that reloads definitions into r.
func NewWatcher(r *Registry, dir string, log *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Watcher{
		registry: r,
		dir:      dir,
		watcher:  fsw,
		log:      log,
		stop:     make(chan struct{}),
	}, nil
}

// Start begins watching. It returns an error when the directory cannot be
// watched; events are then handled on a background goroutine.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	go w.loop()
	w.log.Debug("watching agent definitions", "dir", w.dir)
	return nil
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	w.stopOnce.Do(func() { close(w.stop) })
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".md") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("definitions watcher error", "error", err)
		}
	}
}

// scheduleReload debounces rapid successive events into one re-scan.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(reloadDebounce, func() {
		if err := w.registry.LoadInto(w.dir); err != nil {
			w.log.Warn("reloading agent definitions failed", "dir", w.dir, "error", err)
			return
		}
		w.log.Info("agent definitions reloaded", "dir", w.dir)
	})
}
