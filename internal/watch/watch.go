// Package watch observes the active directory with fsnotify and reports
// debounced change bursts, so the pane can refresh once per burst instead
// of once per event.
package watch

import (
	"errors"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces rapid event bursts into one notification.
const DefaultDebounce = 250 * time.Millisecond

// ErrClosed is returned by operations on a closed Watcher.
var ErrClosed = errors.New("watch: watcher is closed")

// NotifyFunc is called once per debounced burst with the distinct paths
// that changed. It runs on the watcher's timer goroutine.
type NotifyFunc func(paths []string)

// Watcher follows a single directory at a time; pointing it at a new
// directory drops the previous watch. This matches a file manager pane,
// which only ever displays one directory.
type Watcher struct {
	fs       *fsnotify.Watcher
	notify   NotifyFunc
	debounce time.Duration

	mu      sync.Mutex
	current string
	pending map[string]bool
	timer   *time.Timer
	closed  bool
}

// New creates a Watcher delivering debounced bursts to notify.
func New(notify NotifyFunc, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:       fs,
		notify:   notify,
		debounce: debounce,
		pending:  make(map[string]bool),
	}
	go w.run()
	return w, nil
}

// Point re-targets the watcher at dir, replacing any previous target.
func (w *Watcher) Point(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.current == dir {
		return nil
	}
	if w.current != "" {
		// Removal can fail if the directory vanished; the add below is
		// what matters.
		_ = w.fs.Remove(w.current)
	}
	if err := w.fs.Add(dir); err != nil {
		w.current = ""
		return err
	}
	w.current = dir
	w.pending = make(map[string]bool)
	return nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	return w.fs.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.record(ev.Name)
		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the pane still has its manual
			// refresh binding.
		}
	}
}

func (w *Watcher) record(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending[path] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	w.notify(paths)
}
