// Package task tracks in-flight cancellable background operations. Every
// long-running job (scan, search, file operation) is registered before it
// starts and deregistered exactly once when it completes, fails, or
// observes cancellation.
package task

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Handle identifies one registered task.
type Handle uint64

// Kind labels what a task does.
type Kind string

const (
	KindScan   Kind = "scan"
	KindSearch Kind = "search"
	KindFileOp Kind = "fileop"
)

// Info describes an active task.
type Info struct {
	Handle  Handle
	Kind    Kind
	Label   string
	Started time.Time
}

type running struct {
	info   Info
	cancel context.CancelFunc
}

// Registry is safe for concurrent use: background tasks register and
// deregister while the dispatcher reads and cancels.
type Registry struct {
	mu    sync.Mutex
	next  atomic.Uint64
	tasks map[Handle]*running
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[Handle]*running)}
}

// Spawn registers fn and runs it on its own goroutine with a context that
// is cancelled by Cancel, CancelAll, or parent cancellation. The task is
// deregistered when fn returns.
func (r *Registry) Spawn(parent context.Context, kind Kind, label string, fn func(ctx context.Context)) Handle {
	ctx, cancel := context.WithCancel(parent)
	h := Handle(r.next.Add(1))

	r.mu.Lock()
	r.tasks[h] = &running{
		info:   Info{Handle: h, Kind: kind, Label: label, Started: time.Now()},
		cancel: cancel,
	}
	r.mu.Unlock()

	go func() {
		defer func() {
			r.deregister(h)
			cancel()
		}()
		fn(ctx)
	}()
	return h
}

// Cancel cancels the task for h and removes it from the active set
// immediately; the goroutine unwinds in the background. Unknown or
// already-finished handles are a no-op.
func (r *Registry) Cancel(h Handle) {
	r.mu.Lock()
	t, ok := r.tasks[h]
	if ok {
		delete(r.tasks, h)
	}
	r.mu.Unlock()
	if ok {
		t.cancel()
	}
}

// CancelAll cancels every active task. The active set is empty when it
// returns, even while task goroutines are still unwinding. Safe to call
// repeatedly.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	cancelled := make([]*running, 0, len(r.tasks))
	for h, t := range r.tasks {
		cancelled = append(cancelled, t)
		delete(r.tasks, h)
	}
	r.mu.Unlock()
	for _, t := range cancelled {
		t.cancel()
	}
}

// IsActive reports whether h is registered and not yet finished or
// cancelled.
func (r *Registry) IsActive(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[h]
	return ok
}

// Count returns the number of active tasks.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Active returns the active tasks ordered by handle.
func (r *Registry) Active() []Info {
	r.mu.Lock()
	infos := make([]Info, 0, len(r.tasks))
	for _, t := range r.tasks {
		infos = append(infos, t.info)
	}
	r.mu.Unlock()
	sort.Slice(infos, func(i, j int) bool { return infos[i].Handle < infos[j].Handle })
	return infos
}

func (r *Registry) deregister(h Handle) {
	r.mu.Lock()
	delete(r.tasks, h)
	r.mu.Unlock()
}
