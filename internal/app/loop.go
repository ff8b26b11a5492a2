package app

import (
	"context"
	"time"

	"github.com/burrow-sh/burrow/internal/event"
	"github.com/burrow-sh/burrow/internal/task"
)

// DefaultTick is the notification housekeeping interval.
const DefaultTick = 250 * time.Millisecond

// RedrawFunc receives a fresh state snapshot after every dispatched
// action. It must not block for long; it runs on the dispatch goroutine.
type RedrawFunc func(Snapshot)

// Loop drives the dispatch cycle: pull one action from the multiplexer,
// apply it, publish a snapshot, repeat.
type Loop struct {
	st      *State
	mux     *event.Mux
	reg     *task.Registry
	disp    *Dispatcher
	monitor *event.Monitor
	redraw  RedrawFunc
	tick    time.Duration
}

// NewLoop assembles a loop. A nil redraw and a zero tick are allowed,
// which is what the tests use.
func NewLoop(st *State, mux *event.Mux, reg *task.Registry, disp *Dispatcher, monitor *event.Monitor, redraw RedrawFunc, tick time.Duration) *Loop {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Loop{st: st, mux: mux, reg: reg, disp: disp, monitor: monitor, redraw: redraw, tick: tick}
}

// Run dispatches until quit or ctx cancellation. The initial directory is
// scanned before the first action is awaited.
func (l *Loop) Run(ctx context.Context) error {
	tickCtx, stopTick := context.WithCancel(ctx)
	defer stopTick()
	go l.runTicker(tickCtx)

	l.disp.Dispatch(ctx, event.Action{Kind: event.ActionRefresh})
	l.publish()

	for {
		a, err := l.mux.NextAction(ctx, l.st.Mode, l.st.Overlay)
		if err != nil {
			l.reg.CancelAll()
			return err
		}
		l.monitor.Observe(a, func() {
			l.disp.Dispatch(ctx, a)
		})
		l.publish()
		if l.st.Quit {
			l.reg.CancelAll()
			return nil
		}
	}
}

func (l *Loop) publish() {
	if l.redraw != nil {
		l.redraw(l.st.Snapshot())
	}
}

// runTicker feeds periodic ticks into the internal queue so notification
// expiry happens even when the user is idle.
func (l *Loop) runTicker(ctx context.Context) {
	t := time.NewTicker(l.tick)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.mux.Enqueue(event.Action{Kind: event.ActionTick})
		case <-ctx.Done():
			return
		}
	}
}
