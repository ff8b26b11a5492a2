package event

import (
	"context"
	"sync"
)

const (
	inputBuffer  = 16
	resultBuffer = 64
)

// Mux merges the three action sources into a single ordered stream. When
// more than one source is ready, ties break in a fixed documented order:
// terminal input first, then task results, then the internal queue. Every
// NextAction call re-polls all three sources, so none can be starved by a
// busy neighbor.
type Mux struct {
	input   chan Input
	results chan TaskResult

	mu       sync.Mutex
	internal []Action
	notify   chan struct{}
}

// NewMux creates an empty multiplexer.
func NewMux() *Mux {
	return &Mux{
		input:   make(chan Input, inputBuffer),
		results: make(chan TaskResult, resultBuffer),
		notify:  make(chan struct{}, 1),
	}
}

// PushInput delivers one raw terminal event. It drops the event if the
// core is so far behind that the input buffer is full; key repeat makes
// dropped keys preferable to a blocked render goroutine.
func (m *Mux) PushInput(in Input) {
	select {
	case m.input <- in:
	default:
	}
}

// PushResult delivers a task result, blocking until the core accepts it
// or ctx is cancelled. Background tasks call this at cooperative points,
// so a cancelled task never wedges on a full channel.
func (m *Mux) PushResult(ctx context.Context, r TaskResult) bool {
	select {
	case m.results <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

// Enqueue appends an internally generated action to the queue.
func (m *Mux) Enqueue(a Action) {
	m.mu.Lock()
	m.internal = append(m.internal, a)
	m.mu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// NextAction blocks until one source yields an action. Raw input is
// translated through the pure key mapping for the given mode and overlay;
// unbound keys are skipped without waking the dispatcher.
func (m *Mux) NextAction(ctx context.Context, mode UIMode, overlay UIOverlay) (Action, error) {
	for {
		// Priority pass: drain whichever source is ready, in order.
		select {
		case in := <-m.input:
			if a, ok := translate(in, mode, overlay); ok {
				return a, nil
			}
			continue
		default:
		}
		select {
		case r := <-m.results:
			return resultAction(r), nil
		default:
		}
		if a, ok := m.dequeue(); ok {
			return a, nil
		}

		// Nothing ready: block on all sources at once.
		select {
		case in := <-m.input:
			if a, ok := translate(in, mode, overlay); ok {
				return a, nil
			}
		case r := <-m.results:
			return resultAction(r), nil
		case <-m.notify:
			// Loop back through the priority pass so queued input
			// still wins the tie.
		case <-ctx.Done():
			return Action{}, ctx.Err()
		}
	}
}

func (m *Mux) dequeue() (Action, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.internal) == 0 {
		return Action{}, false
	}
	a := m.internal[0]
	m.internal = m.internal[1:]
	return a, true
}

// translate maps a raw input event to an action. The bool result is false
// for keys with no binding.
func translate(in Input, mode UIMode, overlay UIOverlay) (Action, bool) {
	if in.Resize {
		return Action{Kind: ActionResize, Width: in.Width, Height: in.Height}, true
	}
	a := Map(mode, overlay, in.Key)
	if a.Kind == ActionNone {
		return Action{}, false
	}
	if a.Kind == ActionSubmitInputPrompt {
		a.Input = in.Text
	}
	return a, true
}

// resultAction wraps a task result into its action form. Scan updates and
// search batches get their dedicated variants; everything else is a
// generic task result.
func resultAction(r TaskResult) Action {
	switch r.Kind {
	case ResultScan:
		return Action{Kind: ActionScanUpdate, Update: r.Update, Handle: r.Handle}
	case ResultFileNameSearch:
		return Action{Kind: ActionShowFileNameSearchResults, Results: r.Results, Final: r.Final, Handle: r.Handle}
	case ResultContentSearch:
		return Action{Kind: ActionShowContentSearchResults, Results: r.Results, Final: r.Final, Handle: r.Handle}
	default:
		return Action{Kind: ActionTaskResult, Result: r, Handle: r.Handle}
	}
}
