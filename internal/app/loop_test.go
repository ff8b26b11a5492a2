package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/burrow-sh/burrow/internal/event"
	"github.com/burrow-sh/burrow/internal/metacache"
	"github.com/burrow-sh/burrow/internal/scan"
	"github.com/burrow-sh/burrow/internal/task"
)

type snapLog struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (l *snapLog) add(s Snapshot) {
	l.mu.Lock()
	l.snaps = append(l.snaps, s)
	l.mu.Unlock()
}

func (l *snapLog) last() (Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.snaps) == 0 {
		return Snapshot{}, false
	}
	return l.snaps[len(l.snaps)-1], true
}

func newLoopFixture(t *testing.T, dir string, redraw RedrawFunc) (*Loop, *event.Mux) {
	t.Helper()
	cache := metacache.New(metacache.Config{})
	st := NewState(dir)
	mux := event.NewMux()
	reg := task.NewRegistry()
	disp := NewDispatcher(st, mux, reg, scan.NewScanner(cache), cache)
	monitor := event.NewMonitor(0, nil)
	t.Cleanup(reg.CancelAll)
	return NewLoop(st, mux, reg, disp, monitor, redraw, 50*time.Millisecond), mux
}

func TestLoopQuitsOnKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var log snapLog
	loop, mux := newLoopFixture(t, dir, log.add)

	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()

	// Wait for the initial scan to surface, then quit.
	deadline := time.Now().Add(3 * time.Second)
	for {
		if s, ok := log.last(); ok && !s.Scanning && len(s.Entries) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("initial scan never completed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	mux.PushInput(event.Input{Key: "q"})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("loop did not quit")
	}

	s, _ := log.last()
	if !s.Quit {
		t.Error("final snapshot not marked quit")
	}
}

func TestLoopStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	loop, _ := newLoopFixture(t, t.TempDir(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("loop did not stop on cancellation")
	}
}

func TestLoopTickerPrunesNotes(t *testing.T) {
	t.Parallel()

	var log snapLog
	loop, _ := newLoopFixture(t, t.TempDir(), log.add)
	loop.st.Notes = []Notification{{Text: "stale", Expires: time.Now().Add(-time.Second)}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for {
		if s, ok := log.last(); ok && len(s.Notes) == 0 && !s.Scanning {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expired notification never pruned")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done
}
