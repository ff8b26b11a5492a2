package event

import (
	"context"
	"testing"
	"time"

	"github.com/burrow-sh/burrow/internal/scan"
)

func nextAction(t *testing.T, m *Mux) Action {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	a, err := m.NextAction(ctx, ModeNavigation, OverlayNone)
	if err != nil {
		t.Fatalf("NextAction: %v", err)
	}
	return a
}

func TestNextActionTranslatesInput(t *testing.T) {
	t.Parallel()

	m := NewMux()
	m.PushInput(Input{Key: "j"})

	if a := nextAction(t, m); a.Kind != ActionCursorDown {
		t.Errorf("got %v, want ActionCursorDown", a.Kind)
	}
}

func TestNextActionSkipsUnboundKeys(t *testing.T) {
	t.Parallel()

	m := NewMux()
	m.PushInput(Input{Key: "x"})
	m.PushInput(Input{Key: "q"})

	// The unbound key is dropped without producing an action.
	if a := nextAction(t, m); a.Kind != ActionQuit {
		t.Errorf("got %v, want ActionQuit", a.Kind)
	}
}

func TestNextActionResize(t *testing.T) {
	t.Parallel()

	m := NewMux()
	m.PushInput(Input{Resize: true, Width: 80, Height: 24})

	a := nextAction(t, m)
	if a.Kind != ActionResize {
		t.Fatalf("got %v, want ActionResize", a.Kind)
	}
	if a.Width != 80 || a.Height != 24 {
		t.Errorf("resize = %dx%d, want 80x24", a.Width, a.Height)
	}
}

func TestNextActionPriorityOrder(t *testing.T) {
	t.Parallel()

	m := NewMux()
	m.Enqueue(Action{Kind: ActionTick})
	m.PushResult(context.Background(), TaskResult{Kind: ResultFileOpDone, Op: "copy"})
	m.PushInput(Input{Key: "q"})

	// All three sources ready: input wins, then task results, then the
	// internal queue.
	if a := nextAction(t, m); a.Kind != ActionQuit {
		t.Fatalf("first action = %v, want ActionQuit (input)", a.Kind)
	}
	if a := nextAction(t, m); a.Kind != ActionTaskResult {
		t.Fatalf("second action = %v, want ActionTaskResult", a.Kind)
	}
	if a := nextAction(t, m); a.Kind != ActionTick {
		t.Fatalf("third action = %v, want ActionTick (internal)", a.Kind)
	}
}

func TestNextActionInternalQueueFIFO(t *testing.T) {
	t.Parallel()

	m := NewMux()
	m.Enqueue(Action{Kind: ActionRefresh})
	m.Enqueue(Action{Kind: ActionQuit})

	if a := nextAction(t, m); a.Kind != ActionRefresh {
		t.Errorf("got %v, want ActionRefresh first", a.Kind)
	}
	if a := nextAction(t, m); a.Kind != ActionQuit {
		t.Errorf("got %v, want ActionQuit second", a.Kind)
	}
}

func TestNextActionBlocksUntilReady(t *testing.T) {
	t.Parallel()

	m := NewMux()
	go func() {
		time.Sleep(30 * time.Millisecond)
		m.Enqueue(Action{Kind: ActionTick})
	}()

	start := time.Now()
	a := nextAction(t, m)
	if a.Kind != ActionTick {
		t.Errorf("got %v, want ActionTick", a.Kind)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("NextAction returned before any source was ready")
	}
}

func TestNextActionContextCancelled(t *testing.T) {
	t.Parallel()

	m := NewMux()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.NextAction(ctx, ModeNavigation, OverlayNone); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestResultActionMapping(t *testing.T) {
	t.Parallel()

	m := NewMux()
	u := scan.Update{Kind: scan.UpdateCompleted, Gen: 7, Total: 3}
	m.PushResult(context.Background(), TaskResult{Kind: ResultScan, Update: u, Handle: 5})

	a := nextAction(t, m)
	if a.Kind != ActionScanUpdate {
		t.Fatalf("got %v, want ActionScanUpdate", a.Kind)
	}
	if a.Update.Gen != 7 || a.Update.Total != 3 {
		t.Errorf("update = %+v, want gen 7 total 3", a.Update)
	}
	if a.Handle != 5 {
		t.Errorf("handle = %d, want 5", a.Handle)
	}

	m.PushResult(context.Background(), TaskResult{
		Kind:    ResultFileNameSearch,
		Results: []SearchResult{{Path: "/tmp/a"}},
		Final:   true,
	})
	a = nextAction(t, m)
	if a.Kind != ActionShowFileNameSearchResults {
		t.Fatalf("got %v, want ActionShowFileNameSearchResults", a.Kind)
	}
	if len(a.Results) != 1 || !a.Final {
		t.Errorf("results = %v final = %v, want one result and final", a.Results, a.Final)
	}
}

func TestSubmitCarriesText(t *testing.T) {
	t.Parallel()

	m := NewMux()
	m.PushInput(Input{Key: "enter", Text: "newname.txt"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	a, err := m.NextAction(ctx, ModeNavigation, OverlayPrompt)
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != ActionSubmitInputPrompt {
		t.Fatalf("got %v, want ActionSubmitInputPrompt", a.Kind)
	}
	if a.Input != "newname.txt" {
		t.Errorf("Input = %q, want %q", a.Input, "newname.txt")
	}
}

func TestPushResultHonorsContext(t *testing.T) {
	t.Parallel()

	m := NewMux()
	// Fill the result buffer with no consumer.
	for i := 0; i < resultBuffer; i++ {
		if !m.PushResult(context.Background(), TaskResult{Kind: ResultFileOpProgress}) {
			t.Fatal("buffered push should succeed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if m.PushResult(ctx, TaskResult{Kind: ResultFileOpProgress}) {
		t.Error("push on full channel with cancelled context should fail")
	}
}
