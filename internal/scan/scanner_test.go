package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/burrow-sh/burrow/internal/metacache"
)

func newTestScanner(t *testing.T) *Scanner {
	t.Helper()
	return NewScanner(metacache.New(metacache.Config{}))
}

// writeTree creates files (plain names) and directories (names ending in
// a slash) under a fresh temp dir.
func writeTree(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if name[len(name)-1] == '/' {
			if err := os.Mkdir(filepath.Join(dir, name[:len(name)-1]), 0o755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestScanDirOrdering(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, "b.txt", "A/", "a.txt")
	entries, err := newTestScanner(t).ScanDir(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"A", "a.txt", "b.txt"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, name := range want {
		if entries[i].Name != name {
			t.Errorf("entries[%d].Name = %q, want %q", i, entries[i].Name, name)
		}
	}
	if !entries[0].IsDir() {
		t.Error("directory should sort first")
	}
}

func TestSortEntriesGroups(t *testing.T) {
	t.Parallel()

	entries := []ObjectInfo{
		{Name: "z", Kind: KindFile},
		{Name: "m", Kind: KindDir},
		{Name: "a", Kind: KindFile},
		{Name: "b", Kind: KindDir},
		{Name: "c", Kind: KindSymlink},
	}
	SortEntries(entries)

	// All directories precede all non-directories; each group is
	// non-decreasing by name.
	seenFile := false
	for i, e := range entries {
		if e.IsDir() && seenFile {
			t.Fatalf("directory %q after file at index %d", e.Name, i)
		}
		if !e.IsDir() {
			seenFile = true
		}
		if i > 0 && entries[i-1].IsDir() == e.IsDir() && entries[i-1].Name > e.Name {
			t.Errorf("names out of order: %q before %q", entries[i-1].Name, e.Name)
		}
	}
}

func TestInsertSorted(t *testing.T) {
	t.Parallel()

	var entries []ObjectInfo
	for _, e := range []ObjectInfo{
		{Name: "b.txt", Kind: KindFile},
		{Name: "A", Kind: KindDir},
		{Name: "a.txt", Kind: KindFile},
	} {
		entries, _ = InsertSorted(entries, e)
	}

	want := []string{"A", "a.txt", "b.txt"}
	for i, name := range want {
		if entries[i].Name != name {
			t.Errorf("entries[%d].Name = %q, want %q", i, entries[i].Name, name)
		}
	}

	entries, idx := InsertSorted(entries, ObjectInfo{Name: "B", Kind: KindDir})
	if idx != 1 {
		t.Errorf("insertion index = %d, want 1", idx)
	}
	if entries[1].Name != "B" {
		t.Errorf("entries[1].Name = %q, want B", entries[1].Name)
	}
}

func TestScanStreamingCompletes(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, "one", "two", "sub/")
	updates, gen := newTestScanner(t).ScanStreaming(context.Background(), dir)

	var listed, enriched int
	var completed *Update
	for u := range updates {
		if u.Gen != gen {
			t.Fatalf("update gen = %d, want %d", u.Gen, gen)
		}
		switch u.Kind {
		case UpdateEntry:
			listed++
		case UpdateEnriched:
			enriched++
			if !u.Entry.Enriched {
				t.Error("enriched update with Enriched unset")
			}
		case UpdateCompleted:
			c := u
			completed = &c
		case UpdateError:
			t.Errorf("unexpected error update: %s: %s", u.Path, u.Message)
		}
	}

	if listed != 3 {
		t.Errorf("listed %d entries, want 3", listed)
	}
	if enriched != 3 {
		t.Errorf("enriched %d entries, want 3", enriched)
	}
	if completed == nil {
		t.Fatal("stream ended without UpdateCompleted")
	}
	if completed.Total != 3 {
		t.Errorf("Completed.Total = %d, want 3", completed.Total)
	}
}

func TestScanStreamingCachedEntriesSkipEnrichment(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, "f1", "f2")
	cache := metacache.New(metacache.Config{})
	s := NewScanner(cache)

	// First scan warms the cache.
	for range first(s.ScanStreaming(context.Background(), dir)) {
	}

	updates, _ := s.ScanStreaming(context.Background(), dir)
	var enriched int
	for u := range updates {
		switch u.Kind {
		case UpdateEntry:
			if !u.Entry.Enriched {
				t.Errorf("entry %s not enriched from cache", u.Entry.Name)
			}
		case UpdateEnriched:
			enriched++
		}
	}
	if enriched != 0 {
		t.Errorf("got %d enrichment updates on warm cache, want 0", enriched)
	}
}

func first(ch <-chan Update, _ uint64) <-chan Update { return ch }

func TestScanStreamingCancelled(t *testing.T) {
	t.Parallel()

	names := make([]string, 0, 64)
	for i := 0; i < 64; i++ {
		names = append(names, string(rune('a'+i%26))+"-"+string(rune('0'+i%10)))
	}
	dir := writeTree(t, dedupe(names)...)

	ctx, cancel := context.WithCancel(context.Background())
	updates, _ := newTestScanner(t).ScanStreaming(ctx, dir)

	// Cancel after the first update; the stream must close without
	// UpdateCompleted.
	<-updates
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return
			}
			if u.Kind == UpdateCompleted {
				t.Fatal("cancelled scan emitted UpdateCompleted")
			}
		case <-deadline:
			t.Fatal("stream did not close after cancellation")
		}
	}
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func TestScanMissingDirectory(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "gone")
	updates, _ := newTestScanner(t).ScanStreaming(context.Background(), missing)

	var sawError, sawCompleted bool
	for u := range updates {
		switch u.Kind {
		case UpdateError:
			sawError = true
		case UpdateCompleted:
			sawCompleted = true
			if u.Total != 0 {
				t.Errorf("Completed.Total = %d, want 0", u.Total)
			}
		}
	}
	if !sawError {
		t.Error("expected an error update for unreadable root")
	}
	if !sawCompleted {
		t.Error("unreadable root still terminates the stream")
	}
}

func TestGenerationsIncrease(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, "f")
	s := newTestScanner(t)
	_, g1 := s.ScanStreaming(context.Background(), dir)
	_, g2 := s.ScanStreaming(context.Background(), dir)
	if g2 <= g1 {
		t.Errorf("generations not increasing: %d then %d", g1, g2)
	}
}
