package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

func collectAll(t *testing.T, run func(emit EmitFunc) error) []Match {
	t.Helper()
	var mu sync.Mutex
	var all []Match
	err := run(func(batch []Match) {
		mu.Lock()
		all = append(all, batch...)
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	return all
}

func TestFilenames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"report.txt", "notes.md", "REPORT-final.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "reports"), 0o755); err != nil {
		t.Fatal(err)
	}

	all := collectAll(t, func(emit EmitFunc) error {
		return Filenames(context.Background(), dir, "report", emit)
	})

	names := make([]string, len(all))
	for i, m := range all {
		names[i] = filepath.Base(m.Path)
	}
	sort.Strings(names)

	want := []string{"REPORT-final.txt", "report.txt", "reports"}
	if len(names) != len(want) {
		t.Fatalf("got %d matches %v, want %d", len(names), names, len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("match %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestFilenamesBatching(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i := 0; i < batchSize*2+3; i++ {
		name := filepath.Join(dir, "match-"+string(rune('a'+i%26))+string(rune('a'+i/26))+".txt")
		if err := os.WriteFile(name, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var batches int
	var total int
	err := Filenames(context.Background(), dir, "match", func(batch []Match) {
		batches++
		total += len(batch)
		if len(batch) > batchSize {
			t.Errorf("batch of %d exceeds limit %d", len(batch), batchSize)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if total != batchSize*2+3 {
		t.Errorf("total matches = %d, want %d", total, batchSize*2+3)
	}
	if batches < 3 {
		t.Errorf("batches = %d, want >= 3", batches)
	}
}

func TestFilenamesCancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i := 0; i < 50; i++ {
		if err := os.WriteFile(filepath.Join(dir, "f"+string(rune('a'+i%26))+string(rune('0'+i/26))), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Filenames(ctx, dir, "f", func([]Match) {})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestContents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n\nfunc Needle() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.go"), []byte("package b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Binary file with the query inside must be skipped.
	if err := os.WriteFile(filepath.Join(dir, "bin"), append([]byte{0, 1, 2}, []byte("Needle")...), 0o644); err != nil {
		t.Fatal(err)
	}

	all := collectAll(t, func(emit EmitFunc) error {
		return Contents(context.Background(), dir, "Needle", emit)
	})

	if len(all) != 1 {
		t.Fatalf("got %d matches, want 1: %v", len(all), all)
	}
	m := all[0]
	if filepath.Base(m.Path) != "a.go" {
		t.Errorf("match path = %s, want a.go", m.Path)
	}
	if m.Line != 3 {
		t.Errorf("match line = %d, want 3", m.Line)
	}
	if m.Preview != "func Needle() {}" {
		t.Errorf("preview = %q", m.Preview)
	}
}

func TestTruncatePreviewKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	// Pad so a three-byte rune straddles the byte limit.
	long := strings.Repeat("x", previewLimit-1) + "世界"
	got := truncatePreview(long)
	if len(got) > previewLimit {
		t.Errorf("preview is %d bytes, limit %d", len(got), previewLimit)
	}
	if !utf8.ValidString(got) {
		t.Errorf("preview is not valid UTF-8: %q", got)
	}
	if strings.ContainsRune(got, '世') {
		t.Error("straddling rune should have been dropped, not split")
	}

	short := "hello 世界"
	if truncatePreview(short) != short {
		t.Errorf("short preview altered: %q", truncatePreview(short))
	}
}

func TestContentsPreviewIsValidUTF8(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	line := "needle " + strings.Repeat("界", previewLimit)
	if err := os.WriteFile(filepath.Join(dir, "u.txt"), []byte(line+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	all := collectAll(t, func(emit EmitFunc) error {
		return Contents(context.Background(), dir, "needle", emit)
	})
	if len(all) != 1 {
		t.Fatalf("got %d matches, want 1", len(all))
	}
	if !utf8.ValidString(all[0].Preview) {
		t.Errorf("preview is not valid UTF-8: %q", all[0].Preview)
	}
}

func TestContentsCancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		name := filepath.Join(dir, "f"+string(rune('a'+i))+".txt")
		if err := os.WriteFile(name, []byte("needle\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Contents(ctx, dir, "needle", func([]Match) {})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
