// Package scan produces two-phase streams of directory entries: a fast
// listing phase that names every entry immediately, and a slower
// enrichment phase that resolves sizes and modification times through the
// metadata cache.
package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/burrow-sh/burrow/internal/metacache"
)

// DefaultEnrichWorkers bounds concurrent metadata lookups per scan.
const DefaultEnrichWorkers = 8

// streamBuffer is the update channel capacity. Large enough that a scan
// rarely blocks on a busy consumer, small enough to bound memory.
const streamBuffer = 64

// Scanner produces entry streams for directories. Each scan gets a fresh
// generation stamp so consumers can discard updates from superseded scans.
type Scanner struct {
	cache   *metacache.Cache
	workers int
	gen     atomic.Uint64
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithEnrichWorkers sets the enrichment concurrency bound.
func WithEnrichWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewScanner creates a Scanner backed by cache.
func NewScanner(cache *metacache.Cache, opts ...Option) *Scanner {
	s := &Scanner{cache: cache, workers: DefaultEnrichWorkers}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextGeneration reserves and returns a new generation stamp.
func (s *Scanner) NextGeneration() uint64 {
	return s.gen.Add(1)
}

// ScanStreaming starts a new scan of dir and returns its update stream and
// generation. The stream is finite and not restartable; it ends with
// UpdateCompleted unless ctx is cancelled first, in which case it simply
// closes.
func (s *Scanner) ScanStreaming(ctx context.Context, dir string) (<-chan Update, uint64) {
	gen := s.NextGeneration()
	return s.Stream(ctx, dir, gen), gen
}

// Stream is ScanStreaming with a caller-reserved generation, for callers
// that must record the generation before any update can be observed.
func (s *Scanner) Stream(ctx context.Context, dir string, gen uint64) <-chan Update {
	out := make(chan Update, streamBuffer)
	go func() {
		defer close(out)
		s.run(ctx, dir, gen, out)
	}()
	return out
}

// ScanDir scans dir to completion and returns the fully enriched entry
// list in display order (directories first, then lexicographic).
func (s *Scanner) ScanDir(ctx context.Context, dir string) ([]ObjectInfo, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	gen := s.NextGeneration()
	entries := make([]ObjectInfo, 0, len(dirents))
	for _, d := range dirents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries = append(entries, s.listEntry(dir, d, gen))
	}
	for i := range entries {
		if entries[i].Enriched {
			continue
		}
		if snap, err := s.enrich(entries[i].Path); err == nil {
			entries[i].Size = snap.Size
			entries[i].ModTime = snap.ModTime
			entries[i].Enriched = true
		}
	}
	SortEntries(entries)
	return entries, nil
}

func (s *Scanner) run(ctx context.Context, dir string, gen uint64, out chan<- Update) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		if !send(ctx, out, Update{Kind: UpdateError, Gen: gen, Path: dir, Message: err.Error()}) {
			return
		}
		send(ctx, out, Update{Kind: UpdateCompleted, Gen: gen})
		return
	}

	// Phase 1: listing. Names and kinds stream out immediately so the
	// consumer can render a partial pane.
	entries := make([]ObjectInfo, 0, len(dirents))
	for _, d := range dirents {
		if ctx.Err() != nil {
			return
		}
		e := s.listEntry(dir, d, gen)
		entries = append(entries, e)
		if !send(ctx, out, Update{Kind: UpdateEntry, Gen: gen, Entry: e}) {
			return
		}
	}

	// Phase 2: enrichment, cache-assisted and concurrency-bounded. A
	// failed lookup is reported and skipped; it never aborts the scan.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, e := range entries {
		if e.Enriched {
			continue
		}
		e := e
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			snap, err := s.enrich(e.Path)
			if err != nil {
				send(gctx, out, Update{Kind: UpdateError, Gen: gen, Path: e.Path, Message: err.Error()})
				return nil
			}
			e.Size = snap.Size
			e.ModTime = snap.ModTime
			e.Enriched = true
			send(gctx, out, Update{Kind: UpdateEnriched, Gen: gen, Entry: e})
			return nil
		})
	}
	if err := g.Wait(); err != nil || ctx.Err() != nil {
		// Cancelled: end without UpdateCompleted.
		return
	}

	send(ctx, out, Update{Kind: UpdateCompleted, Gen: gen, Total: len(entries)})
}

// listEntry classifies one directory entry. A cached snapshot enriches it
// immediately, skipping the second phase.
func (s *Scanner) listEntry(dir string, d fs.DirEntry, gen uint64) ObjectInfo {
	path := filepath.Join(dir, d.Name())
	e := ObjectInfo{
		Path: path,
		Name: d.Name(),
		Kind: classify(d.Type()),
		Gen:  gen,
	}
	if snap, ok := s.cache.Get(path); ok {
		e.Size = snap.Size
		e.ModTime = snap.ModTime
		e.Enriched = true
	}
	return e
}

// enrich stats path and populates the cache. Lstat keeps symlinks visible
// as themselves rather than their targets.
func (s *Scanner) enrich(path string) (metacache.Snapshot, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return metacache.Snapshot{}, err
	}
	snap := metacache.Snapshot{Size: info.Size(), ModTime: info.ModTime(), Mode: info.Mode()}
	s.cache.Insert(path, snap)
	return snap, nil
}

func classify(mode fs.FileMode) Kind {
	switch {
	case mode.IsDir():
		return KindDir
	case mode&fs.ModeSymlink != 0:
		return KindSymlink
	case mode.IsRegular():
		return KindFile
	default:
		return KindOther
	}
}

// send delivers u unless ctx is done first. Reports whether u was sent.
func send(ctx context.Context, out chan<- Update, u Update) bool {
	select {
	case out <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
