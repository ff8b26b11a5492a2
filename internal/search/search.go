// Package search implements the filename and content search collaborators.
// Both walk the tree under a root, check their context between entries,
// and stream matches back in batches so the UI can show results as they
// arrive.
package search

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

const (
	// batchSize is how many matches accumulate before a flush.
	batchSize = 16
	// maxContentFileSize skips files too large to grep interactively.
	maxContentFileSize = 4 << 20
	// contentWorkers bounds concurrent file reads during content search.
	contentWorkers = 4
	// previewLimit truncates long matched lines.
	previewLimit = 200
)

// Match is one search hit. Line is 0 for filename matches.
type Match struct {
	Path    string
	Line    int
	Preview string
}

// EmitFunc receives match batches. It is called from the searching
// goroutine; implementations forward into the result channel.
type EmitFunc func(batch []Match)

// Filenames walks root emitting entries whose name contains query
// (case-insensitive). Unreadable directories are skipped, not fatal.
func Filenames(ctx context.Context, root, query string, emit EmitFunc) error {
	needle := strings.ToLower(query)
	var batch []Match

	flush := func() {
		if len(batch) > 0 {
			emit(batch)
			batch = nil
		}
	}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if path == root {
			return nil
		}
		if strings.Contains(strings.ToLower(d.Name()), needle) {
			batch = append(batch, Match{Path: path})
			if len(batch) >= batchSize {
				flush()
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	flush()
	return nil
}

// Contents walks root grepping regular files for query. Files are scanned
// concurrently with a bounded worker group; binary and oversized files
// are skipped. Matches are streamed per file.
func Contents(ctx context.Context, root, query string, emit EmitFunc) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(contentWorkers)

	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if cerr := gctx.Err(); cerr != nil {
			return cerr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if fi, err := d.Info(); err != nil || fi.Size() > maxContentFileSize {
			return nil
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if matches := grepFile(gctx, path, query); len(matches) > 0 {
				emit(matches)
			}
			return nil
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return walkErr
}

// grepFile returns the matching lines of one file. Read errors and binary
// content yield no matches; a missing file mid-search is not an error.
func grepFile(ctx context.Context, path, query string) []Match {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	// Probe the head for null bytes to skip binaries.
	head := make([]byte, 512)
	n, _ := f.Read(head)
	if bytes.IndexByte(head[:n], 0) >= 0 {
		return nil
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil
	}

	var matches []Match
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		if line%64 == 0 && ctx.Err() != nil {
			return matches
		}
		text := sc.Text()
		if strings.Contains(text, query) {
			matches = append(matches, Match{Path: path, Line: line, Preview: truncatePreview(strings.TrimSpace(text))})
		}
	}
	return matches
}

// truncatePreview caps a matched line at previewLimit bytes, cutting on a
// rune boundary so the preview stays valid UTF-8.
func truncatePreview(s string) string {
	if len(s) <= previewLimit {
		return s
	}
	cut := previewLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
