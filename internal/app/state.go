// Package app owns the application state and the dispatch loop that
// mutates it. All state changes happen on one goroutine; everything else
// sees read-only snapshots.
package app

import (
	"sort"
	"time"

	"github.com/burrow-sh/burrow/internal/event"
	"github.com/burrow-sh/burrow/internal/scan"
	"github.com/burrow-sh/burrow/internal/task"
)

// maxHistory caps the navigation history stack.
const maxHistory = 128

// Pane is the directory view the user is looking at.
type Pane struct {
	Dir      string
	Entries  []scan.ObjectInfo
	Cursor   int
	Gen      uint64
	Scanning bool
	Err      string

	scanHandle task.Handle

	// select-by-name once the entry appears in a fresh scan
	pendingName   string
	pendingCursor int
}

// Selected returns the entry under the cursor, if any.
func (p *Pane) Selected() (scan.ObjectInfo, bool) {
	if p.Cursor < 0 || p.Cursor >= len(p.Entries) {
		return scan.ObjectInfo{}, false
	}
	return p.Entries[p.Cursor], true
}

// crumb is one navigation history frame.
type crumb struct {
	dir    string
	cursor int
}

// Notification is a transient status line.
type Notification struct {
	Text    string
	IsError bool
	Expires time.Time
}

// OpInfo tracks one in-flight file operation for display.
type OpInfo struct {
	Handle task.Handle
	Op     string
	Label  string
	Copied int64
	Total  int64
}

// SearchKind distinguishes the two search flavors.
type SearchKind uint8

const (
	SearchFileName SearchKind = iota
	SearchContent
)

// SearchState holds an in-progress or completed search.
type SearchState struct {
	Kind    SearchKind
	Query   string
	Results []event.SearchResult
	Cursor  int
	Handle  task.Handle
	Done    bool
}

// State is the single mutable application state. Only the dispatcher
// touches it; the renderer works from Snapshot copies.
type State struct {
	Mode    event.UIMode
	Overlay event.UIOverlay
	Purpose event.PromptPurpose
	Seed    string // prompt prefill, e.g. the current name for rename

	Pane    Pane
	history []crumb

	Notes  []Notification
	Ops    map[task.Handle]OpInfo
	Search SearchState

	Width  int
	Height int

	Quit bool
}

// NewState creates the initial state rooted at dir.
func NewState(dir string) *State {
	return &State{
		Pane: Pane{Dir: dir},
		Ops:  make(map[task.Handle]OpInfo),
	}
}

func (s *State) pushHistory() {
	s.history = append(s.history, crumb{dir: s.Pane.Dir, cursor: s.Pane.Cursor})
	if len(s.history) > maxHistory {
		s.history = s.history[1:]
	}
}

func (s *State) popHistory() (crumb, bool) {
	if len(s.history) == 0 {
		return crumb{}, false
	}
	c := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	return c, true
}

func (s *State) note(text string, isErr bool, ttl time.Duration) {
	s.Notes = append(s.Notes, Notification{Text: text, IsError: isErr, Expires: time.Now().Add(ttl)})
}

// pruneNotes drops expired notifications.
func (s *State) pruneNotes(now time.Time) {
	kept := s.Notes[:0]
	for _, n := range s.Notes {
		if now.Before(n.Expires) {
			kept = append(kept, n)
		}
	}
	s.Notes = kept
}

// Snapshot is an immutable copy of the render-relevant state.
type Snapshot struct {
	Mode    event.UIMode
	Overlay event.UIOverlay
	Purpose event.PromptPurpose
	Seed    string

	Dir      string
	Entries  []scan.ObjectInfo
	Cursor   int
	Scanning bool
	PaneErr  string

	Notes  []Notification
	Ops    []OpInfo
	Search SearchState

	Width  int
	Height int
	Quit   bool
}

// Snapshot copies the state for the renderer. Slices are duplicated so
// the dispatcher can keep mutating after handing the snapshot off.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Mode:     s.Mode,
		Overlay:  s.Overlay,
		Purpose:  s.Purpose,
		Seed:     s.Seed,
		Dir:      s.Pane.Dir,
		Entries:  append([]scan.ObjectInfo(nil), s.Pane.Entries...),
		Cursor:   s.Pane.Cursor,
		Scanning: s.Pane.Scanning,
		PaneErr:  s.Pane.Err,
		Notes:    append([]Notification(nil), s.Notes...),
		Search:   s.Search,
		Width:    s.Width,
		Height:   s.Height,
		Quit:     s.Quit,
	}
	snap.Search.Results = append([]event.SearchResult(nil), s.Search.Results...)
	snap.Ops = make([]OpInfo, 0, len(s.Ops))
	for _, op := range s.Ops {
		snap.Ops = append(snap.Ops, op)
	}
	sort.Slice(snap.Ops, func(i, j int) bool { return snap.Ops[i].Handle < snap.Ops[j].Handle })
	return snap
}
