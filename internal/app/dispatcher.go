package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/burrow-sh/burrow/internal/event"
	"github.com/burrow-sh/burrow/internal/fileops"
	"github.com/burrow-sh/burrow/internal/metacache"
	"github.com/burrow-sh/burrow/internal/scan"
	"github.com/burrow-sh/burrow/internal/search"
	"github.com/burrow-sh/burrow/internal/task"
)

// DefaultNotifyTTL is how long a notification stays visible.
const DefaultNotifyTTL = 4 * time.Second

// DirWatcher re-targets the filesystem watcher when the pane moves.
type DirWatcher interface {
	Point(dir string) error
}

// Dispatcher applies actions to the state. It runs on a single goroutine;
// every state mutation in the program goes through Dispatch.
type Dispatcher struct {
	st      *State
	mux     *event.Mux
	reg     *task.Registry
	scanner *scan.Scanner
	cache   *metacache.Cache

	watcher    DirWatcher
	log        *zap.Logger
	notifyTTL  time.Duration
	showHidden bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWatcher attaches a directory watcher that follows the active pane.
func WithWatcher(w DirWatcher) DispatcherOption {
	return func(d *Dispatcher) { d.watcher = w }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(log *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = log }
}

// WithNotifyTTL sets how long notifications live.
func WithNotifyTTL(ttl time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if ttl > 0 {
			d.notifyTTL = ttl
		}
	}
}

// WithShowHidden includes dotfiles in pane listings.
func WithShowHidden(show bool) DispatcherOption {
	return func(d *Dispatcher) { d.showHidden = show }
}

// NewDispatcher wires a dispatcher over st.
func NewDispatcher(st *State, mux *event.Mux, reg *task.Registry, scanner *scan.Scanner, cache *metacache.Cache, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		st:        st,
		mux:       mux,
		reg:       reg,
		scanner:   scanner,
		cache:     cache,
		log:       zap.NewNop(),
		notifyTTL: DefaultNotifyTTL,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch applies one action. The mapping is total: every action kind has
// a case, and the kinds with nothing to do are deliberate no-ops.
func (d *Dispatcher) Dispatch(ctx context.Context, a event.Action) {
	st := d.st
	switch a.Kind {
	case event.ActionNone:
		// no-op: unbound input never reaches here, but the kind exists

	case event.ActionCursorUp:
		d.moveCursor(-1)
	case event.ActionCursorDown:
		d.moveCursor(1)
	case event.ActionCursorTop:
		d.setCursor(0)
	case event.ActionCursorBottom:
		d.setCursor(1<<31 - 1)

	case event.ActionNavigateIn:
		d.navigateIn(ctx)
	case event.ActionNavigateBack:
		d.navigateBack(ctx)
	case event.ActionNavigateTo:
		d.navigate(ctx, a.Path, true, "", -1)
	case event.ActionRefresh:
		d.refresh(ctx)

	case event.ActionEnterCommandMode:
		st.Mode = event.ModeCommand
	case event.ActionExitCommandMode:
		st.Mode = event.ModeNavigation
	case event.ActionShowInputPrompt:
		d.openPrompt(a.Purpose)
	case event.ActionCloseOverlay:
		d.closeOverlay()
	case event.ActionShowHelp:
		st.Overlay = event.OverlayHelp
	case event.ActionStartFileNameSearch:
		st.Overlay = event.OverlayFileNameSearch
	case event.ActionStartContentSearch:
		st.Overlay = event.OverlayContentSearch

	case event.ActionSubmitInputPrompt:
		d.resolveSubmit(ctx, a.Input)
	case event.ActionCopyEntry:
		d.startTransfer(ctx, "copy", a.Input)
	case event.ActionMoveEntry:
		d.startTransfer(ctx, "move", a.Input)
	case event.ActionRenameEntry:
		d.rename(ctx, a.Input)
	case event.ActionCreateFile:
		d.create(ctx, a.Input, false)
	case event.ActionCreateDir:
		d.create(ctx, a.Input, true)
	case event.ActionDeleteEntry:
		d.startDelete(ctx)

	case event.ActionScanUpdate:
		d.applyScanUpdate(a.Update)
	case event.ActionTaskResult:
		d.applyTaskResult(ctx, a.Result)
	case event.ActionShowFileNameSearchResults, event.ActionShowContentSearchResults:
		d.applySearchResults(a)

	case event.ActionEscape:
		d.escape(ctx)
	case event.ActionTick:
		st.pruneNotes(time.Now())
	case event.ActionResize:
		st.Width, st.Height = a.Width, a.Height
	case event.ActionQuit:
		d.reg.CancelAll()
		st.Quit = true
	}
}

// escape walks the dismissal ladder. Only the first matching rung fires:
// active operations, then a visible notification, then an open overlay,
// then command mode, then quit.
func (d *Dispatcher) escape(ctx context.Context) {
	st := d.st
	switch {
	case d.reg.Count() > 0 || len(st.Ops) > 0:
		n := d.reg.Count()
		d.reg.CancelAll()
		st.Ops = make(map[task.Handle]OpInfo)
		st.Pane.Scanning = false
		st.note(fmt.Sprintf("cancelled %d background operation(s)", n), false, d.notifyTTL)
	case len(st.Notes) > 0:
		st.Notes = nil
	case st.Overlay != event.OverlayNone:
		d.closeOverlay()
	case st.Mode == event.ModeCommand:
		st.Mode = event.ModeNavigation
	default:
		d.reg.CancelAll()
		st.Quit = true
	}
}

func (d *Dispatcher) moveCursor(delta int) {
	if d.st.Overlay == event.OverlaySearchResults {
		d.st.Search.Cursor = clamp(d.st.Search.Cursor+delta, len(d.st.Search.Results))
		return
	}
	d.setCursor(d.st.Pane.Cursor + delta)
}

func (d *Dispatcher) setCursor(i int) {
	if d.st.Overlay == event.OverlaySearchResults {
		d.st.Search.Cursor = clamp(i, len(d.st.Search.Results))
		return
	}
	d.st.Pane.Cursor = clamp(i, len(d.st.Pane.Entries))
}

func clamp(i, n int) int {
	if n == 0 {
		return 0
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (d *Dispatcher) navigateIn(ctx context.Context) {
	st := d.st
	if st.Overlay == event.OverlaySearchResults {
		d.jumpToResult(ctx)
		return
	}
	sel, ok := st.Pane.Selected()
	if !ok {
		return
	}
	if !sel.IsDir() {
		return
	}
	d.navigate(ctx, sel.Path, true, "", -1)
}

func (d *Dispatcher) navigateBack(ctx context.Context) {
	st := d.st
	if c, ok := st.popHistory(); ok {
		d.navigate(ctx, c.dir, false, "", c.cursor)
		return
	}
	parent := filepath.Dir(st.Pane.Dir)
	if parent == st.Pane.Dir {
		return
	}
	d.navigate(ctx, parent, false, filepath.Base(st.Pane.Dir), -1)
}

// jumpToResult leaves the results overlay and navigates to the directory
// containing the selected match, landing the cursor on it.
func (d *Dispatcher) jumpToResult(ctx context.Context) {
	st := d.st
	if len(st.Search.Results) == 0 {
		return
	}
	r := st.Search.Results[clamp(st.Search.Cursor, len(st.Search.Results))]
	d.closeOverlay()
	d.navigate(ctx, filepath.Dir(r.Path), true, filepath.Base(r.Path), -1)
}

// navigate starts a fresh scan of dir. The generation is reserved and
// recorded on the pane before the scan task starts, so no update from the
// new stream can be mistaken for a stale one, and no stale stream matches
// the new generation.
func (d *Dispatcher) navigate(ctx context.Context, dir string, push bool, selectName string, cursor int) {
	st := d.st
	dir = metacache.Canonical(dir)

	if push && dir != st.Pane.Dir {
		st.pushHistory()
	}
	d.reg.Cancel(st.Pane.scanHandle)

	gen := d.scanner.NextGeneration()
	st.Pane = Pane{
		Dir:           dir,
		Gen:           gen,
		Scanning:      true,
		pendingName:   selectName,
		pendingCursor: cursor,
	}
	st.Pane.scanHandle = d.spawnScan(ctx, dir, gen)

	if d.watcher != nil {
		if err := d.watcher.Point(dir); err != nil {
			d.log.Warn("watch failed", zap.String("dir", dir), zap.Error(err))
		}
	}
}

func (d *Dispatcher) refresh(ctx context.Context) {
	st := d.st
	for _, e := range st.Pane.Entries {
		d.cache.Invalidate(e.Path)
	}
	name := ""
	if sel, ok := st.Pane.Selected(); ok {
		name = sel.Name
	}
	d.navigate(ctx, st.Pane.Dir, false, name, -1)
}

// spawnScan runs the streaming scan as a registered task, forwarding every
// update through the result channel.
func (d *Dispatcher) spawnScan(ctx context.Context, dir string, gen uint64) task.Handle {
	return d.reg.Spawn(ctx, task.KindScan, "scan "+dir, func(tctx context.Context) {
		for u := range d.scanner.Stream(tctx, dir, gen) {
			if !d.mux.PushResult(tctx, event.TaskResult{Kind: event.ResultScan, Update: u}) {
				return
			}
		}
	})
}

// applyScanUpdate folds one scan update into the pane. Updates stamped
// with any generation other than the pane's current one are discarded.
func (d *Dispatcher) applyScanUpdate(u scan.Update) {
	st := d.st
	if u.Gen != st.Pane.Gen {
		return
	}
	switch u.Kind {
	case scan.UpdateEntry:
		if !d.showHidden && strings.HasPrefix(u.Entry.Name, ".") {
			return
		}
		before := len(st.Pane.Entries)
		entries, idx := scan.InsertSorted(st.Pane.Entries, u.Entry)
		st.Pane.Entries = entries
		if before > 0 && idx <= st.Pane.Cursor {
			st.Pane.Cursor++
		}
		if st.Pane.pendingName != "" && u.Entry.Name == st.Pane.pendingName {
			st.Pane.Cursor = idx
			st.Pane.pendingName = ""
		}
	case scan.UpdateEnriched:
		if i, ok := d.findEntry(u.Entry.Path); ok {
			st.Pane.Entries[i] = u.Entry
		}
	case scan.UpdateError:
		if u.Path == st.Pane.Dir {
			st.Pane.Err = u.Message
			st.Pane.Scanning = false
			st.note("cannot read "+u.Path+": "+u.Message, true, d.notifyTTL)
			return
		}
		d.log.Debug("stat failed", zap.String("path", u.Path), zap.String("error", u.Message))
	case scan.UpdateCompleted:
		st.Pane.Scanning = false
		if st.Pane.pendingCursor >= 0 {
			st.Pane.Cursor = clamp(st.Pane.pendingCursor, len(st.Pane.Entries))
			st.Pane.pendingCursor = -1
		}
	}
}

// findEntry locates path in the sorted entry slice.
func (d *Dispatcher) findEntry(path string) (int, bool) {
	entries := d.st.Pane.Entries
	name := filepath.Base(path)
	i := sort.Search(len(entries), func(i int) bool {
		return !scan.Less(entries[i], scan.ObjectInfo{Name: name, Kind: scan.KindDir})
	})
	for ; i < len(entries); i++ {
		if entries[i].Path == path {
			return i, true
		}
		if entries[i].Name != name {
			break
		}
	}
	// Kinds diverge between listing and enrichment for vanished entries;
	// fall back to a linear pass.
	for i, e := range entries {
		if e.Path == path {
			return i, true
		}
	}
	return 0, false
}

func (d *Dispatcher) openPrompt(purpose event.PromptPurpose) {
	st := d.st
	sel, ok := st.Pane.Selected()
	switch purpose {
	case event.PurposeCopy, event.PurposeMove, event.PurposeRename:
		if !ok {
			st.note("nothing selected", true, d.notifyTTL)
			return
		}
	}
	st.Overlay = event.OverlayPrompt
	st.Purpose = purpose
	st.Seed = ""
	if purpose == event.PurposeRename && ok {
		st.Seed = sel.Name
	}
}

func (d *Dispatcher) closeOverlay() {
	st := d.st
	st.Overlay = event.OverlayNone
	st.Purpose = event.PurposeNone
	st.Seed = ""
}

// resolveSubmit turns submitted text into the concrete action the prompt
// was opened for. The prompt's recorded purpose, not the current key, is
// what decides; each submission enqueues exactly one follow-up action.
func (d *Dispatcher) resolveSubmit(ctx context.Context, text string) {
	st := d.st
	switch st.Overlay {
	case event.OverlayFileNameSearch:
		d.closeOverlay()
		if text != "" {
			d.startSearch(ctx, SearchFileName, text)
		}
		return
	case event.OverlayContentSearch:
		d.closeOverlay()
		if text != "" {
			d.startSearch(ctx, SearchContent, text)
		}
		return
	case event.OverlayPrompt:
		purpose := st.Purpose
		d.closeOverlay()
		if text == "" {
			return
		}
		switch purpose {
		case event.PurposeCopy:
			d.mux.Enqueue(event.Action{Kind: event.ActionCopyEntry, Input: text})
		case event.PurposeMove:
			d.mux.Enqueue(event.Action{Kind: event.ActionMoveEntry, Input: text})
		case event.PurposeRename:
			d.mux.Enqueue(event.Action{Kind: event.ActionRenameEntry, Input: text})
		case event.PurposeCreateFile:
			d.mux.Enqueue(event.Action{Kind: event.ActionCreateFile, Input: text})
		case event.PurposeCreateDir:
			d.mux.Enqueue(event.Action{Kind: event.ActionCreateDir, Input: text})
		}
		return
	}
	if st.Mode == event.ModeCommand {
		st.Mode = event.ModeNavigation
		d.runCommand(text)
	}
}

// runCommand executes a command-line submission. Navigation goes through
// the internal queue as a NavigateTo action like any other intent.
func (d *Dispatcher) runCommand(text string) {
	st := d.st
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "q", "quit":
		d.reg.CancelAll()
		st.Quit = true
	case "cd":
		if len(fields) < 2 {
			st.note("cd: missing directory", true, d.notifyTTL)
			return
		}
		dir := fields[1]
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(st.Pane.Dir, dir)
		}
		d.mux.Enqueue(event.Action{Kind: event.ActionNavigateTo, Path: dir})
	default:
		st.note("unknown command: "+fields[0], true, d.notifyTTL)
	}
}

// startTransfer spawns a copy or move of the selected entry to dest.
func (d *Dispatcher) startTransfer(ctx context.Context, op, dest string) {
	st := d.st
	sel, ok := st.Pane.Selected()
	if !ok {
		st.note("nothing selected", true, d.notifyTTL)
		return
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(st.Pane.Dir, dest)
	}
	src := sel.Path
	label := op + " " + sel.Name

	d.spawnFileOp(ctx, op, label, func(tctx context.Context, progress fileops.ProgressFunc) error {
		if op == "move" {
			return fileops.Move(tctx, src, dest, progress)
		}
		return fileops.Copy(tctx, src, dest, progress)
	})
}

func (d *Dispatcher) startDelete(ctx context.Context) {
	st := d.st
	sel, ok := st.Pane.Selected()
	if !ok {
		return
	}
	path := sel.Path
	d.spawnFileOp(ctx, "delete", "delete "+sel.Name, func(tctx context.Context, _ fileops.ProgressFunc) error {
		return fileops.Delete(path)
	})
}

// spawnFileOp registers a background file operation and records it in the
// active set. Progress and completion flow back as task results stamped
// with the operation's handle.
func (d *Dispatcher) spawnFileOp(ctx context.Context, op, label string, work func(tctx context.Context, progress fileops.ProgressFunc) error) {
	hch := make(chan task.Handle, 1)
	h := d.reg.Spawn(ctx, task.KindFileOp, label, func(tctx context.Context) {
		h := <-hch
		progress := func(copied, total int64) {
			d.mux.PushResult(tctx, event.TaskResult{
				Kind: event.ResultFileOpProgress, Handle: h, Op: op,
				Copied: copied, Total: total,
			})
		}
		res := event.TaskResult{Kind: event.ResultFileOpDone, Handle: h, Op: op, Detail: label}
		if err := work(tctx, progress); err != nil {
			if errors.Is(err, context.Canceled) {
				res.Cancelled = true
			} else {
				res.Err = err.Error()
			}
		}
		d.mux.PushResult(tctx, res)
	})
	hch <- h
	d.st.Ops[h] = OpInfo{Handle: h, Op: op, Label: label}
}

// rename runs synchronously; it is a single rename syscall.
func (d *Dispatcher) rename(ctx context.Context, newName string) {
	st := d.st
	sel, ok := st.Pane.Selected()
	if !ok {
		return
	}
	newPath, err := fileops.Rename(st.Pane.Dir, sel.Name, newName)
	if err != nil {
		st.note("rename: "+err.Error(), true, d.notifyTTL)
		return
	}
	d.cache.Invalidate(sel.Path)
	st.note("renamed to "+filepath.Base(newPath), false, d.notifyTTL)
	d.navigate(ctx, st.Pane.Dir, false, newName, -1)
}

func (d *Dispatcher) create(ctx context.Context, name string, isDir bool) {
	st := d.st
	var err error
	if isDir {
		_, err = fileops.CreateDir(st.Pane.Dir, name)
	} else {
		_, err = fileops.CreateFile(st.Pane.Dir, name)
	}
	if err != nil {
		st.note("create: "+err.Error(), true, d.notifyTTL)
		return
	}
	d.navigate(ctx, st.Pane.Dir, false, name, -1)
}

// applyTaskResult handles file operation progress and completion. Results
// for handles no longer in the active set come from cancelled operations
// and are dropped.
func (d *Dispatcher) applyTaskResult(ctx context.Context, r event.TaskResult) {
	st := d.st
	switch r.Kind {
	case event.ResultFileOpProgress:
		if op, ok := st.Ops[r.Handle]; ok {
			op.Copied, op.Total = r.Copied, r.Total
			st.Ops[r.Handle] = op
		}
	case event.ResultFileOpDone:
		if _, ok := st.Ops[r.Handle]; !ok {
			return
		}
		delete(st.Ops, r.Handle)
		if r.Cancelled {
			return
		}
		if r.Err != "" {
			st.note(r.Op+" failed: "+r.Err, true, d.notifyTTL)
			return
		}
		st.note(r.Detail+" done", false, d.notifyTTL)
		d.refresh(ctx)
	}
}

// startSearch cancels any previous search and spawns a new one rooted at
// the pane directory. Batches stream back stamped with the task handle so
// results from a superseded search are discarded.
func (d *Dispatcher) startSearch(ctx context.Context, kind SearchKind, query string) {
	st := d.st
	d.reg.Cancel(st.Search.Handle)

	root := st.Pane.Dir
	resultKind := event.ResultFileNameSearch
	if kind == SearchContent {
		resultKind = event.ResultContentSearch
	}

	hch := make(chan task.Handle, 1)
	h := d.reg.Spawn(ctx, task.KindSearch, "search "+query, func(tctx context.Context) {
		h := <-hch
		emit := func(batch []search.Match) {
			rs := make([]event.SearchResult, len(batch))
			for i, m := range batch {
				rs[i] = event.SearchResult{Path: m.Path, Line: m.Line, Preview: m.Preview}
			}
			d.mux.PushResult(tctx, event.TaskResult{Kind: resultKind, Handle: h, Results: rs})
		}
		var err error
		if kind == SearchContent {
			err = search.Contents(tctx, root, query, emit)
		} else {
			err = search.Filenames(tctx, root, query, emit)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			d.log.Warn("search failed", zap.String("query", query), zap.Error(err))
		}
		d.mux.PushResult(tctx, event.TaskResult{Kind: resultKind, Handle: h, Final: true})
	})
	hch <- h

	st.Search = SearchState{Kind: kind, Query: query, Handle: h}
	st.Overlay = event.OverlaySearchResults
}

// applySearchResults folds a result batch into the search state. Batches
// from any handle other than the current search are stale and dropped.
func (d *Dispatcher) applySearchResults(a event.Action) {
	st := d.st
	if a.Handle != st.Search.Handle {
		return
	}
	st.Search.Results = append(st.Search.Results, a.Results...)
	if a.Final {
		st.Search.Done = true
	}
}
