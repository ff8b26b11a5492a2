// Package event defines the action vocabulary exchanged between the input
// sources and the dispatcher, the pure key-to-action mapping, and the
// multiplexer that merges terminal input, task results, and internally
// generated actions into one ordered stream.
package event

import (
	"github.com/burrow-sh/burrow/internal/scan"
	"github.com/burrow-sh/burrow/internal/task"
)

// UIMode is the dispatcher's top-level input mode.
type UIMode uint8

const (
	ModeNavigation UIMode = iota
	ModeCommand
)

func (m UIMode) String() string {
	if m == ModeCommand {
		return "command"
	}
	return "navigation"
}

// UIOverlay is the modal layer above the base view, if any.
type UIOverlay uint8

const (
	OverlayNone UIOverlay = iota
	OverlayPrompt
	OverlayFileNameSearch
	OverlayContentSearch
	OverlaySearchResults
	OverlayHelp
)

func (o UIOverlay) String() string {
	switch o {
	case OverlayPrompt:
		return "prompt"
	case OverlayFileNameSearch:
		return "filename-search"
	case OverlayContentSearch:
		return "content-search"
	case OverlaySearchResults:
		return "search-results"
	case OverlayHelp:
		return "help"
	default:
		return "none"
	}
}

// IsInput reports whether the overlay collects free text from the user.
func (o UIOverlay) IsInput() bool {
	return o == OverlayPrompt || o == OverlayFileNameSearch || o == OverlayContentSearch
}

// PromptPurpose records what an open input prompt is for, so one generic
// overlay can serve many operations.
type PromptPurpose uint8

const (
	PurposeNone PromptPurpose = iota
	PurposeCopy
	PurposeMove
	PurposeRename
	PurposeCreateFile
	PurposeCreateDir
	PurposeCommand
)

func (p PromptPurpose) String() string {
	switch p {
	case PurposeCopy:
		return "copy"
	case PurposeMove:
		return "move"
	case PurposeRename:
		return "rename"
	case PurposeCreateFile:
		return "create-file"
	case PurposeCreateDir:
		return "create-dir"
	case PurposeCommand:
		return "command"
	default:
		return "none"
	}
}

// ActionKind tags an Action.
type ActionKind uint8

const (
	ActionNone ActionKind = iota

	// Navigation
	ActionCursorUp
	ActionCursorDown
	ActionCursorTop
	ActionCursorBottom
	ActionNavigateIn
	ActionNavigateBack
	ActionNavigateTo
	ActionRefresh

	// Mode and overlay toggles
	ActionEnterCommandMode
	ActionExitCommandMode
	ActionShowInputPrompt
	ActionCloseOverlay
	ActionShowHelp
	ActionStartFileNameSearch
	ActionStartContentSearch

	// Prompt resolution
	ActionSubmitInputPrompt
	ActionCopyEntry
	ActionMoveEntry
	ActionRenameEntry
	ActionCreateFile
	ActionCreateDir
	ActionDeleteEntry

	// Background results
	ActionScanUpdate
	ActionTaskResult
	ActionShowFileNameSearchResults
	ActionShowContentSearchResults

	// System
	ActionEscape
	ActionTick
	ActionResize
	ActionQuit
)

var actionNames = map[ActionKind]string{
	ActionNone:                      "none",
	ActionCursorUp:                  "cursor-up",
	ActionCursorDown:                "cursor-down",
	ActionCursorTop:                 "cursor-top",
	ActionCursorBottom:              "cursor-bottom",
	ActionNavigateIn:                "navigate-in",
	ActionNavigateBack:              "navigate-back",
	ActionNavigateTo:                "navigate-to",
	ActionRefresh:                   "refresh",
	ActionEnterCommandMode:          "enter-command-mode",
	ActionExitCommandMode:           "exit-command-mode",
	ActionShowInputPrompt:           "show-input-prompt",
	ActionCloseOverlay:              "close-overlay",
	ActionShowHelp:                  "show-help",
	ActionStartFileNameSearch:       "start-filename-search",
	ActionStartContentSearch:        "start-content-search",
	ActionSubmitInputPrompt:         "submit-input-prompt",
	ActionCopyEntry:                 "copy-entry",
	ActionMoveEntry:                 "move-entry",
	ActionRenameEntry:               "rename-entry",
	ActionCreateFile:                "create-file",
	ActionCreateDir:                 "create-dir",
	ActionDeleteEntry:               "delete-entry",
	ActionScanUpdate:                "scan-update",
	ActionTaskResult:                "task-result",
	ActionShowFileNameSearchResults: "show-filename-search-results",
	ActionShowContentSearchResults:  "show-content-search-results",
	ActionEscape:                    "escape",
	ActionTick:                      "tick",
	ActionResize:                    "resize",
	ActionQuit:                      "quit",
}

func (k ActionKind) String() string {
	if s, ok := actionNames[k]; ok {
		return s
	}
	return "unknown"
}

// Action is one element of the dispatch stream. It is intentionally flat:
// plain values only, so actions can be constructed, queued, and logged
// without aliasing concerns.
type Action struct {
	Kind    ActionKind
	Input   string        // SubmitInputPrompt, CopyEntry, MoveEntry, RenameEntry, CreateFile, CreateDir
	Path    string        // NavigateTo
	Purpose PromptPurpose // ShowInputPrompt
	Update  scan.Update   // ScanUpdate
	Result  TaskResult    // TaskResult
	Results []SearchResult
	Final   bool // Show*SearchResults: stream finished
	Handle  task.Handle
	Width   int // Resize
	Height  int // Resize
}

// ResultKind tags a TaskResult.
type ResultKind uint8

const (
	ResultScan ResultKind = iota
	ResultFileOpProgress
	ResultFileOpDone
	ResultFileNameSearch
	ResultContentSearch
)

// TaskResult is what a background task reports back through the
// multiplexer's result channel.
type TaskResult struct {
	Kind      ResultKind
	Handle    task.Handle
	Update    scan.Update // ResultScan
	Op        string      // ResultFileOp*: "copy", "move", ...
	Detail    string      // ResultFileOpDone: human-readable outcome
	Copied    int64       // ResultFileOpProgress
	Total     int64       // ResultFileOpProgress
	Err       string      // ResultFileOpDone: failure reason, empty on success
	Cancelled bool        // ResultFileOpDone: task observed cancellation
	Results   []SearchResult
	Final     bool // Result*Search: no more batches
}

// SearchResult is one match streamed back by the search collaborator.
type SearchResult struct {
	Path    string
	Line    int    // 0 for filename matches
	Preview string // matched line for content search
}

// Input is one raw terminal event: either a key press (Key set) or a
// resize. Text carries the overlay's edited value on submission; the
// renderer owns text editing, the core only consumes the result.
type Input struct {
	Key    string
	Text   string
	Resize bool
	Width  int
	Height int
}
