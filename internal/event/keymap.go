package event

// Map translates a raw key press into an Action given the current UI mode
// and overlay. It is a pure function with no side effects: the same
// (mode, overlay, key) triple always yields the same action. Keys with no
// binding map to ActionNone and are dropped by the multiplexer.
//
// While an input overlay is open the renderer owns text editing and only
// forwards the keys bound here (submit, escape); everything else stays in
// the overlay's text field.
func Map(mode UIMode, overlay UIOverlay, key string) Action {
	// Global bindings, valid in every mode and overlay.
	switch key {
	case "ctrl+c":
		return Action{Kind: ActionQuit}
	case "esc":
		return Action{Kind: ActionEscape}
	}

	if overlay.IsInput() {
		if key == "enter" {
			return Action{Kind: ActionSubmitInputPrompt}
		}
		return Action{Kind: ActionNone}
	}

	switch overlay {
	case OverlaySearchResults:
		switch key {
		case "up", "k":
			return Action{Kind: ActionCursorUp}
		case "down", "j":
			return Action{Kind: ActionCursorDown}
		case "enter":
			return Action{Kind: ActionNavigateIn}
		case "q":
			return Action{Kind: ActionCloseOverlay}
		}
		return Action{Kind: ActionNone}
	case OverlayHelp:
		switch key {
		case "q", "enter", "?":
			return Action{Kind: ActionCloseOverlay}
		}
		return Action{Kind: ActionNone}
	}

	if mode == ModeCommand {
		// Command mode routes text through the renderer's command line;
		// submission arrives as enter with the typed command.
		if key == "enter" {
			return Action{Kind: ActionSubmitInputPrompt}
		}
		return Action{Kind: ActionNone}
	}

	// Navigation mode, no overlay.
	switch key {
	case "q":
		return Action{Kind: ActionQuit}
	case "up", "k":
		return Action{Kind: ActionCursorUp}
	case "down", "j":
		return Action{Kind: ActionCursorDown}
	case "g", "home":
		return Action{Kind: ActionCursorTop}
	case "G", "end":
		return Action{Kind: ActionCursorBottom}
	case "enter", "right", "l":
		return Action{Kind: ActionNavigateIn}
	case "left", "h", "backspace":
		return Action{Kind: ActionNavigateBack}
	case "r":
		return Action{Kind: ActionRefresh}
	case ":":
		return Action{Kind: ActionEnterCommandMode}
	case "/":
		return Action{Kind: ActionStartFileNameSearch}
	case "ctrl+f":
		return Action{Kind: ActionStartContentSearch}
	case "c":
		return Action{Kind: ActionShowInputPrompt, Purpose: PurposeCopy}
	case "m":
		return Action{Kind: ActionShowInputPrompt, Purpose: PurposeMove}
	case "n":
		return Action{Kind: ActionShowInputPrompt, Purpose: PurposeRename}
	case "a":
		return Action{Kind: ActionShowInputPrompt, Purpose: PurposeCreateFile}
	case "A":
		return Action{Kind: ActionShowInputPrompt, Purpose: PurposeCreateDir}
	case "d":
		return Action{Kind: ActionDeleteEntry}
	case "?":
		return Action{Kind: ActionShowHelp}
	}
	return Action{Kind: ActionNone}
}
