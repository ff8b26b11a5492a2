package main

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/burrow-sh/burrow/internal/app"
	"github.com/burrow-sh/burrow/internal/event"
)

// snapshotMsg carries a fresh state snapshot from the core loop.
type snapshotMsg app.Snapshot

// coreStoppedMsg arrives when the dispatch loop exits.
type coreStoppedMsg struct{ err error }

// model is a thin renderer over core snapshots. It owns exactly one piece
// of state the core does not: the text being edited in an input overlay.
// Everything else is read from the latest snapshot.
type model struct {
	mux     *event.Mux
	snap    app.Snapshot
	input   textinput.Model
	editing bool
	width   int
	height  int
}

func newModel(mux *event.Mux) model {
	ti := textinput.New()
	ti.CharLimit = 512
	return model{mux: mux, input: ti}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		return m.applySnapshot(app.Snapshot(msg))

	case coreStoppedMsg:
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.mux.PushInput(event.Input{Resize: true, Width: msg.Width, Height: msg.Height})
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) applySnapshot(s app.Snapshot) (tea.Model, tea.Cmd) {
	wasEditing := m.editing
	m.snap = s
	m.editing = s.Overlay.IsInput() || (s.Mode == event.ModeCommand && s.Overlay == event.OverlayNone)

	if m.editing && !wasEditing {
		m.input.SetValue(s.Seed)
		m.input.CursorEnd()
		m.input.Focus()
	}
	if !m.editing && wasEditing {
		m.input.Blur()
		m.input.SetValue("")
	}
	if s.Quit {
		return m, tea.Quit
	}
	return m, nil
}

// handleKey forwards bound keys to the core. While editing, the text field
// consumes everything except submit and the global bindings; the core only
// ever sees the finished text.
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if m.editing {
		switch key {
		case "enter":
			m.mux.PushInput(event.Input{Key: "enter", Text: m.input.Value()})
			return m, nil
		case "esc", "ctrl+c":
			m.mux.PushInput(event.Input{Key: key})
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	m.mux.PushInput(event.Input{Key: key})
	return m, nil
}
