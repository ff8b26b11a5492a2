package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/burrow-sh/burrow/internal/event"
	"github.com/burrow-sh/burrow/internal/scan"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	dirStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	noteStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	promptStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

const (
	minWidth  = 40
	minHeight = 8
	sizeCol   = 10
)

func (m model) View() string {
	w, h := m.width, m.height
	if w < minWidth {
		w = minWidth
	}
	if h < minHeight {
		h = minHeight
	}

	switch m.snap.Overlay {
	case event.OverlayHelp:
		return m.viewHelp()
	case event.OverlaySearchResults:
		return m.viewSearchResults(w, h)
	}

	var b strings.Builder
	b.WriteString(m.viewHeader(w))
	b.WriteString("\n")
	b.WriteString(m.viewEntries(w, h-4))
	b.WriteString(m.viewFooter(w))
	if m.snap.Overlay.IsInput() || (m.snap.Mode == event.ModeCommand && m.editing) {
		b.WriteString("\n")
		b.WriteString(m.viewInput())
	}
	return b.String()
}

func (m model) viewHeader(w int) string {
	title := runewidth.Truncate(m.snap.Dir, w-12, "…")
	line := headerStyle.Render(title)
	if m.snap.Scanning {
		line += dimStyle.Render("  scanning…")
	}
	return line
}

func (m model) viewEntries(w, rows int) string {
	entries := m.snap.Entries
	if rows < 1 {
		rows = 1
	}
	if len(entries) == 0 {
		var b strings.Builder
		if m.snap.PaneErr != "" {
			b.WriteString(errStyle.Render("  " + m.snap.PaneErr))
		} else if !m.snap.Scanning {
			b.WriteString(dimStyle.Render("  (empty)"))
		}
		b.WriteString(strings.Repeat("\n", rows))
		return b.String()
	}

	// Window the list around the cursor.
	start := 0
	if m.snap.Cursor >= rows {
		start = m.snap.Cursor - rows + 1
	}
	end := start + rows
	if end > len(entries) {
		end = len(entries)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(m.viewEntry(entries[i], i == m.snap.Cursor, w))
		b.WriteString("\n")
	}
	for i := end - start; i < rows; i++ {
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) viewEntry(e scan.ObjectInfo, selected bool, w int) string {
	name := e.Name
	if e.Kind == scan.KindDir {
		name += "/"
	} else if e.Kind == scan.KindSymlink {
		name += "@"
	}

	size := ""
	if e.Enriched && e.Kind == scan.KindFile {
		size = humanSize(e.Size)
	}

	nameWidth := w - sizeCol - 4
	row := fmt.Sprintf(" %s %*s ",
		runewidth.FillRight(runewidth.Truncate(name, nameWidth, "…"), nameWidth),
		sizeCol, size)

	if selected {
		return selectedStyle.Render(row)
	}
	if e.Kind == scan.KindDir {
		return dirStyle.Render(row)
	}
	if !e.Enriched {
		return dimStyle.Render(row)
	}
	return row
}

func (m model) viewFooter(w int) string {
	var parts []string

	for _, op := range m.snap.Ops {
		line := op.Label
		if op.Total > 0 {
			line += fmt.Sprintf(" %d%%", op.Copied*100/op.Total)
		}
		parts = append(parts, dimStyle.Render(line))
	}
	for _, n := range m.snap.Notes {
		if n.IsError {
			parts = append(parts, errStyle.Render(n.Text))
		} else {
			parts = append(parts, noteStyle.Render(n.Text))
		}
	}
	if len(parts) == 0 {
		hint := "j/k move  enter open  c copy  m move  n rename  / search  : command  ? help  q quit"
		parts = append(parts, dimStyle.Render(runewidth.Truncate(hint, w-2, "…")))
	}
	return strings.Join(parts, "\n")
}

func (m model) viewInput() string {
	title := ""
	switch {
	case m.snap.Mode == event.ModeCommand && m.snap.Overlay == event.OverlayNone:
		title = ":"
	case m.snap.Overlay == event.OverlayFileNameSearch:
		title = "find name"
	case m.snap.Overlay == event.OverlayContentSearch:
		title = "find in files"
	default:
		switch m.snap.Purpose {
		case event.PurposeCopy:
			title = "copy to"
		case event.PurposeMove:
			title = "move to"
		case event.PurposeRename:
			title = "rename to"
		case event.PurposeCreateFile:
			title = "new file"
		case event.PurposeCreateDir:
			title = "new directory"
		}
	}
	return promptStyle.Render(title + " " + m.input.View())
}

func (m model) viewSearchResults(w, h int) string {
	var b strings.Builder
	status := fmt.Sprintf("%d matches for %q", len(m.snap.Search.Results), m.snap.Search.Query)
	if !m.snap.Search.Done {
		status += "  searching…"
	}
	b.WriteString(headerStyle.Render(status))
	b.WriteString("\n")

	rows := h - 3
	if rows < 1 {
		rows = 1
	}
	results := m.snap.Search.Results
	start := 0
	if m.snap.Search.Cursor >= rows {
		start = m.snap.Search.Cursor - rows + 1
	}
	for i := start; i < len(results) && i < start+rows; i++ {
		r := results[i]
		line := r.Path
		if r.Line > 0 {
			line = fmt.Sprintf("%s:%d  %s", filepath.Base(r.Path), r.Line, r.Preview)
		}
		line = " " + runewidth.Truncate(line, w-2, "…")
		if i == m.snap.Search.Cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("enter jump  q close"))
	return b.String()
}

func (m model) viewHelp() string {
	help := `
  navigation        j/k or arrows   move cursor
                    g / G           first / last entry
                    enter, l        open directory
                    h, backspace    parent or back
                    r               refresh

  operations        c               copy selection
                    m               move selection
                    n               rename selection
                    a / A           new file / directory
                    d               delete selection

  search            /               find by name
                    ctrl+f          find in files

  other             :               command line (cd, quit)
                    esc             cancel / dismiss / close
                    q, ctrl+c       quit

  press q or enter to close this help
`
	return help
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
