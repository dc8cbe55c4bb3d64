// Package ui holds the shared terminal geometry for the habitflow views:
// the header/status-bar chrome and the split-pane dashboard arithmetic.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tvu/habitflow/internal/theme"
)

const (
	headerHeight    = 1
	statusBarHeight = 1
)

// Layout derives every view geometry from the terminal dimensions.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a Layout for the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentWidth returns the width available to a full-width view such as the
// stats panel or a create form.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the rows between the header and the status bar.
func (l Layout) ContentHeight() int {
	return l.Height - headerHeight - statusBarHeight
}

// PaneWidths returns the widths of the two dashboard panes. The habits pane
// takes the left half; the todos pane gets the remainder so odd terminal
// widths do not drop a column.
func (l Layout) PaneWidths() (habits, todos int) {
	habits = l.Width / 2
	todos = l.Width - habits
	return habits, todos
}

// RenderHeader renders the one-line title bar: the application title on the
// left, the level/XP/gold summary flush right.
func (l Layout) RenderHeader(title, summary string) string {
	return l.bar(theme.HeaderStyle, title, summary)
}

// RenderStatusBar renders the bottom line: keyboard hints, or a transient
// reward readout while one is showing.
func (l Layout) RenderStatusBar(status string) string {
	return l.bar(theme.StatusBarStyle, status, "")
}

// bar fills a single terminal row with left- and right-aligned cells on the
// style's background.
func (l Layout) bar(style lipgloss.Style, left, right string) string {
	leftCell := style.Render(left)
	var rightCell string
	if right != "" {
		rightCell = style.Render(right)
	}

	pad := l.Width - lipgloss.Width(leftCell) - lipgloss.Width(rightCell)
	if pad < 0 {
		pad = 0
	}
	fill := lipgloss.NewStyle().
		Background(style.GetBackground()).
		Render(strings.Repeat(" ", pad))

	return leftCell + fill + rightCell
}

// RenderDashboard joins the habits and todos panes side by side.
func (l Layout) RenderDashboard(habits, todos string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, habits, todos)
}

// RenderFrame stacks the header, the active view, and the status bar into
// the full terminal frame.
func (l Layout) RenderFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
