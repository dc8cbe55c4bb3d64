// Package todolist renders the open one-shot todos sorted by due date.
package todolist

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tvu/habitflow/internal/engine"
	"github.com/tvu/habitflow/internal/keys"
	"github.com/tvu/habitflow/internal/model"
	"github.com/tvu/habitflow/internal/theme"
)

// Item is one row of the todo list.
type Item struct {
	Todo     model.Todo
	Activity model.Activity
}

// LoadedMsg carries the current todo list.
type LoadedMsg struct {
	Items []Item
}

// CompletedMsg reports a completed todo with the reward it earned.
type CompletedMsg struct {
	TodoID string
	Reward *engine.Reward
	Err    error
}

// DeleteRequestMsg asks the root model to remove the selected todo.
type DeleteRequestMsg struct {
	TodoID string
}

// Model is the Bubble Tea model for the todo pane.
type Model struct {
	engine  *engine.Engine
	keys    *keys.KeyMap
	now     func() time.Time
	items   []Item
	cursor  int
	focused bool
	width   int
	height  int
}

// New creates a todo list bound to the engine.
func New(eng *engine.Engine, km *keys.KeyMap, now func() time.Time, width, height int) Model {
	if now == nil {
		now = time.Now
	}
	return Model{
		engine: eng,
		keys:   km,
		now:    now,
		width:  width,
		height: height,
	}
}

// Init triggers the first load.
func (m Model) Init() tea.Cmd {
	return m.Reload()
}

// Reload rereads the open todos, earliest due first.
func (m Model) Reload() tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		activities := eng.Activities()

		items := make([]Item, 0)
		for _, todo := range eng.Todos() {
			items = append(items, Item{
				Todo:     todo,
				Activity: activities[todo.ActivityID],
			})
		}
		sort.Slice(items, func(i, j int) bool {
			return items[i].Todo.Due.Before(items[j].Todo.Due)
		})
		return LoadedMsg{Items: items}
	}
}

// SetFocused controls whether key input reaches this pane.
func (m *Model) SetFocused(focused bool) {
	m.focused = focused
}

// SetSize updates the pane dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Selected returns the todo under the cursor, if any.
func (m Model) Selected() (Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return Item{}, false
	}
	return m.items[m.cursor], true
}

// Update handles navigation and completion.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.items = msg.Items
		if m.cursor >= len(m.items) {
			m.cursor = len(m.items) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil

	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Toggle), key.Matches(msg, m.keys.Complete):
			if item, ok := m.Selected(); ok {
				return m, m.complete(item.Todo.ID)
			}
		case key.Matches(msg, m.keys.Delete):
			if item, ok := m.Selected(); ok {
				todoID := item.Todo.ID
				return m, func() tea.Msg { return DeleteRequestMsg{TodoID: todoID} }
			}
		}
	}
	return m, nil
}

func (m Model) complete(todoID string) tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		reward, err := eng.CompleteTodo(context.Background(), todoID)
		return CompletedMsg{TodoID: todoID, Reward: reward, Err: err}
	}
}

// View renders the todo pane.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(theme.HelpStyle.Render("Todos"))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString(theme.ListItemStyle.Render("No open todos."))
		return b.String()
	}

	for i, item := range m.items {
		line := m.renderItem(item)
		if i == m.cursor && m.focused {
			b.WriteString(theme.SelectedItemStyle.Render(line))
		} else {
			b.WriteString(theme.ListItemStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderItem(item Item) string {
	name := item.Todo.Name
	if name == "" {
		name = item.Activity.Name
	}
	if name == "" {
		name = item.Todo.ID
	}

	due := item.Todo.Due.Local().Format("Jan 02")
	dueRendered := theme.HelpStyle.Render(due)
	if item.Todo.Due.Before(m.now()) {
		dueRendered = theme.PenaltyStyle.Render(due + " overdue")
	}

	parts := []string{"[ ]", name, dueRendered}
	if d := item.Activity.Difficulty; d > 0 {
		parts = append(parts, theme.DifficultyStyle(d).Render(strings.Repeat("•", d)))
	}
	return strings.Join(parts, " ")
}
