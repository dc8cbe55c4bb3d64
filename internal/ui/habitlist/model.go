// Package habitlist renders today's due habits with completion checkboxes
// and streak badges.
package habitlist

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tvu/habitflow/internal/engine"
	"github.com/tvu/habitflow/internal/keys"
	"github.com/tvu/habitflow/internal/model"
	"github.com/tvu/habitflow/internal/theme"
)

// Item is one row of the habit list.
type Item struct {
	Habit    model.Habit
	Activity model.Activity
	Done     bool
	Streak   int
}

// LoadedMsg carries a freshly computed list of today's habits.
type LoadedMsg struct {
	Items []Item
}

// ToggledMsg reports a completion flip, so the root model can refresh the
// stats header.
type ToggledMsg struct {
	HabitID string
	Done    bool
}

// DeleteRequestMsg asks the root model to remove the selected habit.
type DeleteRequestMsg struct {
	HabitID string
}

// Model is the Bubble Tea model for the habit pane.
type Model struct {
	engine  *engine.Engine
	keys    *keys.KeyMap
	items   []Item
	cursor  int
	focused bool
	width   int
	height  int
}

// New creates a habit list bound to the engine.
func New(eng *engine.Engine, km *keys.KeyMap, width, height int) Model {
	return Model{
		engine:  eng,
		keys:    km,
		focused: true,
		width:   width,
		height:  height,
	}
}

// Init triggers the first load.
func (m Model) Init() tea.Cmd {
	return m.Reload()
}

// Reload recomputes today's due habits, completion states, and streaks.
func (m Model) Reload() tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		ctx := context.Background()
		activities := eng.Activities()

		items := make([]Item, 0)
		for id, habit := range eng.HabitsDueToday() {
			items = append(items, Item{
				Habit:    habit,
				Activity: activities[habit.ActivityID],
				Done:     eng.CompletedToday(id),
				Streak:   eng.CalculateStreak(ctx, id),
			})
		}
		sort.Slice(items, func(i, j int) bool {
			return displayName(items[i]) < displayName(items[j])
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

// Selected returns the habit under the cursor, if any.
func (m Model) Selected() (Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return Item{}, false
	}
	return m.items[m.cursor], true
}

// Update handles list navigation and completion toggles.
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
				return m, m.toggle(item.Habit.ID)
			}
		case key.Matches(msg, m.keys.Delete):
			if item, ok := m.Selected(); ok {
				habitID := item.Habit.ID
				return m, func() tea.Msg { return DeleteRequestMsg{HabitID: habitID} }
			}
		}
	}
	return m, nil
}

func (m Model) toggle(habitID string) tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		done := eng.ToggleHabitToday(context.Background(), habitID)
		return ToggledMsg{HabitID: habitID, Done: done}
	}
}

// View renders the habit pane.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(theme.HelpStyle.Render("Habits due today"))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString(theme.ListItemStyle.Render("Nothing due today."))
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
	checkbox := "[ ]"
	name := displayName(item)
	if item.Done {
		checkbox = "[x]"
		name = theme.CompletedStyle.Render(name)
	}

	parts := []string{checkbox, name}

	if item.Streak > 1 {
		parts = append(parts, theme.StreakStyle.Render(fmt.Sprintf("🔥%d", item.Streak)))
	}
	if d := item.Activity.Difficulty; d > 0 {
		parts = append(parts, theme.DifficultyStyle(d).Render(strings.Repeat("•", d)))
	}
	if item.Habit.Neglection {
		parts = append(parts, theme.PenaltyStyle.Render("!"))
	}

	return strings.Join(parts, " ")
}

func displayName(item Item) string {
	if item.Habit.Name != "" {
		return item.Habit.Name
	}
	if item.Activity.Name != "" {
		return item.Activity.Name
	}
	return item.Habit.ID
}
