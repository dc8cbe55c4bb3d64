// Package app contains the root Bubble Tea model: view routing between the
// dashboard, the stats panel, and the create forms, plus transient reward
// feedback in the status bar.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tvu/habitflow/internal/engine"
	"github.com/tvu/habitflow/internal/keys"
	"github.com/tvu/habitflow/internal/model"
	"github.com/tvu/habitflow/internal/theme"
	"github.com/tvu/habitflow/internal/ui"
	"github.com/tvu/habitflow/internal/ui/habitform"
	"github.com/tvu/habitflow/internal/ui/habitlist"
	"github.com/tvu/habitflow/internal/ui/statsview"
	"github.com/tvu/habitflow/internal/ui/todolist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewDashboard ViewState = iota
	ViewStats
	ViewForm
)

// Pane identifies which dashboard list has focus.
type Pane int

const (
	PaneHabits Pane = iota
	PaneTodos
)

// feedbackExpiredMsg clears the transient reward readout.
type feedbackExpiredMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	engine *engine.Engine
	keys   *keys.KeyMap

	currentView ViewState
	pane        Pane
	layout      ui.Layout
	ready       bool

	habitList habitlist.Model
	todoList  todolist.Model
	statsView statsview.Model
	form      habitform.Model
	help      help.Model
	showHelp  bool

	profile  model.Profile
	feedback string
}

// New creates the root application model bound to a loaded engine.
func New(eng *engine.Engine, profile model.Profile) Model {
	km := keys.DefaultKeyMap()

	m := Model{
		engine:    eng,
		keys:      km,
		habitList: habitlist.New(eng, km, 80, 24),
		todoList:  todolist.New(eng, km, time.Now, 80, 24),
		statsView: statsview.New(80, 24),
		form:      habitform.New(80, 24),
		help:      help.New(),
		profile:   profile,
	}
	m.habitList.SetFocused(true)
	m.todoList.SetFocused(false)
	m.statsView.SetStats(eng.Stats())
	return m
}

// Init loads both dashboard panes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.habitList.Init(), m.todoList.Init())
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		habitWidth, todoWidth := m.layout.PaneWidths()
		m.habitList.SetSize(habitWidth, contentHeight)
		m.todoList.SetSize(todoWidth, contentHeight)
		m.statsView.SetSize(contentWidth, contentHeight)
		m.form.SetSize(contentWidth, contentHeight)
		m.help.Width = contentWidth
		if m.currentView == ViewForm {
			var cmd tea.Cmd
			m.form, cmd = m.form.Update(msg)
			return m, cmd
		}
		return m, nil

	case habitlist.ToggledMsg:
		m.statsView.SetStats(m.engine.Stats())
		return m, m.habitList.Reload()

	case habitlist.DeleteRequestMsg:
		m.engine.RemoveHabit(context.Background(), msg.HabitID)
		return m, m.habitList.Reload()

	case todolist.CompletedMsg:
		if msg.Err == nil && msg.Reward != nil {
			m.feedback = renderReward(msg.Reward)
		}
		m.statsView.SetStats(m.engine.Stats())
		return m, tea.Batch(m.todoList.Reload(), clearFeedbackAfter(3*time.Second))

	case todolist.DeleteRequestMsg:
		m.engine.RemoveTodo(context.Background(), msg.TodoID)
		return m, m.todoList.Reload()

	case habitform.HabitCreatedMsg:
		m.engine.SetHabit(context.Background(), msg.Habit)
		m.currentView = ViewDashboard
		return m, m.habitList.Reload()

	case habitform.TodoCreatedMsg:
		m.engine.SetTodo(context.Background(), msg.Todo)
		m.currentView = ViewDashboard
		return m, m.todoList.Reload()

	case habitform.ActivityCreatedMsg:
		m.engine.SetActivity(context.Background(), msg.Activity)
		m.currentView = ViewDashboard
		return m, nil

	case habitform.CancelMsg:
		m.currentView = ViewDashboard
		return m, nil

	case feedbackExpiredMsg:
		m.feedback = ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveView(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Forms own the keyboard while open, except for a hard quit.
	if m.currentView == ViewForm {
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Stats):
		if m.currentView == ViewStats {
			m.currentView = ViewDashboard
		} else {
			m.statsView.SetStats(m.engine.Stats())
			m.currentView = ViewStats
		}
		return m, nil

	case key.Matches(msg, m.keys.Back):
		m.currentView = ViewDashboard
		return m, nil

	case key.Matches(msg, m.keys.NextPane):
		if m.pane == PaneHabits {
			m.pane = PaneTodos
		} else {
			m.pane = PaneHabits
		}
		m.habitList.SetFocused(m.pane == PaneHabits)
		m.todoList.SetFocused(m.pane == PaneTodos)
		return m, nil

	case key.Matches(msg, m.keys.NewHabit):
		return m.openForm(habitform.KindHabit)
	case key.Matches(msg, m.keys.NewTodo):
		return m.openForm(habitform.KindTodo)
	case key.Matches(msg, m.keys.NewActivity):
		return m.openForm(habitform.KindActivity)
	}

	return m.updateActiveView(msg)
}

func (m Model) openForm(kind habitform.Kind) (tea.Model, tea.Cmd) {
	m.form.SetActivities(m.engine.Activities())
	cmd := m.form.Start(kind)
	m.currentView = ViewForm
	return m, cmd
}

func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.currentView == ViewForm {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.habitList, cmd = m.habitList.Update(msg)
	cmds = append(cmds, cmd)
	m.todoList, cmd = m.todoList.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the full frame.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("habitflow — "+m.profile.Username, m.headerSummary())

	var content string
	switch m.currentView {
	case ViewStats:
		content = m.statsView.View()
	case ViewForm:
		content = m.form.View()
	default:
		content = m.layout.RenderDashboard(m.habitList.View(), m.todoList.View())
	}

	if m.showHelp {
		content += "\n" + m.help.FullHelpView(m.keys.FullHelp())
	}

	status := m.feedback
	if status == "" {
		status = m.help.ShortHelpView(m.keys.ShortHelp())
	}

	return m.layout.RenderFrame(header, content, m.layout.RenderStatusBar(status))
}

func (m Model) headerSummary() string {
	stats := m.engine.Stats()
	return fmt.Sprintf("Lv %d  %d XP  %d gold", stats.Level, stats.XP, stats.Gold)
}

// renderReward formats a completed occurrence for the status bar.
func renderReward(r *engine.Reward) string {
	if r.XPDelta < 0 {
		return theme.PenaltyStyle.Render(fmt.Sprintf("%d XP", r.XPDelta))
	}
	s := fmt.Sprintf("+%d XP  +%d gold", r.XPDelta, r.GoldDelta)
	if r.LevelUp {
		s += "  LEVEL UP!"
	}
	return theme.RewardStyle.Render(s)
}

func clearFeedbackAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return feedbackExpiredMsg{}
	})
}
