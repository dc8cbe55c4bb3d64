// Package habitform holds the huh forms for creating activities, habits,
// and todos.
package habitform

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/tvu/habitflow/internal/model"
	"github.com/tvu/habitflow/internal/recur"
	"github.com/tvu/habitflow/internal/theme"
)

// HabitCreatedMsg is dispatched when a new habit is created via the form.
type HabitCreatedMsg struct {
	Habit model.Habit
}

// TodoCreatedMsg is dispatched when a new todo is created via the form.
type TodoCreatedMsg struct {
	Todo model.Todo
}

// ActivityCreatedMsg is dispatched when a new activity is created via the
// form.
type ActivityCreatedMsg struct {
	Activity model.Activity
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// Kind selects which form to present.
type Kind int

const (
	KindHabit Kind = iota
	KindTodo
	KindActivity
)

// Schedule presets offered in the habit form; "custom" opens a free RRULE
// input.
const (
	scheduleDaily    = "daily"
	scheduleWeekdays = "weekdays"
	scheduleWeekly   = "weekly"
	scheduleCustom   = "custom"
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	activityID string
	name       string
	schedule   string
	customRule string
	neglection bool
	dueDate    string

	description string
	icon        string
	actType     string
	difficulty  int
	stats       []string
}

// Model is the Bubble Tea model for the create forms.
type Model struct {
	form       *huh.Form
	fb         *formBindings
	kind       Kind
	activities []model.Activity
	width      int
	height     int
}

// New creates an idle form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{difficulty: 3, actType: string(model.ActivityPositive)},
		width:  width,
		height: height,
	}
}

// SetActivities sets the catalog offered by the habit and todo selectors.
func (m *Model) SetActivities(activities map[string]model.Activity) {
	m.activities = make([]model.Activity, 0, len(activities))
	for _, a := range activities {
		m.activities = append(m.activities, a)
	}
	sort.Slice(m.activities, func(i, j int) bool {
		return m.activities[i].Name < m.activities[j].Name
	})
}

// Start initializes the form for the given kind.
func (m *Model) Start(kind Kind) tea.Cmd {
	m.kind = kind
	*m.fb = formBindings{
		schedule:   scheduleDaily,
		difficulty: 3,
		actType:    string(model.ActivityPositive),
	}

	switch kind {
	case KindHabit:
		m.form = m.buildHabitForm()
	case KindTodo:
		m.form = m.buildTodoForm()
	case KindActivity:
		m.form = m.buildActivityForm()
	}
	return m.form.Init()
}

// Update drives the active form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the active form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Habit"
	switch m.kind {
	case KindTodo:
		titleText = "New Todo"
	case KindActivity:
		titleText = "New Activity"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildHabitForm() *huh.Form {
	fields := []huh.Field{
		m.activityField(),
		huh.NewInput().
			Title("Name override").
			Placeholder("Optional, defaults to the activity name").
			Value(&m.fb.name),
		huh.NewSelect[string]().
			Title("Schedule").
			Options(
				huh.NewOption("Every day", scheduleDaily),
				huh.NewOption("Weekdays", scheduleWeekdays),
				huh.NewOption("Once a week", scheduleWeekly),
				huh.NewOption("Custom rule", scheduleCustom),
			).
			Value(&m.fb.schedule),
		huh.NewInput().
			Title("Custom rule").
			Placeholder("RRULE, e.g. FREQ=WEEKLY;BYDAY=MO,TH").
			Value(&m.fb.customRule).
			Validate(m.validateCustomRule),
		huh.NewConfirm().
			Title("Penalize missed days?").
			Value(&m.fb.neglection),
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) buildTodoForm() *huh.Form {
	fields := []huh.Field{
		m.activityField(),
		huh.NewInput().
			Title("Name override").
			Placeholder("Optional, defaults to the activity name").
			Value(&m.fb.name),
		huh.NewInput().
			Title("Due Date").
			Placeholder("YYYY-MM-DD").
			Value(&m.fb.dueDate).
			Validate(validateDate),
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) buildActivityForm() *huh.Form {
	statOpts := make([]huh.Option[string], len(model.ImprovableStats))
	for i, name := range model.ImprovableStats {
		statOpts[i] = huh.NewOption(name, name)
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Name").
			Placeholder("What is the behavior?").
			Value(&m.fb.name).
			Validate(validateRequired("Name")),
		huh.NewText().
			Title("Description").
			Placeholder("Optional details...").
			Value(&m.fb.description),
		huh.NewInput().
			Title("Icon").
			Placeholder("Optional icon name").
			Value(&m.fb.icon),
		huh.NewSelect[string]().
			Title("Type").
			Options(
				huh.NewOption("Positive (do more of this)", string(model.ActivityPositive)),
				huh.NewOption("Negative (do less of this)", string(model.ActivityNegative)),
			).
			Value(&m.fb.actType),
		huh.NewSelect[int]().
			Title("Difficulty").
			Options(
				huh.NewOption("1 - Trivial", 1),
				huh.NewOption("2 - Easy", 2),
				huh.NewOption("3 - Medium", 3),
				huh.NewOption("4 - Hard", 4),
				huh.NewOption("5 - Epic", 5),
			).
			Value(&m.fb.difficulty),
		huh.NewMultiSelect[string]().
			Title("Stats").
			Options(statOpts...).
			Limit(2).
			Value(&m.fb.stats),
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) activityField() huh.Field {
	opts := make([]huh.Option[string], 0, len(m.activities))
	for _, a := range m.activities {
		label := a.Name
		if a.Type == model.ActivityNegative {
			label += " (negative)"
		}
		opts = append(opts, huh.NewOption(label, a.ID))
	}
	return huh.NewSelect[string]().
		Title("Activity").
		Options(opts...).
		Value(&m.fb.activityID)
}

func (m *Model) validateCustomRule(s string) error {
	if m.fb.schedule != scheduleCustom {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("a custom schedule needs a rule")
	}
	if _, err := recur.Parse(s); err != nil {
		return fmt.Errorf("invalid recurrence rule")
	}
	return nil
}

func (m Model) handleSubmit() tea.Cmd {
	switch m.kind {
	case KindHabit:
		rule, err := m.scheduleRule()
		if err != nil {
			return func() tea.Msg { return CancelMsg{} }
		}
		habit := model.Habit{
			ID:         uuid.NewString(),
			ActivityID: m.fb.activityID,
			Neglection: m.fb.neglection,
			Rule:       rule,
			Name:       strings.TrimSpace(m.fb.name),
		}
		return func() tea.Msg { return HabitCreatedMsg{Habit: habit} }

	case KindTodo:
		due, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(m.fb.dueDate), time.Local)
		if err != nil {
			return func() tea.Msg { return CancelMsg{} }
		}
		todo := model.Todo{
			ID:         uuid.NewString(),
			ActivityID: m.fb.activityID,
			Due:        due,
			Name:       strings.TrimSpace(m.fb.name),
		}
		return func() tea.Msg { return TodoCreatedMsg{Todo: todo} }

	default:
		activity := model.Activity{
			ID:          uuid.NewString(),
			Name:        strings.TrimSpace(m.fb.name),
			Description: strings.TrimSpace(m.fb.description),
			Icon:        strings.TrimSpace(m.fb.icon),
			Stats:       m.fb.stats,
			Type:        model.ActivityType(m.fb.actType),
			Difficulty:  m.fb.difficulty,
		}
		return func() tea.Msg { return ActivityCreatedMsg{Activity: activity} }
	}
}

// scheduleRule maps the selected preset to a recurrence rule.
func (m Model) scheduleRule() (recur.Rule, error) {
	switch m.fb.schedule {
	case scheduleWeekdays:
		return recur.Parse("FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR")
	case scheduleWeekly:
		return recur.Parse("FREQ=WEEKLY")
	case scheduleCustom:
		return recur.Parse(strings.TrimSpace(m.fb.customRule))
	default:
		return recur.Parse("FREQ=DAILY")
	}
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("a due date is required")
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}
