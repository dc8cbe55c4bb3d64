// Package statsview renders the gamification panel: level, XP progress,
// currency, and the six stat bars with population percentiles.
package statsview

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tvu/habitflow/internal/engine"
	"github.com/tvu/habitflow/internal/model"
	"github.com/tvu/habitflow/internal/theme"
)

const barWidth = 30

// Model is the Bubble Tea model for the stats panel.
type Model struct {
	stats  model.Stats
	width  int
	height int
}

// New creates a stats panel.
func New(width, height int) Model {
	return Model{width: width, height: height}
}

// SetStats replaces the rendered stats snapshot.
func (m *Model) SetStats(stats model.Stats) {
	m.stats = stats
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Update is a no-op; the panel is display-only.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the stats panel.
func (m Model) View() string {
	var b strings.Builder

	threshold := engine.NextLevelThreshold(m.stats.Level)
	b.WriteString(theme.XPStyle.Render(
		fmt.Sprintf("Level %d  —  %d/%d XP", m.stats.Level, m.stats.XP, threshold)))
	b.WriteString("\n")
	b.WriteString(renderBar(float64(m.stats.XP), float64(threshold), theme.ColorMagenta))
	b.WriteString("\n\n")

	b.WriteString(theme.GoldStyle.Render(fmt.Sprintf("Gold %d", m.stats.Gold)))
	if m.stats.Gems > 0 {
		b.WriteString("   ")
		b.WriteString(theme.XPStyle.Render(fmt.Sprintf("Gems %d", m.stats.Gems)))
	}
	b.WriteString("\n\n")

	for _, name := range model.ImprovableStats {
		value := m.stats.Stat(name)
		percentile := engine.StatPercentile(value)

		label := fmt.Sprintf("%-10s", name)
		readout := theme.StatStyle(value).Render(fmt.Sprintf("%7.3f", value))
		pct := theme.HelpStyle.Render(fmt.Sprintf("top %.0f%%", 100-percentile))

		b.WriteString(label)
		b.WriteString(" ")
		b.WriteString(renderBar(value, model.StatMaxValue, theme.ColorGreen))
		b.WriteString(" ")
		b.WriteString(readout)
		b.WriteString("  ")
		b.WriteString(pct)
		b.WriteString("\n")
	}

	return theme.PanelStyle.Render(b.String())
}

// renderBar draws a fixed-width progress bar for value out of max.
func renderBar(value, max float64, color lipgloss.AdaptiveColor) string {
	if max <= 0 {
		max = 1
	}
	filled := int(value / max * barWidth)
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}

	full := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	empty := lipgloss.NewStyle().Foreground(theme.ColorSubtle).Render(strings.Repeat("░", barWidth-filled))
	return full + empty
}
