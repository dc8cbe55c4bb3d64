package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
	ColorGold    = lipgloss.AdaptiveColor{Dark: "#FFD700", Light: "#B7791F"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps bordered content panels such as the stats pane.
var PanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// CompletedStyle renders completed habits and todos.
var CompletedStyle = lipgloss.NewStyle().
	Foreground(ColorGreen).
	Strikethrough(true)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// StreakStyle renders streak badges next to habit names.
var StreakStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorOrange)

// GoldStyle renders the gold balance.
var GoldStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGold)

// XPStyle renders the XP / level progress readout.
var XPStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorMagenta)

// RewardStyle renders transient reward feedback in the status bar.
var RewardStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGreen)

// PenaltyStyle renders transient penalty feedback in the status bar.
var PenaltyStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// DifficultyStyle returns a color-coded style for the given 1..5 difficulty.
func DifficultyStyle(difficulty int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch difficulty {
	case 1:
		return base.Foreground(ColorGray)
	case 2:
		return base.Foreground(ColorBlue)
	case 3:
		return base.Foreground(ColorYellow)
	case 4:
		return base.Foreground(ColorOrange)
	case 5:
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}

// StatStyle returns a color-coded style for a stat value in its 1..100 range.
func StatStyle(value float64) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch {
	case value >= 75:
		return base.Foreground(ColorGreen)
	case value >= 50:
		return base.Foreground(ColorYellow)
	case value >= 25:
		return base.Foreground(ColorOrange)
	default:
		return base.Foreground(ColorRed)
	}
}
