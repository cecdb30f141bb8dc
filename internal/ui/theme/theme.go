package theme

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

// Color palette, muted with warm warnings.
var (
	Primary   = lipgloss.Color("#38BDF8") // Sky
	Secondary = lipgloss.Color("#A3E635") // Lime
	Accent    = lipgloss.Color("#FBBF24") // Amber
	Success   = lipgloss.Color("#4ADE80") // Green
	Warning   = lipgloss.Color("#FB923C") // Orange
	Error     = lipgloss.Color("#F87171") // Red
	Text      = lipgloss.Color("#E5E7EB") // Gray 200
	TextDim   = lipgloss.Color("#9CA3AF") // Gray 400
	BgDark    = lipgloss.Color("#111827") // Gray 900
	BgCard    = lipgloss.Color("#1F2937") // Gray 800
	Border    = lipgloss.Color("#374151") // Gray 700
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Section = lipgloss.NewStyle().
		Bold(true).
		Foreground(Accent)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// States
var (
	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Unselected = lipgloss.NewStyle().
			Foreground(Text)

	Done = lipgloss.NewStyle().
		Foreground(TextDim).
		Strikethrough(true)

	Failed = lipgloss.NewStyle().
		Foreground(Error)

	StatusOK = lipgloss.NewStyle().
			Foreground(Success)

	StatusErr = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)
)

// Components
var (
	ProgressFilled = lipgloss.NewStyle().
			Background(Secondary)

	ProgressEmpty = lipgloss.NewStyle().
			Background(Border)

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	PanelFocused = Panel.
			BorderForeground(Primary)
)

// DecayColor maps a decay state name to its display color.
func DecayColor(state string) color.Color {
	switch state {
	case "fresh":
		return Success
	case "due":
		return Accent
	case "overdue":
		return Warning
	case "critical":
		return Error
	default:
		return Text
	}
}
