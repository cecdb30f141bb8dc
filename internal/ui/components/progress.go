package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/grit/internal/ui/theme"
)

// IntegrityBar draws a topic's integrity percentage as a short bar.
type IntegrityBar struct {
	Percent int
	Width   int
}

// View renders the bar followed by the percentage.
func (b IntegrityBar) View() string {
	width := max(b.Width, 4)
	pct := min(max(b.Percent, 0), 100)
	filled := width * pct / 100

	fill := theme.ProgressFilled
	switch {
	case pct < 50:
		fill = fill.Background(theme.Error)
	case pct < 80:
		fill = fill.Background(theme.Warning)
	}

	return fill.Render(strings.Repeat(" ", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", width-filled)) +
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf(" %3d%%", pct))
}
