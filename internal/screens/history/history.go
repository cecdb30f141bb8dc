// Package history shows the timeline: study sessions, misses, skipped
// tasks and journal entries, newest first.
package history

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/grit/internal/router"
	"github.com/abhisek/grit/internal/screen"
	"github.com/abhisek/grit/internal/timeline"
	"github.com/abhisek/grit/internal/ui/layout"
	"github.com/abhisek/grit/internal/ui/theme"
)

// PageSize is how many entries the screen loads.
const PageSize = 200

// Source reads recent timeline entries.
type Source interface {
	Recent(ctx context.Context, limit int, types ...timeline.EntryType) ([]timeline.Entry, error)
}

type historyLoadedMsg struct {
	Entries []timeline.Entry
	Err     error
}

// HistoryScreen lists timeline entries with an optional type filter.
type HistoryScreen struct {
	source   Source
	entries  []timeline.Entry
	filter   int // 0 is all, otherwise index+1 into AllEntryTypes
	selected int
	expanded map[string]bool
	loaded   bool
	errMsg   string

	newAddTask func() screen.Screen
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)
var _ screen.StatusProvider = (*HistoryScreen)(nil)

// New creates a new HistoryScreen.
func New(source Source) *HistoryScreen {
	return &HistoryScreen{
		source:   source,
		expanded: make(map[string]bool),
	}
}

// WithAddTask lets "a" swap the timeline for the add-task form, so saving the
// form lands back on the screen below the timeline.
func (s *HistoryScreen) WithAddTask(fn func() screen.Screen) *HistoryScreen {
	s.newAddTask = fn
	return s
}

func (s *HistoryScreen) Init() tea.Cmd {
	filter := s.filterType()
	return func() tea.Msg {
		var types []timeline.EntryType
		if filter != "" {
			types = append(types, filter)
		}
		entries, err := s.source.Recent(context.Background(), PageSize, types...)
		return historyLoadedMsg{Entries: entries, Err: err}
	}
}

func (s *HistoryScreen) Title() string {
	return "Timeline"
}

// Status names the active filter.
func (s *HistoryScreen) Status() string {
	if f := s.filterType(); f != "" {
		return "filter: " + f.Label()
	}
	return "filter: all"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Details"},
		{Key: "f", Description: "Filter"},
	}
	if s.newAddTask != nil {
		hints = append(hints, layout.KeyHint{Key: "a", Description: "Add task"})
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
}

func (s *HistoryScreen) filterType() timeline.EntryType {
	if s.filter == 0 {
		return ""
	}
	return timeline.AllEntryTypes()[s.filter-1]
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		s.loaded = true
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.errMsg = ""
		s.entries = msg.Entries
		s.selected = max(min(s.selected, len(s.entries)-1), 0)
		return s, nil

	case screen.RefreshMsg:
		return s, s.Init()

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			return s, nil
		case "down", "j":
			if s.selected < len(s.entries)-1 {
				s.selected++
			}
			return s, nil
		case "enter":
			if len(s.entries) > 0 {
				id := s.entries[s.selected].ID
				s.expanded[id] = !s.expanded[id]
			}
			return s, nil
		case "f":
			s.filter = (s.filter + 1) % (len(timeline.AllEntryTypes()) + 1)
			s.selected = 0
			return s, s.Init()
		case "a":
			if s.newAddTask == nil {
				return s, nil
			}
			next := s.newAddTask()
			return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
		}
	}
	return s, nil
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Foreground(theme.Error).
			Render(fmt.Sprintf("\n  Error: %s", s.errMsg))
	}
	if !s.loaded {
		return theme.Hint.Render("\n  Loading timeline...")
	}
	if len(s.entries) == 0 {
		return theme.Hint.Render("\n  Nothing recorded yet.")
	}

	// Keep the selection on screen.
	start := 0
	if height > 2 && s.selected >= height-2 {
		start = s.selected - (height - 3)
	}

	var b strings.Builder
	b.WriteString("\n")
	lastDay := ""
	for i := start; i < len(s.entries); i++ {
		e := s.entries[i]
		day := e.CreatedAt.Local().Format("Mon Jan 02")
		if day != lastDay {
			b.WriteString(" " + theme.Section.Render(day) + "\n")
			lastDay = day
		}

		prefix := "  "
		title := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			prefix = "> "
			title = title.Foreground(theme.Primary).Bold(true)
		}
		kind := lipgloss.NewStyle().Foreground(typeColor(e.Type)).Render(fmt.Sprintf("%-8s", e.Type.Label()))
		avoided := ""
		if e.WasAvoided {
			avoided = theme.Failed.Render(" avoided")
		}
		fmt.Fprintf(&b, "%s%s  %s  %s%s\n",
			prefix, e.CreatedAt.Local().Format("15:04"), kind, title.Render(e.Title), avoided)

		if s.expanded[e.ID] && e.Description != "" {
			b.WriteString(theme.Hint.Render("      "+e.Description) + "\n")
		}
	}
	return b.String()
}

func typeColor(t timeline.EntryType) color.Color {
	switch t {
	case timeline.EntryStudySession:
		return theme.Success
	case timeline.EntryMissedRevision:
		return theme.Warning
	case timeline.EntryPlannerFailure:
		return theme.Error
	case timeline.EntryThought:
		return theme.Primary
	case timeline.EntryProblem:
		return theme.Accent
	default:
		return theme.Text
	}
}
