// Package addtask is the form for scheduling a new planner task.
package addtask

import (
	"context"
	"errors"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/grit/internal/planner"
	"github.com/abhisek/grit/internal/router"
	"github.com/abhisek/grit/internal/screen"
	"github.com/abhisek/grit/internal/ui/components"
	"github.com/abhisek/grit/internal/ui/layout"
	"github.com/abhisek/grit/internal/ui/theme"
)

// Adder creates tasks.
type Adder interface {
	AddTask(ctx context.Context, in planner.NewTask) (*planner.Task, error)
}

// Field order.
const (
	fieldName = iota
	fieldEstimate
	fieldDate
	fieldTime
	fieldPriority
	fieldCount
)

const labelWidth = 12

type addedMsg struct {
	task *planner.Task
	err  error
}

// Screen is the add-task form.
type Screen struct {
	adder  Adder
	fields [fieldCount]components.Field
	focus  int
	err    string
	saving bool
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates the form. today pre-fills the date field.
func New(adder Adder, today string) *Screen {
	s := &Screen{adder: adder}
	s.fields[fieldName] = components.NewField("Name", "what needs doing", false, planner.MaxNameLength)
	s.fields[fieldEstimate] = components.NewField("Minutes", "30", true, 4)
	s.fields[fieldDate] = components.NewField("Date", "YYYY-MM-DD", false, 10)
	s.fields[fieldDate].SetValue(today)
	s.fields[fieldTime] = components.NewField("Time", "HH:MM (optional)", false, 5)
	s.fields[fieldPriority] = components.NewField("Priority", "1-3 (optional)", true, 1)
	return s
}

func (s *Screen) Init() tea.Cmd {
	return s.fields[s.focus].Focus()
}

func (s *Screen) Title() string {
	return "Add task"
}

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Tab", Description: "Next"},
		{Key: "Enter", Description: "Save"},
		{Key: "Esc", Description: "Cancel"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case addedMsg:
		s.saving = false
		if msg.err != nil {
			s.showError(msg.err)
			return s, nil
		}
		return s, router.PopAndRefresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "tab", "down":
			return s, s.move(1)
		case "shift+tab", "up":
			return s, s.move(-1)
		case "enter":
			return s, s.submit()
		}
	}

	var cmd tea.Cmd
	s.fields[s.focus], cmd = s.fields[s.focus].Update(msg)
	return s, cmd
}

func (s *Screen) move(delta int) tea.Cmd {
	s.fields[s.focus].Blur()
	s.focus = (s.focus + delta + fieldCount) % fieldCount
	return s.fields[s.focus].Focus()
}

// Input returns the form contents as a NewTask.
func (s *Screen) Input() (planner.NewTask, error) {
	est, err := s.fields[fieldEstimate].NumericValue()
	if err != nil {
		return planner.NewTask{}, &planner.ValidationError{Field: "estimate", Reason: "must be a number"}
	}
	prio, err := s.fields[fieldPriority].NumericValue()
	if err != nil {
		return planner.NewTask{}, &planner.ValidationError{Field: "priority", Reason: "must be a number"}
	}
	return planner.NewTask{
		Name:                strings.TrimSpace(s.fields[fieldName].Value()),
		TimeEstimateMinutes: est,
		ScheduledDate:       strings.TrimSpace(s.fields[fieldDate].Value()),
		ScheduledTime:       strings.TrimSpace(s.fields[fieldTime].Value()),
		Priority:            prio,
	}, nil
}

func (s *Screen) submit() tea.Cmd {
	if s.saving {
		return nil
	}
	in, err := s.Input()
	if err != nil {
		s.showError(err)
		return nil
	}
	s.saving = true
	return func() tea.Msg {
		task, err := s.adder.AddTask(context.Background(), in)
		return addedMsg{task: task, err: err}
	}
}

func (s *Screen) showError(err error) {
	for i := range s.fields {
		s.fields[i].SetError("")
	}
	s.err = err.Error()

	var ve *planner.ValidationError
	if !errors.As(err, &ve) {
		return
	}
	idx := map[string]int{
		"name":     fieldName,
		"estimate": fieldEstimate,
		"date":     fieldDate,
		"time":     fieldTime,
		"priority": fieldPriority,
	}
	if i, ok := idx[ve.Field]; ok {
		s.fields[i].SetError(ve.Reason)
		s.err = ""
	}
}

func (s *Screen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	for i := range s.fields {
		b.WriteString("  " + s.fields[i].View(labelWidth) + "\n\n")
	}
	if s.err != "" {
		b.WriteString("  " + theme.StatusErr.Render(s.err) + "\n")
	}
	if s.saving {
		b.WriteString("  " + theme.Hint.Render("Saving...") + "\n")
	}
	return theme.Panel.Width(min(width, 72)).Render(b.String())
}
