package app

import (
	"context"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/grit/internal/router"
	"github.com/abhisek/grit/internal/screen"
	"github.com/abhisek/grit/internal/screens/addtask"
	"github.com/abhisek/grit/internal/screens/history"
	"github.com/abhisek/grit/internal/screens/today"
	"github.com/abhisek/grit/internal/ui/layout"
)

// Tasks is the planner surface used across screens.
type Tasks interface {
	today.Tasks
	addtask.Adder
	Today() string
}

// Options holds the services the screens need.
type Options struct {
	Topics   today.Topics
	Tasks    Tasks
	Timeline history.Source
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	width  int
	height int
}

// newAppModel creates a new AppModel with the Today board.
func newAppModel(opts Options) AppModel {
	newAddTask := func() screen.Screen {
		return addtask.New(opts.Tasks, opts.Tasks.Today())
	}
	board := today.New(today.Deps{
		Topics:     opts.Topics,
		Tasks:      opts.Tasks,
		NewAddTask: newAddTask,
		NewTimeline: func() screen.Screen {
			return history.New(opts.Timeline).WithAddTask(newAddTask)
		},
	})
	return AppModel{
		router: router.New(board),
	}
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title, status := "", ""
	if active != nil {
		title = active.Title()
	}
	if sp, ok := active.(screen.StatusProvider); ok {
		status = sp.Status()
	}
	header := layout.RenderHeader(title, status, m.width)

	footer := layout.RenderFooter(m.footerHints(active), m.width)

	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	content := m.router.View(m.width, contentHeight)
	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

func (m AppModel) footerHints(active screen.Screen) []layout.KeyHint {
	if kp, ok := active.(screen.KeyHintProvider); ok {
		return kp.KeyHints()
	}
	if m.router.Depth() > 1 {
		return []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
	return []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(newAppModel(opts), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
