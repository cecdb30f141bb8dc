// Package today implements the Today board: due reviews above, the day's
// agenda below.
package today

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/grit/internal/planner"
	"github.com/abhisek/grit/internal/router"
	"github.com/abhisek/grit/internal/screen"
	"github.com/abhisek/grit/internal/spacedrep"
	"github.com/abhisek/grit/internal/study"
	"github.com/abhisek/grit/internal/ui/components"
	"github.com/abhisek/grit/internal/ui/layout"
	"github.com/abhisek/grit/internal/ui/theme"
)

// Topics is the study surface the board drives.
type Topics interface {
	DueTopics(ctx context.Context) ([]study.Topic, error)
	Review(ctx context.Context, ref string, fb spacedrep.Feedback) (*study.ReviewResult, error)
	ReviewWithConfidence(ctx context.Context, ref string, confidence int) (*study.ReviewResult, error)
	MarkMissed(ctx context.Context, ref string) (*study.Topic, error)
}

// Tasks is the planner surface the board drives.
type Tasks interface {
	Agenda(ctx context.Context, date string) ([]planner.Task, error)
	StartTask(ctx context.Context, ref string) (*planner.Task, error)
	CompleteTask(ctx context.Context, ref string) (*planner.Task, error)
	SkipTask(ctx context.Context, ref string) (*planner.SkipResult, error)
	UndoTask(ctx context.Context, ref string) (*planner.UndoResult, error)
	DeleteTask(ctx context.Context, ref string) (*planner.Task, error)
}

// Deps wires the board to services and the screens it opens.
type Deps struct {
	Topics      Topics
	Tasks       Tasks
	NewAddTask  func() screen.Screen
	NewTimeline func() screen.Screen
}

type pane int

const (
	paneReviews pane = iota
	paneAgenda
)

// confidenceForKey maps the 1-4 keys onto a confidence score for topics on
// the confidence model.
var confidenceForKey = map[string]int{"1": 25, "2": 50, "3": 75, "4": 100}

var feedbackForKey = map[string]spacedrep.Feedback{
	"1": spacedrep.FeedbackAgain,
	"2": spacedrep.FeedbackHard,
	"3": spacedrep.FeedbackGood,
	"4": spacedrep.FeedbackEasy,
}

type loadedMsg struct {
	topics []study.Topic
	tasks  []planner.Task
	err    error
}

type actionMsg struct {
	status string
	err    error
}

// Screen is the Today board.
type Screen struct {
	deps    Deps
	topics  []study.Topic
	tasks   []planner.Task
	focus   pane
	cursor  [2]int
	loaded  bool
	status  string
	failure bool
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.StatusProvider = (*Screen)(nil)

// New creates the board.
func New(deps Deps) *Screen {
	return &Screen{deps: deps}
}

func (s *Screen) Init() tea.Cmd {
	return s.load
}

func (s *Screen) load() tea.Msg {
	ctx := context.Background()
	topics, err := s.deps.Topics.DueTopics(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	tasks, err := s.deps.Tasks.Agenda(ctx, "")
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{topics: topics, tasks: tasks}
}

func (s *Screen) Title() string {
	return "Today"
}

// Status summarizes what is left for the header.
func (s *Screen) Status() string {
	open, cost := 0, 0
	for _, t := range s.tasks {
		if t.Status == planner.StatusPending || t.Status == planner.StatusInProgress {
			open++
			cost += t.DecayCost
		}
	}
	return fmt.Sprintf("%d due  %d open  cost %d", len(s.topics), open, cost)
}

func (s *Screen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Tab", Description: "Switch"}}
	if s.focus == paneReviews {
		hints = append(hints,
			layout.KeyHint{Key: "1-4", Description: "Again/Hard/Good/Easy"},
			layout.KeyHint{Key: "m", Description: "Missed"},
		)
	} else {
		hints = append(hints,
			layout.KeyHint{Key: "s", Description: "Start"},
			layout.KeyHint{Key: "c", Description: "Done"},
			layout.KeyHint{Key: "x", Description: "Skip"},
			layout.KeyHint{Key: "u", Description: "Undo"},
			layout.KeyHint{Key: "d", Description: "Delete"},
		)
	}
	return append(hints,
		layout.KeyHint{Key: "a", Description: "Add"},
		layout.KeyHint{Key: "t", Description: "Timeline"},
		layout.KeyHint{Key: "q", Description: "Quit"},
	)
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.loaded = true
		if msg.err != nil {
			s.setStatus("", msg.err)
			return s, nil
		}
		s.topics, s.tasks = msg.topics, msg.tasks
		s.clampCursors()
		return s, nil

	case actionMsg:
		s.setStatus(msg.status, msg.err)
		return s, s.load

	case screen.RefreshMsg:
		return s, s.load

	case tea.KeyMsg:
		return s, s.handleKey(msg.String())
	}
	return s, nil
}

func (s *Screen) handleKey(key string) tea.Cmd {
	switch key {
	case "q":
		return tea.Quit
	case "tab":
		s.focus = 1 - s.focus
		return nil
	case "up", "k":
		if s.cursor[s.focus] > 0 {
			s.cursor[s.focus]--
		}
		return nil
	case "down", "j":
		if s.cursor[s.focus] < s.length(s.focus)-1 {
			s.cursor[s.focus]++
		}
		return nil
	case "r":
		return s.load
	case "a":
		if s.deps.NewAddTask == nil {
			return nil
		}
		return func() tea.Msg { return router.PushScreenMsg{Screen: s.deps.NewAddTask()} }
	case "t":
		if s.deps.NewTimeline == nil {
			return nil
		}
		return func() tea.Msg { return router.PushScreenMsg{Screen: s.deps.NewTimeline()} }
	}

	if s.focus == paneReviews {
		return s.reviewKey(key)
	}
	return s.agendaKey(key)
}

func (s *Screen) reviewKey(key string) tea.Cmd {
	topic, ok := s.selectedTopic()
	if !ok {
		return nil
	}
	ref := topic.ID

	if key == "m" {
		return s.act(func(ctx context.Context) (string, error) {
			t, err := s.deps.Topics.MarkMissed(ctx, ref)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Missed %s. Integrity %d%%.", t.Name, t.Integrity), nil
		})
	}

	if topic.Model == spacedrep.ModelConfidence {
		conf, ok := confidenceForKey[key]
		if !ok {
			return nil
		}
		return s.act(func(ctx context.Context) (string, error) {
			res, err := s.deps.Topics.ReviewWithConfidence(ctx, ref, conf)
			if err != nil {
				return "", err
			}
			return reviewStatus(res), nil
		})
	}

	fb, ok := feedbackForKey[key]
	if !ok {
		return nil
	}
	return s.act(func(ctx context.Context) (string, error) {
		res, err := s.deps.Topics.Review(ctx, ref, fb)
		if err != nil {
			return "", err
		}
		return reviewStatus(res), nil
	})
}

func reviewStatus(res *study.ReviewResult) string {
	msg := fmt.Sprintf("%s: level %d, next in %d day(s).", res.Topic.Name, res.Topic.Level, res.IntervalDays)
	switch {
	case res.BecameMastered:
		msg += " Mastered!"
	case res.LostMastery:
		msg += " Mastery lost."
	}
	return msg
}

func (s *Screen) agendaKey(key string) tea.Cmd {
	task, ok := s.selectedTask()
	if !ok {
		return nil
	}
	ref := task.ID

	switch key {
	case "s":
		return s.act(func(ctx context.Context) (string, error) {
			t, err := s.deps.Tasks.StartTask(ctx, ref)
			if err != nil {
				return "", err
			}
			return "Started " + t.Name + ".", nil
		})
	case "c":
		return s.act(func(ctx context.Context) (string, error) {
			t, err := s.deps.Tasks.CompleteTask(ctx, ref)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Completed %s (cost %d).", t.Name, t.DecayCost), nil
		})
	case "x":
		return s.act(func(ctx context.Context) (string, error) {
			res, err := s.deps.Tasks.SkipTask(ctx, ref)
			if err != nil {
				return "", err
			}
			if res.Recovery == nil {
				return "Skipped " + res.Task.Name + ".", nil
			}
			return fmt.Sprintf("Skipped %s. Recovery on %s costs %d (%d min).",
				res.Task.Name, res.Recovery.ScheduledDate, res.Recovery.DecayCost, res.Recovery.TimeEstimateMinutes), nil
		})
	case "u":
		return s.act(func(ctx context.Context) (string, error) {
			res, err := s.deps.Tasks.UndoTask(ctx, ref)
			if err != nil {
				return "", err
			}
			if !res.Changed {
				return res.Task.Name + " is already pending.", nil
			}
			return fmt.Sprintf("Undid %s; removed %d recovery task(s).", res.Task.Name, len(res.RemovedRecovery)), nil
		})
	case "d":
		return s.act(func(ctx context.Context) (string, error) {
			t, err := s.deps.Tasks.DeleteTask(ctx, ref)
			if err != nil {
				return "", err
			}
			return "Deleted " + t.Name + ".", nil
		})
	}
	return nil
}

func (s *Screen) act(fn func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		status, err := fn(context.Background())
		return actionMsg{status: status, err: err}
	}
}

func (s *Screen) setStatus(status string, err error) {
	s.failure = err != nil
	if err != nil {
		s.status = "Error: " + err.Error()
		return
	}
	s.status = status
}

func (s *Screen) length(p pane) int {
	if p == paneReviews {
		return len(s.topics)
	}
	return len(s.tasks)
}

func (s *Screen) clampCursors() {
	for _, p := range []pane{paneReviews, paneAgenda} {
		s.cursor[p] = max(min(s.cursor[p], s.length(p)-1), 0)
	}
}

func (s *Screen) selectedTopic() (study.Topic, bool) {
	if len(s.topics) == 0 {
		return study.Topic{}, false
	}
	return s.topics[s.cursor[paneReviews]], true
}

func (s *Screen) selectedTask() (planner.Task, bool) {
	if len(s.tasks) == 0 {
		return planner.Task{}, false
	}
	return s.tasks[s.cursor[paneAgenda]], true
}

func (s *Screen) View(width, height int) string {
	if !s.loaded {
		return theme.Hint.Render("\n  Loading...")
	}

	var b strings.Builder
	b.WriteString(s.panel(paneReviews, "Reviews due", s.reviewLines(width-6), width))
	b.WriteString("\n")
	b.WriteString(s.panel(paneAgenda, "Agenda", s.agendaLines(), width))
	if s.status != "" {
		style := theme.StatusOK
		if s.failure {
			style = theme.StatusErr
		}
		b.WriteString("\n " + style.Render(s.status))
	}
	return b.String()
}

func (s *Screen) panel(p pane, title string, lines []string, width int) string {
	style := theme.Panel
	if s.focus == p {
		style = theme.PanelFocused
	}
	body := theme.Section.Render(title) + "\n" + strings.Join(lines, "\n")
	return style.Width(width).Render(body)
}

func (s *Screen) reviewLines(width int) []string {
	if len(s.topics) == 0 {
		return []string{theme.Hint.Render("Nothing due. Nice.")}
	}
	barWidth := 10
	if layout.IsCompactWidth(width) {
		barWidth = 6
	}
	lines := make([]string, len(s.topics))
	for i, t := range s.topics {
		prefix := "  "
		name := theme.Unselected
		if s.focus == paneReviews && i == s.cursor[paneReviews] {
			prefix = "> "
			name = theme.Selected
		}
		decay := lipgloss.NewStyle().Foreground(theme.DecayColor(string(t.Decay))).Render(fmt.Sprintf("%-8s", t.Decay))
		bar := components.IntegrityBar{Percent: t.Integrity, Width: barWidth}.View()
		lines[i] = fmt.Sprintf("%s%s  L%d  %s  %s", prefix, decay, t.Level, bar, name.Render(t.Name))
	}
	return lines
}

func (s *Screen) agendaLines() []string {
	if len(s.tasks) == 0 {
		return []string{theme.Hint.Render("No tasks today. Press a to add one.")}
	}
	lines := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		prefix := "  "
		style := theme.Unselected
		if s.focus == paneAgenda && i == s.cursor[paneAgenda] {
			prefix = "> "
			style = theme.Selected
		}
		switch t.Status {
		case planner.StatusCompleted:
			style = theme.Done
		case planner.StatusSkipped:
			style = theme.Failed
		}
		mark := statusMark(t.Status)
		rec := ""
		if t.IsRecovery {
			rec = " ↻"
		}
		line := fmt.Sprintf("%s %s %-3s %s%s  %d min  cost %d",
			mark, t.TimeLabel(), t.PriorityLabel(), t.Name, rec, t.TimeEstimateMinutes, t.DecayCost)
		lines[i] = prefix + style.Render(line)
	}
	return lines
}

func statusMark(st planner.Status) string {
	switch st {
	case planner.StatusInProgress:
		return "[~]"
	case planner.StatusCompleted:
		return "[x]"
	case planner.StatusSkipped:
		return "[-]"
	default:
		return "[ ]"
	}
}
