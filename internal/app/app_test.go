package app

import (
	"path/filepath"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/grit/internal/clock"
	"github.com/abhisek/grit/internal/planner"
	"github.com/abhisek/grit/internal/store"
	"github.com/abhisek/grit/internal/study"
	"github.com/abhisek/grit/internal/timeline"
)

func newTestModel(t *testing.T) AppModel {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "grit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clk := clock.Fake(time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	return newAppModel(Options{
		Topics:   study.NewService(st, study.Config{Clock: clk}),
		Tasks:    planner.NewService(st, planner.Config{Clock: clk}),
		Timeline: timeline.NewRecorder(st.Repos().Timeline, clk),
	})
}

// step applies msg and runs any resulting command once.
func step(m AppModel, msg tea.Msg) AppModel {
	next, cmd := m.Update(msg)
	m = next.(AppModel)
	if cmd != nil {
		if out := cmd(); out != nil {
			next, _ = m.Update(out)
			m = next.(AppModel)
		}
	}
	return m
}

func TestApp_StartsOnToday(t *testing.T) {
	m := newTestModel(t)
	require.NotNil(t, m.Init())
	assert.Equal(t, 1, m.router.Depth())
	assert.Equal(t, "Today", m.router.Active().Title())
}

func TestApp_NavigatesAndPops(t *testing.T) {
	m := newTestModel(t)
	m = step(m, tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Equal(t, 100, m.width)

	m = step(m, tea.KeyPressMsg{Code: 't', Text: "t"})
	require.Equal(t, 2, m.router.Depth())
	assert.Equal(t, "Timeline", m.router.Active().Title())

	m = step(m, tea.KeyPressMsg{Code: tea.KeyEscape})
	assert.Equal(t, 1, m.router.Depth())

	m = step(m, tea.KeyPressMsg{Code: tea.KeyEscape})
	assert.Equal(t, 1, m.router.Depth(), "esc on the root screen is a no-op")

	m = step(m, tea.KeyPressMsg{Code: 'a', Text: "a"})
	assert.Equal(t, "Add task", m.router.Active().Title())
}

func TestApp_FooterUsesScreenHints(t *testing.T) {
	m := newTestModel(t)
	hints := m.footerHints(m.router.Active())
	require.NotEmpty(t, hints)
	assert.Equal(t, "Tab", hints[0].Key)
}
