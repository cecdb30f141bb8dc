package addtask

import (
	"context"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/grit/internal/planner"
	"github.com/abhisek/grit/internal/router"
)

type fakeAdder struct {
	got []planner.NewTask
	err error
}

func (f *fakeAdder) AddTask(_ context.Context, in planner.NewTask) (*planner.Task, error) {
	f.got = append(f.got, in)
	if f.err != nil {
		return nil, f.err
	}
	return &planner.Task{ID: "t1", Name: in.Name, Status: planner.StatusPending}, nil
}

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func typeText(s *Screen, text string) {
	for _, r := range text {
		s.Update(keyPress(r))
	}
}

func TestNew_PrefillsDate(t *testing.T) {
	s := New(&fakeAdder{}, "2024-01-10")
	s.Init()

	in, err := s.Input()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", in.ScheduledDate)
	assert.Equal(t, 0, in.Priority)
	assert.True(t, s.fields[fieldName].Model.Focused())
}

func TestTyping_FillsFocusedField(t *testing.T) {
	s := New(&fakeAdder{}, "2024-01-10")
	s.Init()

	typeText(s, "Run")
	s.Update(tea.KeyPressMsg{Code: tea.KeyTab})
	typeText(s, "4x5")

	in, err := s.Input()
	require.NoError(t, err)
	assert.Equal(t, "Run", in.Name)
	assert.Equal(t, 45, in.TimeEstimateMinutes, "numeric fields drop letters")
}

func TestFocusWraps(t *testing.T) {
	s := New(&fakeAdder{}, "2024-01-10")
	s.Init()

	s.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	assert.Equal(t, fieldPriority, s.focus)
	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	assert.Equal(t, fieldName, s.focus)
}

func TestSubmit_PopsAndRefreshes(t *testing.T) {
	adder := &fakeAdder{}
	s := New(adder, "2024-01-10")
	s.Init()
	s.fields[fieldName].SetValue("Run")
	s.fields[fieldEstimate].SetValue("30")
	s.fields[fieldTime].SetValue("07:15")
	s.fields[fieldPriority].SetValue("2")

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, s.saving)

	_, cmd = s.Update(cmd())
	require.NotNil(t, cmd, "success should pop the form")
	assert.False(t, s.saving)

	require.Len(t, adder.got, 1)
	assert.Equal(t, planner.NewTask{
		Name:                "Run",
		TimeEstimateMinutes: 30,
		ScheduledDate:       "2024-01-10",
		ScheduledTime:       "07:15",
		Priority:            2,
	}, adder.got[0])
}

func TestSubmit_ValidationErrorMarksField(t *testing.T) {
	adder := &fakeAdder{err: &planner.ValidationError{Field: "time", Reason: "not HH:MM"}}
	s := New(adder, "2024-01-10")
	s.Init()
	s.fields[fieldName].SetValue("Run")
	s.fields[fieldEstimate].SetValue("30")
	s.fields[fieldTime].SetValue("7pm")

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	_, cmd = s.Update(cmd())
	assert.Nil(t, cmd, "form stays open on error")

	assert.Empty(t, s.err)
	assert.Contains(t, s.View(80, 30), "not HH:MM")
}

func TestSubmit_OtherErrorShownBelowForm(t *testing.T) {
	adder := &fakeAdder{err: assert.AnError}
	s := New(adder, "2024-01-10")
	s.Init()
	s.fields[fieldName].SetValue("Run")
	s.fields[fieldEstimate].SetValue("30")

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	s.Update(cmd())
	assert.Equal(t, assert.AnError.Error(), s.err)
}

func TestEscPops(t *testing.T) {
	s := New(&fakeAdder{}, "2024-01-10")
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	require.NotNil(t, cmd)
	_, ok := cmd().(router.PopScreenMsg)
	assert.True(t, ok)
}
