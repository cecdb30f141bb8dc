package reminder

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/grit/internal/clock"
	"github.com/abhisek/grit/internal/planner"
	"github.com/abhisek/grit/internal/spacedrep"
	"github.com/abhisek/grit/internal/study"
)

type fakeTopics struct {
	swept  []study.Topic
	due    []study.Topic
	err    error
	sweeps int
}

func (f *fakeTopics) SweepMissed(context.Context) ([]study.Topic, error) {
	f.sweeps++
	return f.swept, f.err
}

func (f *fakeTopics) DueTopics(context.Context) ([]study.Topic, error) {
	return f.due, nil
}

type fakeTasks struct {
	agenda []planner.Task
	date   string
}

func (f *fakeTasks) Agenda(_ context.Context, date string) ([]planner.Task, error) {
	f.date = date
	return f.agenda, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Reminder
	ch   chan Reminder
}

func (n *recordingNotifier) Notify(_ context.Context, r Reminder) error {
	n.mu.Lock()
	n.sent = append(n.sent, r)
	n.mu.Unlock()
	if n.ch != nil {
		n.ch <- r
	}
	return nil
}

func newService(topics *fakeTopics, tasks *fakeTasks, n Notifier, at time.Time) *Service {
	return NewService(topics, tasks, n, Config{
		StartHour: 8,
		EndHour:   22,
		Location:  time.UTC,
		Clock:     clock.Fake(at),
	})
}

func TestCheck_NotifiesWithinActiveHours(t *testing.T) {
	topics := &fakeTopics{
		due: []study.Topic{{Name: "Graphs", Decay: spacedrep.DecayDue}},
	}
	tasks := &fakeTasks{agenda: []planner.Task{
		{Name: "Run", Status: planner.StatusPending, TimeEstimateMinutes: 30, DecayCost: 1},
		{Name: "Read", Status: planner.StatusCompleted},
		{Name: "Write", Status: planner.StatusInProgress},
		{Name: "Call", Status: planner.StatusSkipped},
	}}
	n := &recordingNotifier{}
	svc := newService(topics, tasks, n, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))

	r, sent, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, 1, topics.sweeps)
	assert.Equal(t, "", tasks.date, "agenda is asked for today")
	assert.Len(t, r.DueTopics, 1)
	require.Len(t, r.PendingTasks, 2)
	assert.Equal(t, "Run", r.PendingTasks[0].Name)
	assert.Equal(t, "Write", r.PendingTasks[1].Name)
	assert.Len(t, n.sent, 1)
}

func TestCheck_OutsideActiveHours(t *testing.T) {
	topics := &fakeTopics{due: []study.Topic{{Name: "Graphs"}}}
	n := &recordingNotifier{}
	svc := newService(topics, &fakeTasks{}, n, time.Date(2024, 1, 10, 23, 30, 0, 0, time.UTC))

	_, sent, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Zero(t, topics.sweeps, "no sweep outside active hours")
	assert.Empty(t, n.sent)
}

func TestCheck_NothingToSay(t *testing.T) {
	n := &recordingNotifier{}
	svc := newService(&fakeTopics{}, &fakeTasks{}, n, time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))

	r, sent, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, sent)
	assert.True(t, r.Empty())
	assert.Empty(t, n.sent)
}

func TestCheck_SweepError(t *testing.T) {
	boom := errors.New("boom")
	svc := newService(&fakeTopics{err: boom}, &fakeTasks{}, &recordingNotifier{}, time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))
	_, _, err := svc.Check(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestInActiveHours(t *testing.T) {
	tests := []struct {
		hour, start, end int
		want             bool
	}{
		{8, 8, 22, true},
		{22, 8, 22, true},
		{7, 8, 22, false},
		{23, 8, 22, false},
		{23, 22, 6, true},
		{3, 22, 6, true},
		{12, 22, 6, false},
		{5, 5, 5, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InActiveHours(tt.hour, tt.start, tt.end), "hour %d in %d-%d", tt.hour, tt.start, tt.end)
	}
}

func TestStart_RunsImmediately(t *testing.T) {
	topics := &fakeTopics{due: []study.Topic{{Name: "Graphs"}}}
	n := &recordingNotifier{ch: make(chan Reminder, 1)}
	svc := newService(topics, &fakeTasks{}, n, time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()
	assert.Error(t, svc.Start(context.Background()), "double start")

	select {
	case r := <-n.ch:
		assert.Len(t, r.DueTopics, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("reminder never fired")
	}
}

func TestStop_WithoutStart(t *testing.T) {
	svc := newService(&fakeTopics{}, &fakeTasks{}, &recordingNotifier{}, time.Now())
	svc.Stop()
}

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	tm := "09:30"
	r := Reminder{
		At:        time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		Swept:     []study.Topic{{Name: "Trees", Integrity: 85}},
		DueTopics: []study.Topic{{Name: "Graphs", Decay: spacedrep.DecayOverdue}},
		PendingTasks: []planner.Task{
			{Name: "Run", ScheduledTime: &tm, TimeEstimateMinutes: 38, DecayCost: 3},
		},
	}
	require.NoError(t, NewWriterNotifier(&buf).Notify(context.Background(), r))

	out := buf.String()
	assert.Contains(t, out, "[2024-01-10 09:00] grit reminder")
	assert.Contains(t, out, "Trees (integrity 85%)")
	assert.Contains(t, out, "Graphs [overdue]")
	assert.Contains(t, out, "09:30 Run (38 min, cost 3)")
}
