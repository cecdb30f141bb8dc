// Package reminder periodically sweeps missed revisions and nudges the
// user about due reviews and unfinished tasks.
package reminder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/abhisek/grit/internal/clock"
	"github.com/abhisek/grit/internal/planner"
	"github.com/abhisek/grit/internal/study"
)

// Default active window, inclusive, local hours.
const (
	DefaultStartHour = 8
	DefaultEndHour   = 22
)

// Topics is the study side of a reminder check.
type Topics interface {
	SweepMissed(ctx context.Context) ([]study.Topic, error)
	DueTopics(ctx context.Context) ([]study.Topic, error)
}

// Tasks is the planner side of a reminder check.
type Tasks interface {
	Agenda(ctx context.Context, date string) ([]planner.Task, error)
}

// Notifier delivers a reminder.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// Reminder is what one check found.
type Reminder struct {
	At           time.Time
	Swept        []study.Topic
	DueTopics    []study.Topic
	PendingTasks []planner.Task
}

// Empty reports whether there is nothing to tell the user.
func (r Reminder) Empty() bool {
	return len(r.Swept) == 0 && len(r.DueTopics) == 0 && len(r.PendingTasks) == 0
}

// Config configures the reminder loop.
type Config struct {
	Every     time.Duration
	StartHour int
	EndHour   int
	// Location is used for the active window. Default: time.Local.
	Location *time.Location
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Service runs reminder checks on a gocron schedule.
type Service struct {
	topics   Topics
	tasks    Tasks
	notifier Notifier
	cfg      Config
	sched    *gocron.Scheduler
}

// NewService creates a reminder service.
func NewService(topics Topics, tasks Tasks, notifier Notifier, cfg Config) *Service {
	if cfg.Every <= 0 {
		cfg.Every = time.Hour
	}
	if cfg.StartHour == 0 && cfg.EndHour == 0 {
		cfg.StartHour, cfg.EndHour = DefaultStartHour, DefaultEndHour
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{topics: topics, tasks: tasks, notifier: notifier, cfg: cfg}
}

// Start schedules Check every cfg.Every, beginning immediately. Runs never
// overlap. Stop ends the loop; cancelling ctx aborts an in-flight check.
func (s *Service) Start(ctx context.Context) error {
	if s.sched != nil {
		return fmt.Errorf("reminder loop already started")
	}
	sched := gocron.NewScheduler(time.UTC)
	_, err := sched.Every(s.cfg.Every).SingletonMode().Do(func() {
		if _, _, err := s.Check(ctx); err != nil {
			s.cfg.Logger.Error("reminder check failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminder: %w", err)
	}
	sched.StartAsync()
	s.sched = sched
	s.cfg.Logger.Info("reminder loop started", "every", s.cfg.Every,
		"start_hour", s.cfg.StartHour, "end_hour", s.cfg.EndHour)
	return nil
}

// Stop halts the schedule. It is safe to call when not started.
func (s *Service) Stop() {
	if s.sched == nil {
		return
	}
	s.sched.Stop()
	s.sched = nil
}

// Check runs one reminder pass. Outside the active window it does nothing
// and returns false. Otherwise it sweeps missed revisions, collects due
// topics and unfinished tasks for today, and notifies when any exist.
func (s *Service) Check(ctx context.Context) (Reminder, bool, error) {
	now := s.cfg.Clock.Now()
	if !InActiveHours(now.In(s.cfg.Location).Hour(), s.cfg.StartHour, s.cfg.EndHour) {
		s.cfg.Logger.Debug("outside active hours, skipping reminder", "hour", now.In(s.cfg.Location).Hour())
		return Reminder{}, false, nil
	}

	r := Reminder{At: now}
	var err error
	if r.Swept, err = s.topics.SweepMissed(ctx); err != nil {
		return Reminder{}, false, fmt.Errorf("sweep missed: %w", err)
	}
	if r.DueTopics, err = s.topics.DueTopics(ctx); err != nil {
		return Reminder{}, false, fmt.Errorf("due topics: %w", err)
	}
	agenda, err := s.tasks.Agenda(ctx, "")
	if err != nil {
		return Reminder{}, false, fmt.Errorf("agenda: %w", err)
	}
	for _, t := range agenda {
		if t.Status == planner.StatusPending || t.Status == planner.StatusInProgress {
			r.PendingTasks = append(r.PendingTasks, t)
		}
	}

	if r.Empty() {
		return r, false, nil
	}
	if err := s.notifier.Notify(ctx, r); err != nil {
		return r, false, fmt.Errorf("notify: %w", err)
	}
	s.cfg.Logger.Info("reminder sent", "swept", len(r.Swept),
		"due", len(r.DueTopics), "pending", len(r.PendingTasks))
	return r, true, nil
}

// InActiveHours reports whether hour falls in [start, end]. A window with
// start after end wraps past midnight.
func InActiveHours(hour, start, end int) bool {
	if start <= end {
		return hour >= start && hour <= end
	}
	return hour >= start || hour <= end
}
