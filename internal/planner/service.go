package planner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/grit/internal/clock"
	"github.com/abhisek/grit/internal/dates"
	"github.com/abhisek/grit/internal/store"
	"github.com/abhisek/grit/internal/timeline"
)

// Config configures the planner service.
type Config struct {
	Policy Policy
	Clock  clock.Clock
	Logger *slog.Logger
}

// Service persists task transitions and their timeline side effects.
type Service struct {
	backend store.Backend
	policy  Policy
	clock   clock.Clock
	logger  *slog.Logger
	newID   func() string
}

// NewService creates a planner service over backend.
func NewService(backend store.Backend, cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		backend: backend,
		policy:  cfg.Policy.withDefaults(),
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		newID:   uuid.NewString,
	}
}

// Policy returns the effective skip policy.
func (s *Service) Policy() Policy {
	return s.policy
}

// Today returns the current date as YYYY-MM-DD.
func (s *Service) Today() string {
	return dates.FormatDate(s.clock.Now())
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// AddTask validates and stores a new pending task.
func (s *Service) AddTask(ctx context.Context, in NewTask) (*Task, error) {
	if err := ValidateNewTask(&in, s.Today()); err != nil {
		return nil, err
	}
	task := Task{
		ID:                  s.newID(),
		Name:                in.Name,
		TimeEstimateMinutes: in.TimeEstimateMinutes,
		DecayCost:           1,
		Status:              StatusPending,
		ScheduledDate:       in.ScheduledDate,
		CreatedAt:           s.now(),
	}
	if in.ScheduledTime != "" {
		st := in.ScheduledTime
		task.ScheduledTime = &st
	}
	if in.Priority != 0 {
		p := in.Priority
		task.Priority = &p
	}

	if err := s.backend.Repos().Tasks.Create(ctx, taskToRecord(task)); err != nil {
		return nil, fmt.Errorf("add task: %w", err)
	}
	s.logger.Info("task added", "task", task.ID, "name", task.Name, "date", task.ScheduledDate)
	return &task, nil
}

// StartTask moves a task to in_progress.
func (s *Service) StartTask(ctx context.Context, ref string) (*Task, error) {
	var task Task
	err := s.backend.Tx(ctx, func(r store.Repos) error {
		t, err := s.load(ctx, r, ref)
		if err != nil {
			return err
		}
		if task, err = StartTask(t); err != nil {
			return err
		}
		return r.Tasks.Update(ctx, taskToRecord(task))
	})
	if err != nil {
		return nil, fmt.Errorf("start task: %w", err)
	}
	s.logger.Info("task started", "task", task.ID)
	return &task, nil
}

// CompleteTask marks a task completed and logs a study session.
func (s *Service) CompleteTask(ctx context.Context, ref string) (*Task, error) {
	var task Task
	err := s.backend.Tx(ctx, func(r store.Repos) error {
		t, err := s.load(ctx, r, ref)
		if err != nil {
			return err
		}
		if task, err = CompleteTask(t, s.now()); err != nil {
			return err
		}
		if err := r.Tasks.Update(ctx, taskToRecord(task)); err != nil {
			return err
		}
		desc := fmt.Sprintf("Completed (%d min, cost %d).", task.TimeEstimateMinutes, task.DecayCost)
		_, err = timeline.NewRecorder(r.Timeline, s.clock).
			RecordStudySession(ctx, task.ID, task.Name, desc)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	s.logger.Info("task completed", "task", task.ID, "decay_cost", task.DecayCost)
	return &task, nil
}

// SkipTask marks a task skipped, spawns its recovery task in recovery mode
// and logs a planner failure.
func (s *Service) SkipTask(ctx context.Context, ref string) (*SkipResult, error) {
	var res SkipResult
	err := s.backend.Tx(ctx, func(r store.Repos) error {
		t, err := s.load(ctx, r, ref)
		if err != nil {
			return err
		}
		if res, err = SkipTask(t, s.now(), s.policy, s.newID()); err != nil {
			return err
		}
		if err := r.Tasks.Update(ctx, taskToRecord(res.Task)); err != nil {
			return err
		}

		desc := "Skipped."
		if res.Recovery != nil {
			if err := r.Tasks.Create(ctx, taskToRecord(*res.Recovery)); err != nil {
				return err
			}
			desc = fmt.Sprintf("Skipped. Recovery on %s costs %d (%d min).",
				res.Recovery.ScheduledDate, res.Recovery.DecayCost, res.Recovery.TimeEstimateMinutes)
		}
		_, err = timeline.NewRecorder(r.Timeline, s.clock).
			RecordPlannerFailure(ctx, res.Task.ID, res.Task.Name, desc)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("skip task: %w", err)
	}

	attrs := []any{"task", res.Task.ID, "mode", s.policy.Mode}
	if res.Recovery != nil {
		attrs = append(attrs, "recovery", res.Recovery.ID, "decay_cost", res.Recovery.DecayCost)
	}
	s.logger.Info("task skipped", attrs...)
	return &res, nil
}

// UndoResult describes what an undo reversed.
type UndoResult struct {
	Task            Task
	Changed         bool
	RemovedRecovery []string
	ErasedEntries   int
}

// UndoTask returns a task to pending. Reversing a skip deletes the recovery
// task it spawned, and any recovery spawned by skipping that one, along with
// their timeline entries; the task's own entries are erased too. Undo on a
// pending task is a no-op.
func (s *Service) UndoTask(ctx context.Context, ref string) (*UndoResult, error) {
	var res UndoResult
	err := s.backend.Tx(ctx, func(r store.Repos) error {
		t, err := s.load(ctx, r, ref)
		if err != nil {
			return err
		}
		wasSkipped := t.Status == StatusSkipped
		res.Task, res.Changed = UndoTask(t)
		if !res.Changed {
			return nil
		}
		if err := r.Tasks.Update(ctx, taskToRecord(res.Task)); err != nil {
			return err
		}

		rec := timeline.NewRecorder(r.Timeline, s.clock)
		if wasSkipped {
			if err := removeRecoveries(ctx, r, rec, t.ID, &res); err != nil {
				return err
			}
		}
		n, err := rec.Erase(ctx, t.ID)
		if err != nil {
			return err
		}
		res.ErasedEntries += n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("undo task: %w", err)
	}
	if res.Changed {
		s.logger.Info("task undone", "task", res.Task.ID, "removed_recovery", len(res.RemovedRecovery))
	}
	return &res, nil
}

// removeRecoveries deletes the recovery chain hanging off parentID, deepest
// first, so no recovery is left pointing at a deleted parent.
func removeRecoveries(ctx context.Context, r store.Repos, rec *timeline.Recorder, parentID string, res *UndoResult) error {
	recoveries, err := r.Tasks.RecoveriesOf(ctx, parentID)
	if err != nil {
		return err
	}
	for _, rt := range recoveries {
		if err := removeRecoveries(ctx, r, rec, rt.ID, res); err != nil {
			return err
		}
		if err := r.Tasks.Delete(ctx, rt.ID); err != nil {
			return err
		}
		n, err := rec.Erase(ctx, rt.ID)
		if err != nil {
			return err
		}
		res.ErasedEntries += n
		res.RemovedRecovery = append(res.RemovedRecovery, rt.ID)
	}
	return nil
}

// DeleteTask removes a task without touching its recovery tasks. The
// timeline keeps a trace of the deletion.
func (s *Service) DeleteTask(ctx context.Context, ref string) (*Task, error) {
	var task Task
	err := s.backend.Tx(ctx, func(r store.Repos) error {
		var err error
		if task, err = s.load(ctx, r, ref); err != nil {
			return err
		}
		if err := r.Tasks.Delete(ctx, task.ID); err != nil {
			return err
		}
		_, err = timeline.NewRecorder(r.Timeline, s.clock).MarkDeleted(ctx, task.ID, task.Name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}
	s.logger.Info("task deleted", "task", task.ID)
	return &task, nil
}

// GetTask returns one task by id or unique id prefix.
func (s *Service) GetTask(ctx context.Context, ref string) (*Task, error) {
	t, err := s.load(ctx, s.backend.Repos(), ref)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Agenda returns the tasks scheduled on date in display order.
func (s *Service) Agenda(ctx context.Context, date string) ([]Task, error) {
	if date == "" {
		date = s.Today()
	}
	if !dates.IsValidDate(date) {
		return nil, &ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD", date)}
	}
	tasks, err := s.list(ctx, store.TaskFilter{Date: date})
	if err != nil {
		return nil, fmt.Errorf("agenda: %w", err)
	}
	SortAgenda(tasks)
	return tasks, nil
}

// ListFilter narrows ListTasks.
type ListFilter struct {
	Status   Status
	FromDate string
	ToDate   string
}

// ListTasks returns tasks matching f ordered by date then agenda order.
func (s *Service) ListTasks(ctx context.Context, f ListFilter) ([]Task, error) {
	tasks, err := s.list(ctx, store.TaskFilter{Status: string(f.Status), FromDate: f.FromDate, ToDate: f.ToDate})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Lineage returns the recovery chain containing ref, from the original task
// to the latest recovery. Deleted links end the walk.
func (s *Service) Lineage(ctx context.Context, ref string) ([]Task, error) {
	repos := s.backend.Repos()
	t, err := s.load(ctx, repos, ref)
	if err != nil {
		return nil, err
	}

	// Walk back to the root.
	chain := []Task{t}
	seen := map[string]bool{t.ID: true}
	for cur := t; cur.OriginalTaskID != nil; {
		rec, err := repos.Tasks.Get(ctx, *cur.OriginalTaskID)
		if err != nil {
			break
		}
		cur = taskFromRecord(*rec)
		if seen[cur.ID] {
			break
		}
		seen[cur.ID] = true
		chain = append([]Task{cur}, chain...)
	}

	// Walk forward through recoveries.
	for cur := t; ; {
		recs, err := repos.Tasks.RecoveriesOf(ctx, cur.ID)
		if err != nil {
			return nil, fmt.Errorf("lineage: %w", err)
		}
		if len(recs) == 0 || seen[recs[0].ID] {
			break
		}
		cur = taskFromRecord(recs[0])
		seen[cur.ID] = true
		chain = append(chain, cur)
	}
	return chain, nil
}

// Stats summarizes tasks in a date range.
type Stats struct {
	Total           int
	Pending         int
	InProgress      int
	Completed       int
	Skipped         int
	Recoveries      int
	OutstandingCost int // decay cost of unfinished recovery tasks
	CompletedCost   int
}

// CompletionRate is completed over completed plus skipped, or 0.
func (st Stats) CompletionRate() float64 {
	done := st.Completed + st.Skipped
	if done == 0 {
		return 0
	}
	return float64(st.Completed) / float64(done)
}

// Stats counts tasks scheduled between from and to inclusive. Empty bounds
// are open.
func (s *Service) Stats(ctx context.Context, from, to string) (Stats, error) {
	tasks, err := s.list(ctx, store.TaskFilter{FromDate: from, ToDate: to})
	if err != nil {
		return Stats{}, fmt.Errorf("task stats: %w", err)
	}
	var st Stats
	for _, t := range tasks {
		st.Total++
		if t.IsRecovery {
			st.Recoveries++
		}
		switch t.Status {
		case StatusPending:
			st.Pending++
		case StatusInProgress:
			st.InProgress++
		case StatusCompleted:
			st.Completed++
			st.CompletedCost += t.DecayCost
		case StatusSkipped:
			st.Skipped++
		}
		if t.IsRecovery && (t.Status == StatusPending || t.Status == StatusInProgress) {
			st.OutstandingCost += t.DecayCost
		}
	}
	return st, nil
}

func (s *Service) list(ctx context.Context, f store.TaskFilter) ([]Task, error) {
	recs, err := s.backend.Repos().Tasks.List(ctx, f)
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, len(recs))
	for i, rec := range recs {
		tasks[i] = taskFromRecord(rec)
	}
	return tasks, nil
}

func (s *Service) load(ctx context.Context, r store.Repos, ref string) (Task, error) {
	id, err := r.Tasks.Resolve(ctx, ref)
	if err != nil {
		return Task{}, err
	}
	rec, err := r.Tasks.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}
	return taskFromRecord(*rec), nil
}
