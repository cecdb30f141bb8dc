package planner

import (
	"fmt"
	"math"
	"time"

	"github.com/abhisek/grit/internal/dates"
)

// SkipMode selects what a skip does besides marking the task.
type SkipMode string

const (
	// SkipRecovery spawns an escalated recovery task for the next day.
	SkipRecovery SkipMode = "recovery"
	// SkipInPlace only marks the task skipped.
	SkipInPlace SkipMode = "in_place"
)

// IsValid reports whether m is a known skip mode.
func (m SkipMode) IsValid() bool {
	return m == SkipRecovery || m == SkipInPlace
}

// Policy holds the recovery escalation parameters.
type Policy struct {
	Mode           SkipMode
	CostIncrement  int
	TimeMultiplier float64
	// RecoveryPriority is assigned to every recovery task.
	RecoveryPriority int
}

// DefaultPolicy returns recovery mode with +2 cost and 1.25x time.
func DefaultPolicy() Policy {
	return Policy{
		Mode:             SkipRecovery,
		CostIncrement:    2,
		TimeMultiplier:   1.25,
		RecoveryPriority: 1,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if !p.Mode.IsValid() {
		p.Mode = def.Mode
	}
	if p.CostIncrement <= 0 {
		p.CostIncrement = def.CostIncrement
	}
	if p.TimeMultiplier < 1 {
		p.TimeMultiplier = def.TimeMultiplier
	}
	if p.RecoveryPriority < MinPriority || p.RecoveryPriority > MaxPriority {
		p.RecoveryPriority = def.RecoveryPriority
	}
	return p
}

// TransitionError reports a status change the lifecycle does not allow.
type TransitionError struct {
	TaskID string
	From   Status
	To     Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("task %s cannot move from %s to %s", e.TaskID, e.From, e.To)
}

// StartTask moves a pending task to in_progress.
func StartTask(t Task) (Task, error) {
	if t.Status != StatusPending {
		return t, &TransitionError{TaskID: t.ID, From: t.Status, To: StatusInProgress}
	}
	t.Status = StatusInProgress
	return t, nil
}

// CompleteTask marks a pending or in-progress task completed at now.
func CompleteTask(t Task, now time.Time) (Task, error) {
	if t.Status != StatusPending && t.Status != StatusInProgress {
		return t, &TransitionError{TaskID: t.ID, From: t.Status, To: StatusCompleted}
	}
	t.Status = StatusCompleted
	t.CompletedAt = &now
	return t, nil
}

// SkipResult is the outcome of a skip. Recovery is nil in in-place mode.
type SkipResult struct {
	Task     Task
	Recovery *Task
}

// SkipTask marks a pending task skipped at now and, in recovery mode, builds
// the recovery task that replaces it on the next calendar day.
func SkipTask(t Task, now time.Time, p Policy, recoveryID string) (SkipResult, error) {
	if t.Status != StatusPending {
		return SkipResult{Task: t}, &TransitionError{TaskID: t.ID, From: t.Status, To: StatusSkipped}
	}
	p = p.withDefaults()

	t.Status = StatusSkipped
	t.SkippedAt = &now
	res := SkipResult{Task: t}
	if p.Mode == SkipInPlace {
		return res, nil
	}

	rec := NewRecovery(t, now, p, recoveryID)
	res.Recovery = &rec
	return res, nil
}

// NewRecovery builds the recovery task for a skipped task.
func NewRecovery(t Task, now time.Time, p Policy, id string) Task {
	p = p.withDefaults()
	originalID := t.ID
	priority := p.RecoveryPriority
	return Task{
		ID:                  id,
		Name:                t.Name,
		TimeEstimateMinutes: RecoveryEstimate(t.TimeEstimateMinutes, p.TimeMultiplier),
		DecayCost:           max(1, t.DecayCost) + p.CostIncrement,
		IsRecovery:          true,
		OriginalTaskID:      &originalID,
		Status:              StatusPending,
		ScheduledDate:       recoveryDate(t.ScheduledDate, now),
		Priority:            &priority,
		CreatedAt:           now,
	}
}

// RecoveryEstimate scales an estimate and rounds up to whole minutes.
func RecoveryEstimate(minutes int, multiplier float64) int {
	scaled := math.Ceil(float64(minutes)*multiplier - 1e-9)
	return max(1, int(scaled))
}

// recoveryDate is the calendar day after the task's date, or after today
// when the task has no usable date.
func recoveryDate(scheduled string, now time.Time) string {
	if next, err := dates.NextCalendarDay(scheduled); err == nil {
		return next
	}
	return dates.FormatDate(now.AddDate(0, 0, 1))
}

// UndoTask returns a task to pending, clearing its completion and skip
// times. It reports false when the task was already pending.
func UndoTask(t Task) (Task, bool) {
	if t.Status == StatusPending {
		return t, false
	}
	t.Status = StatusPending
	t.CompletedAt = nil
	t.SkippedAt = nil
	return t, true
}
