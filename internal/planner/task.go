// Package planner tracks daily tasks through their lifecycle and turns
// skipped work into escalating recovery tasks.
package planner

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abhisek/grit/internal/dates"
	"github.com/abhisek/grit/internal/store"
)

// Status is a task's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusSkipped    Status = "skipped"
)

// ParseStatus validates s as a status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusInProgress, StatusCompleted, StatusSkipped:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Task is a planner task.
type Task struct {
	ID                  string
	Name                string
	TimeEstimateMinutes int
	DecayCost           int
	IsRecovery          bool
	OriginalTaskID      *string
	Status              Status
	ScheduledDate       string
	ScheduledTime       *string
	Priority            *int
	CompletedAt         *time.Time
	SkippedAt           *time.Time
	CreatedAt           time.Time
}

// Limits for task input.
const (
	MaxNameLength      = 200
	MaxEstimateMinutes = 24 * 60
	MinPriority        = 1
	MaxPriority        = 3
)

// NewTask is the input for creating a task.
type NewTask struct {
	Name                string
	TimeEstimateMinutes int
	ScheduledDate       string
	ScheduledTime       string
	Priority            int // 0 means unset
}

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateNewTask checks task input. An empty date defaults to today.
func ValidateNewTask(n *NewTask, today string) error {
	n.Name = strings.TrimSpace(n.Name)
	if n.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(n.Name) > MaxNameLength {
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("longer than %d characters", MaxNameLength)}
	}
	if n.TimeEstimateMinutes < 1 || n.TimeEstimateMinutes > MaxEstimateMinutes {
		return &ValidationError{Field: "estimate", Reason: fmt.Sprintf("must be between 1 and %d minutes", MaxEstimateMinutes)}
	}
	if n.ScheduledDate == "" {
		n.ScheduledDate = today
	}
	if !dates.IsValidDate(n.ScheduledDate) {
		return &ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD", n.ScheduledDate)}
	}
	if n.ScheduledTime != "" && !dates.IsValidTime(n.ScheduledTime) {
		return &ValidationError{Field: "time", Reason: fmt.Sprintf("%q is not HH:MM", n.ScheduledTime)}
	}
	if n.Priority != 0 && (n.Priority < MinPriority || n.Priority > MaxPriority) {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("must be between %d and %d", MinPriority, MaxPriority)}
	}
	return nil
}

// PriorityLabel renders a priority for display.
func (t Task) PriorityLabel() string {
	if t.Priority == nil {
		return "-"
	}
	return fmt.Sprintf("P%d", *t.Priority)
}

// TimeLabel renders the scheduled time for display.
func (t Task) TimeLabel() string {
	if t.ScheduledTime == nil {
		return "--:--"
	}
	return *t.ScheduledTime
}

func taskFromRecord(r store.TaskRecord) Task {
	return Task{
		ID:                  r.ID,
		Name:                r.Name,
		TimeEstimateMinutes: r.TimeEstimateMinutes,
		DecayCost:           r.DecayCost,
		IsRecovery:          r.IsRecovery,
		OriginalTaskID:      r.OriginalTaskID,
		Status:              Status(r.Status),
		ScheduledDate:       r.ScheduledDate,
		ScheduledTime:       r.ScheduledTime,
		Priority:            r.Priority,
		CompletedAt:         r.CompletedAt,
		SkippedAt:           r.SkippedAt,
		CreatedAt:           r.CreatedAt,
	}
}

func taskToRecord(t Task) store.TaskRecord {
	return store.TaskRecord{
		ID:                  t.ID,
		Name:                t.Name,
		TimeEstimateMinutes: t.TimeEstimateMinutes,
		DecayCost:           t.DecayCost,
		IsRecovery:          t.IsRecovery,
		OriginalTaskID:      t.OriginalTaskID,
		Status:              string(t.Status),
		ScheduledDate:       t.ScheduledDate,
		ScheduledTime:       t.ScheduledTime,
		Priority:            t.Priority,
		CompletedAt:         t.CompletedAt,
		SkippedAt:           t.SkippedAt,
		CreatedAt:           t.CreatedAt,
	}
}
