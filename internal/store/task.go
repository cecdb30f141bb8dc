package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

var taskColumns = []string{
	"id", "name", "time_estimate_minutes", "decay_cost", "is_recovery",
	"original_task_id", "status", "scheduled_date", "scheduled_time",
	"priority", "completed_at", "skipped_at", "created_at",
}

// taskRepo implements TaskRepo.
type taskRepo struct {
	q querier
}

func (r *taskRepo) Create(ctx context.Context, t TaskRecord) error {
	query, args := builder.Insert(tableTasks).
		Columns(taskColumns...).
		Values(
			t.ID, t.Name, t.TimeEstimateMinutes, t.DecayCost, t.IsRecovery,
			nullableString(t.OriginalTaskID), t.Status, t.ScheduledDate, nullableString(t.ScheduledTime),
			nullableInt(t.Priority), nullableTime(t.CompletedAt), nullableTime(t.SkippedAt), t.CreatedAt.UTC(),
		).
		Query()
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *taskRepo) Get(ctx context.Context, id string) (*TaskRecord, error) {
	query, args := builder.Select(taskColumns...).
		From(builder.Table(tableTasks)).
		Where(entsql.EQ("id", id)).
		Query()
	t, err := scanTask(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

func (r *taskRepo) Update(ctx context.Context, t TaskRecord) error {
	query, args := builder.Update(tableTasks).
		Set("name", t.Name).
		Set("time_estimate_minutes", t.TimeEstimateMinutes).
		Set("decay_cost", t.DecayCost).
		Set("status", t.Status).
		Set("scheduled_date", t.ScheduledDate).
		Set("scheduled_time", nullableString(t.ScheduledTime)).
		Set("priority", nullableInt(t.Priority)).
		Set("completed_at", nullableTime(t.CompletedAt)).
		Set("skipped_at", nullableTime(t.SkippedAt)).
		Where(entsql.EQ("id", t.ID)).
		Query()
	n, err := exec(ctx, r.q, query, args)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

func (r *taskRepo) Delete(ctx context.Context, id string) error {
	query, args := builder.Delete(tableTasks).
		Where(entsql.EQ("id", id)).
		Query()
	n, err := exec(ctx, r.q, query, args)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *taskRepo) List(ctx context.Context, f TaskFilter) ([]TaskRecord, error) {
	var preds []*entsql.Predicate
	if f.Status != "" {
		preds = append(preds, entsql.EQ("status", f.Status))
	}
	if f.Date != "" {
		preds = append(preds, entsql.EQ("scheduled_date", f.Date))
	}
	if f.FromDate != "" {
		preds = append(preds, entsql.GTE("scheduled_date", f.FromDate))
	}
	if f.ToDate != "" {
		preds = append(preds, entsql.LTE("scheduled_date", f.ToDate))
	}

	sel := builder.Select(taskColumns...).From(builder.Table(tableTasks))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	query, args := sel.
		OrderBy(entsql.Asc("scheduled_date"), entsql.Asc("created_at"), entsql.Asc("id")).
		Query()
	tasks, err := queryAll(ctx, r.q, query, args, scanTask)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *taskRepo) RecoveriesOf(ctx context.Context, id string) ([]TaskRecord, error) {
	query, args := builder.Select(taskColumns...).
		From(builder.Table(tableTasks)).
		Where(entsql.EQ("original_task_id", id)).
		OrderBy(entsql.Asc("created_at"), entsql.Asc("id")).
		Query()
	tasks, err := queryAll(ctx, r.q, query, args, scanTask)
	if err != nil {
		return nil, fmt.Errorf("query recovery tasks: %w", err)
	}
	return tasks, nil
}

func (r *taskRepo) Resolve(ctx context.Context, prefix string) (string, error) {
	return resolvePrefix(ctx, r.q, tableTasks, prefix)
}

func scanTask(s rowScanner) (TaskRecord, error) {
	var (
		t                   TaskRecord
		original, schedTime sql.NullString
		priority            sql.NullInt64
		completed, skipped  sql.NullTime
	)
	err := s.Scan(
		&t.ID, &t.Name, &t.TimeEstimateMinutes, &t.DecayCost, &t.IsRecovery,
		&original, &t.Status, &t.ScheduledDate, &schedTime,
		&priority, &completed, &skipped, &t.CreatedAt,
	)
	if err != nil {
		return TaskRecord{}, err
	}
	t.OriginalTaskID = stringPtr(original)
	t.ScheduledTime = stringPtr(schedTime)
	t.Priority = intPtr(priority)
	t.CompletedAt = timePtr(completed)
	t.SkippedAt = timePtr(skipped)
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}
