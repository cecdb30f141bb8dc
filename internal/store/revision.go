package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

var revisionColumns = []string{
	"id", "topic_id", "scheduled_at", "completed_at", "was_missed",
	"feedback", "confidence_before", "confidence_after",
}

// revisionRepo implements RevisionRepo.
type revisionRepo struct {
	q querier
}

func (r *revisionRepo) Append(ctx context.Context, rev RevisionRecord) error {
	query, args := builder.Insert(tableRevisions).
		Columns(revisionColumns...).
		Values(
			rev.ID, rev.TopicID, rev.ScheduledAt.UTC(), nullableTime(rev.CompletedAt), rev.WasMissed,
			rev.Feedback, nullableInt(rev.ConfidenceBefore), nullableInt(rev.ConfidenceAfter),
		).
		Query()
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append revision: %w", err)
	}
	return nil
}

// openPredicate matches revisions that are neither completed nor missed.
func openPredicate() *entsql.Predicate {
	return entsql.And(
		entsql.IsNull("completed_at"),
		entsql.EQ("was_missed", false),
	)
}

func (r *revisionRepo) Open(ctx context.Context, topicID string) (*RevisionRecord, error) {
	query, args := builder.Select(revisionColumns...).
		From(builder.Table(tableRevisions)).
		Where(entsql.And(entsql.EQ("topic_id", topicID), openPredicate())).
		OrderBy(entsql.Desc("scheduled_at")).
		Limit(1).
		Query()
	rev, err := scanRevision(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("open revision for topic %s: %w", topicID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get open revision: %w", err)
	}
	return &rev, nil
}

func (r *revisionRepo) Complete(ctx context.Context, rev RevisionRecord) error {
	if rev.CompletedAt == nil {
		return fmt.Errorf("complete revision %s: missing completion time", rev.ID)
	}
	query, args := builder.Update(tableRevisions).
		Set("completed_at", rev.CompletedAt.UTC()).
		Set("feedback", rev.Feedback).
		Set("confidence_before", nullableInt(rev.ConfidenceBefore)).
		Set("confidence_after", nullableInt(rev.ConfidenceAfter)).
		Where(entsql.And(entsql.EQ("id", rev.ID), openPredicate())).
		Query()
	n, err := exec(ctx, r.q, query, args)
	if err != nil {
		return fmt.Errorf("complete revision: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("open revision %s: %w", rev.ID, ErrNotFound)
	}
	return nil
}

func (r *revisionRepo) MarkMissed(ctx context.Context, id string) error {
	query, args := builder.Update(tableRevisions).
		Set("was_missed", true).
		Where(entsql.And(entsql.EQ("id", id), openPredicate())).
		Query()
	n, err := exec(ctx, r.q, query, args)
	if err != nil {
		return fmt.Errorf("mark revision missed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("open revision %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *revisionRepo) ListByTopic(ctx context.Context, topicID string) ([]RevisionRecord, error) {
	query, args := builder.Select(revisionColumns...).
		From(builder.Table(tableRevisions)).
		Where(entsql.EQ("topic_id", topicID)).
		OrderBy(entsql.Asc("scheduled_at"), entsql.Asc("id")).
		Query()
	revs, err := queryAll(ctx, r.q, query, args, scanRevision)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	return revs, nil
}

func (r *revisionRepo) List(ctx context.Context) ([]RevisionRecord, error) {
	query, args := builder.Select(revisionColumns...).
		From(builder.Table(tableRevisions)).
		OrderBy(entsql.Asc("scheduled_at"), entsql.Asc("id")).
		Query()
	revs, err := queryAll(ctx, r.q, query, args, scanRevision)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	return revs, nil
}

func scanRevision(s rowScanner) (RevisionRecord, error) {
	var (
		rev           RevisionRecord
		completed     sql.NullTime
		before, after sql.NullInt64
		feedback      sql.NullString
	)
	err := s.Scan(
		&rev.ID, &rev.TopicID, &rev.ScheduledAt, &completed, &rev.WasMissed,
		&feedback, &before, &after,
	)
	if err != nil {
		return RevisionRecord{}, err
	}
	rev.ScheduledAt = rev.ScheduledAt.UTC()
	rev.CompletedAt = timePtr(completed)
	rev.Feedback = feedback.String
	rev.ConfidenceBefore = intPtr(before)
	rev.ConfidenceAfter = intPtr(after)
	return rev, nil
}
