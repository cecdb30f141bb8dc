package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var topicColumns = []string{
	"id", "topic", "level", "review_count", "integrity_percent", "decay_state",
	"last_reviewed_at", "next_review_at", "is_mastered", "priority", "model",
	"confidence_level", "created_at",
}

// topicRepo implements TopicRepo.
type topicRepo struct {
	q querier
}

func (r *topicRepo) Create(ctx context.Context, t TopicRecord) error {
	query, args := builder.Insert(tableTopics).
		Columns(topicColumns...).
		Values(
			t.ID, t.Topic, t.Level, t.ReviewCount, t.IntegrityPercent, t.DecayState,
			nullableTime(t.LastReviewedAt), nullableTime(t.NextReviewAt), t.IsMastered,
			t.Priority, t.Model, nullableInt(t.ConfidenceLevel), t.CreatedAt.UTC(),
		).
		Query()
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}

func (r *topicRepo) Get(ctx context.Context, id string) (*TopicRecord, error) {
	query, args := builder.Select(topicColumns...).
		From(builder.Table(tableTopics)).
		Where(entsql.EQ("id", id)).
		Query()
	t, err := scanTopic(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("topic %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}
	return &t, nil
}

func (r *topicRepo) Update(ctx context.Context, t TopicRecord) error {
	query, args := builder.Update(tableTopics).
		Set("topic", t.Topic).
		Set("level", t.Level).
		Set("review_count", t.ReviewCount).
		Set("integrity_percent", t.IntegrityPercent).
		Set("decay_state", t.DecayState).
		Set("last_reviewed_at", nullableTime(t.LastReviewedAt)).
		Set("next_review_at", nullableTime(t.NextReviewAt)).
		Set("is_mastered", t.IsMastered).
		Set("priority", t.Priority).
		Set("confidence_level", nullableInt(t.ConfidenceLevel)).
		Where(entsql.EQ("id", t.ID)).
		Query()
	n, err := exec(ctx, r.q, query, args)
	if err != nil {
		return fmt.Errorf("update topic: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("topic %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

func (r *topicRepo) Delete(ctx context.Context, id string) error {
	query, args := builder.Delete(tableTopics).
		Where(entsql.EQ("id", id)).
		Query()
	n, err := exec(ctx, r.q, query, args)
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("topic %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *topicRepo) List(ctx context.Context) ([]TopicRecord, error) {
	query, args := builder.Select(topicColumns...).
		From(builder.Table(tableTopics)).
		OrderBy(entsql.Asc("created_at"), entsql.Asc("id")).
		Query()
	topics, err := queryAll(ctx, r.q, query, args, scanTopic)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

func (r *topicRepo) DueAt(ctx context.Context, at time.Time) ([]TopicRecord, error) {
	query, args := builder.Select(topicColumns...).
		From(builder.Table(tableTopics)).
		Where(entsql.And(
			entsql.NotNull("next_review_at"),
			entsql.LTE("next_review_at", at.UTC()),
		)).
		OrderBy(entsql.Asc("next_review_at"), entsql.Asc("id")).
		Query()
	topics, err := queryAll(ctx, r.q, query, args, scanTopic)
	if err != nil {
		return nil, fmt.Errorf("query due topics: %w", err)
	}
	return topics, nil
}

func (r *topicRepo) Resolve(ctx context.Context, prefix string) (string, error) {
	return resolvePrefix(ctx, r.q, tableTopics, prefix)
}

func scanTopic(s rowScanner) (TopicRecord, error) {
	var (
		t          TopicRecord
		last, next sql.NullTime
		confidence sql.NullInt64
	)
	err := s.Scan(
		&t.ID, &t.Topic, &t.Level, &t.ReviewCount, &t.IntegrityPercent, &t.DecayState,
		&last, &next, &t.IsMastered, &t.Priority, &t.Model,
		&confidence, &t.CreatedAt,
	)
	if err != nil {
		return TopicRecord{}, err
	}
	t.LastReviewedAt = timePtr(last)
	t.NextReviewAt = timePtr(next)
	t.ConfidenceLevel = intPtr(confidence)
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}
