package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

var timelineColumns = []string{
	"id", "sequence", "entry_type", "reference_id", "title",
	"description", "was_avoided", "created_at",
}

// timelineRepo implements TimelineRepo.
type timelineRepo struct {
	q   querier
	seq *sequenceCounter
}

func (r *timelineRepo) Append(ctx context.Context, e TimelineRecord) (TimelineRecord, error) {
	seq, err := r.seq.Next(ctx, r.q)
	if err != nil {
		return TimelineRecord{}, err
	}
	e.Sequence = seq
	e.CreatedAt = e.CreatedAt.UTC()

	query, args := builder.Insert(tableTimeline).
		Columns(timelineColumns...).
		Values(e.ID, e.Sequence, e.EntryType, e.ReferenceID, e.Title, e.Description, e.WasAvoided, e.CreatedAt).
		Query()
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return TimelineRecord{}, fmt.Errorf("append timeline entry: %w", err)
	}
	return e, nil
}

func (r *timelineRepo) Update(ctx context.Context, e TimelineRecord) error {
	query, args := builder.Update(tableTimeline).
		Set("title", e.Title).
		Set("description", e.Description).
		Where(entsql.EQ("id", e.ID)).
		Query()
	n, err := exec(ctx, r.q, query, args)
	if err != nil {
		return fmt.Errorf("update timeline entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("timeline entry %s: %w", e.ID, ErrNotFound)
	}
	return nil
}

func (r *timelineRepo) ListByReference(ctx context.Context, referenceID string) ([]TimelineRecord, error) {
	query, args := builder.Select(timelineColumns...).
		From(builder.Table(tableTimeline)).
		Where(entsql.EQ("reference_id", referenceID)).
		OrderBy(entsql.Asc("sequence")).
		Query()
	entries, err := queryAll(ctx, r.q, query, args, scanTimeline)
	if err != nil {
		return nil, fmt.Errorf("list timeline entries: %w", err)
	}
	return entries, nil
}

func (r *timelineRepo) DeleteByReference(ctx context.Context, referenceID string) (int, error) {
	query, args := builder.Delete(tableTimeline).
		Where(entsql.EQ("reference_id", referenceID)).
		Query()
	n, err := exec(ctx, r.q, query, args)
	if err != nil {
		return 0, fmt.Errorf("delete timeline entries: %w", err)
	}
	return int(n), nil
}

// Query returns entries matching opts, newest first.
func (r *timelineRepo) Query(ctx context.Context, opts QueryOpts) ([]TimelineRecord, error) {
	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("created_at", opts.From.UTC()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("created_at", opts.To.UTC()))
	}
	if len(opts.Types) > 0 {
		types := make([]any, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = t
		}
		preds = append(preds, entsql.In("entry_type", types...))
	}

	sel := builder.Select(timelineColumns...).From(builder.Table(tableTimeline))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()
	entries, err := queryAll(ctx, r.q, query, args, scanTimeline)
	if err != nil {
		return nil, fmt.Errorf("query timeline: %w", err)
	}
	return entries, nil
}

func scanTimeline(s rowScanner) (TimelineRecord, error) {
	var e TimelineRecord
	err := s.Scan(&e.ID, &e.Sequence, &e.EntryType, &e.ReferenceID, &e.Title, &e.Description, &e.WasAvoided, &e.CreatedAt)
	if err != nil {
		return TimelineRecord{}, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}
