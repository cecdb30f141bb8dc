package store

import (
	"context"
	"fmt"
	"time"
)

// StateVersion is the semver of the SnapshotData layout.
const StateVersion = "v1.0.0"

// Capture reads every table into a SnapshotData.
func (s *Store) Capture(ctx context.Context) (SnapshotData, error) {
	repos := s.Repos()
	data := SnapshotData{Version: StateVersion}

	var err error
	if data.Topics, err = repos.Topics.List(ctx); err != nil {
		return SnapshotData{}, err
	}
	if data.Revisions, err = repos.Revisions.List(ctx); err != nil {
		return SnapshotData{}, err
	}
	if data.Tasks, err = repos.Tasks.List(ctx, TaskFilter{}); err != nil {
		return SnapshotData{}, err
	}
	entries, err := repos.Timeline.Query(ctx, QueryOpts{})
	if err != nil {
		return SnapshotData{}, err
	}
	// Query returns newest first; store oldest first so restores replay in order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	data.Timeline = entries
	return data, nil
}

// TakeSnapshot captures the current state and saves it as a snapshot.
func (s *Store) TakeSnapshot(ctx context.Context, label string, now time.Time) (*Snapshot, error) {
	data, err := s.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture state: %w", err)
	}
	seq, err := s.seq.Current(ctx, s.db)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Sequence: seq, Timestamp: now, Label: label, Data: data}
	if err := s.SnapshotRepo().Save(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Restore replaces every row with data in one transaction. Timeline
// entries keep their original sequence numbers and the counter moves past
// the highest one.
func (s *Store) Restore(ctx context.Context, data SnapshotData) error {
	return s.inTx(ctx, func(q querier) error {
		r := s.reposFor(q)
		for _, table := range []string{tableTimeline, tableRevisions, tableTasks, tableTopics} {
			query, args := builder.Delete(table).Query()
			if _, err := q.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		for _, t := range data.Topics {
			if err := r.Topics.Create(ctx, t); err != nil {
				return err
			}
		}
		for _, rev := range data.Revisions {
			if err := r.Revisions.Append(ctx, rev); err != nil {
				return err
			}
		}
		for _, t := range data.Tasks {
			if err := r.Tasks.Create(ctx, t); err != nil {
				return err
			}
		}

		var last int64
		for _, e := range data.Timeline {
			query, args := builder.Insert(tableTimeline).
				Columns(timelineColumns...).
				Values(e.ID, e.Sequence, e.EntryType, e.ReferenceID, e.Title, e.Description, e.WasAvoided, e.CreatedAt.UTC()).
				Query()
			if _, err := q.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("restore timeline entry: %w", err)
			}
			last = max(last, e.Sequence)
		}
		current, err := s.seq.Current(ctx, q)
		if err != nil {
			return err
		}
		return s.seq.reset(ctx, q, max(last, current))
	})
}
