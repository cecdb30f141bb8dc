package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// snapshotRepo implements SnapshotRepo.
type snapshotRepo struct {
	q querier
}

func (r *snapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("marshal snapshot data: %w", err)
	}

	query, args := builder.Insert(tableSnapshots).
		Columns("sequence", "timestamp", "label", "data").
		Values(snap.Sequence, snap.Timestamp.UTC(), snap.Label, string(data)).
		Query()
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		snap.ID = int(id)
	}
	return nil
}

func (r *snapshotRepo) Latest(ctx context.Context) (*Snapshot, error) {
	query, args := builder.Select("id", "sequence", "timestamp", "label", "data").
		From(builder.Table(tableSnapshots)).
		OrderBy(entsql.Desc("timestamp"), entsql.Desc("id")).
		Limit(1).
		Query()
	snap, err := scanSnapshot(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	return snap, nil
}

func (r *snapshotRepo) Get(ctx context.Context, id int) (*Snapshot, error) {
	query, args := builder.Select("id", "sequence", "timestamp", "label", "data").
		From(builder.Table(tableSnapshots)).
		Where(entsql.EQ("id", id)).
		Query()
	snap, err := scanSnapshot(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

func (r *snapshotRepo) List(ctx context.Context) ([]Snapshot, error) {
	query, args := builder.Select("id", "sequence", "timestamp", "label").
		From(builder.Table(tableSnapshots)).
		OrderBy(entsql.Desc("timestamp"), entsql.Desc("id")).
		Query()
	snaps, err := queryAll(ctx, r.q, query, args, func(s rowScanner) (Snapshot, error) {
		var snap Snapshot
		var label sql.NullString
		if err := s.Scan(&snap.ID, &snap.Sequence, &snap.Timestamp, &label); err != nil {
			return Snapshot{}, err
		}
		snap.Timestamp = snap.Timestamp.UTC()
		snap.Label = label.String
		return snap, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

func (r *snapshotRepo) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	// Find the newest snapshot that falls outside the keep window.
	query, args := builder.Select("id").
		From(builder.Table(tableSnapshots)).
		OrderBy(entsql.Desc("timestamp"), entsql.Desc("id")).
		Limit(-1).
		Offset(keep).
		Query()
	ids, err := queryAll(ctx, r.q, query, args, func(s rowScanner) (any, error) {
		var id int
		return id, s.Scan(&id)
	})
	if err != nil {
		return fmt.Errorf("query snapshots for prune: %w", err)
	}
	if len(ids) == 0 {
		return nil // fewer than keep snapshots exist
	}

	query, args = builder.Delete(tableSnapshots).
		Where(entsql.In("id", ids...)).
		Query()
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

func scanSnapshot(s rowScanner) (*Snapshot, error) {
	var (
		snap  Snapshot
		label sql.NullString
		raw   []byte
	)
	if err := s.Scan(&snap.ID, &snap.Sequence, &snap.Timestamp, &label, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &snap.Data); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot data: %w", err)
	}
	snap.Timestamp = snap.Timestamp.UTC()
	snap.Label = label.String
	return &snap, nil
}
