package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// querier is satisfied by both *sql.DB and *sql.Tx, so repositories run the
// same code inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sequenceCounter manages the global monotonic sequence number assigned to
// timeline entries and snapshots. Entries written inside one transaction
// share a timestamp resolution, so ordering uses this counter instead.
//
// Uses raw SQL outside the builders because the increment must be a single
// atomic statement. The mutex serializes within the process; the RETURNING
// clause makes the increment atomic at the database level.
type sequenceCounter struct {
	mu sync.Mutex
}

// newSequenceCounter ensures the tracking table exists.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{}, nil
}

// Next atomically returns the next sequence number and increments the
// counter using q, which may be a transaction.
func (sc *sequenceCounter) Next(ctx context.Context, q querier) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := q.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// Current returns the last assigned sequence number, or 0 if none.
func (sc *sequenceCounter) Current(ctx context.Context, q querier) (int64, error) {
	var next int64
	if err := q.QueryRowContext(ctx, `SELECT next_val FROM global_sequence WHERE id = 1`).Scan(&next); err != nil {
		return 0, fmt.Errorf("current sequence: %w", err)
	}
	return next - 1, nil
}

// reset moves the counter so the next value is after last.
func (sc *sequenceCounter) reset(ctx context.Context, q querier, last int64) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	_, err := q.ExecContext(ctx, `UPDATE global_sequence SET next_val = ? WHERE id = 1`, last+1)
	if err != nil {
		return fmt.Errorf("reset sequence: %w", err)
	}
	return nil
}
