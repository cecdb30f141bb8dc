package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// builder renders SQLite statements.
var builder = entsql.Dialect(dialect.SQLite)

type rowScanner interface {
	Scan(dest ...any) error
}

func exec(ctx context.Context, q querier, query string, args []any) (int64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// queryAll runs query and scans each row with scan.
func queryAll[T any](ctx context.Context, q querier, query string, args []any, scan func(rowScanner) (T, error)) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// resolvePrefix expands an id prefix in table into a unique id.
func resolvePrefix(ctx context.Context, q querier, table, prefix string) (string, error) {
	query, args := builder.Select("id").
		From(builder.Table(table)).
		Where(entsql.HasPrefix("id", prefix)).
		Limit(2).
		Query()
	ids, err := queryAll(ctx, q, query, args, func(s rowScanner) (string, error) {
		var id string
		return id, s.Scan(&id)
	})
	if err != nil {
		return "", fmt.Errorf("resolve %s id %q: %w", table, prefix, err)
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%s %q: %w", table, prefix, ErrNotFound)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%s %q: %w", table, prefix, ErrAmbiguousID)
	}
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
