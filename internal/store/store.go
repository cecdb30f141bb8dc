package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"synchronous(NORMAL)",
}

// Store owns the database handle and hands out repositories bound either to
// the pool or to a single transaction.
type Store struct {
	db  *sql.DB
	drv *entsql.Driver
	seq *sequenceCounter
}

// Open creates a new Store backed by the SQLite file at path. It applies
// the recommended pragmas and runs auto-migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	if err := migrate(context.Background(), drv); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, drv: drv, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// Repos returns repositories bound to the connection pool.
func (s *Store) Repos() Repos {
	return s.reposFor(s.db)
}

// Tx runs fn with repositories bound to one transaction. The transaction
// commits if fn returns nil and rolls back otherwise.
func (s *Store) Tx(ctx context.Context, fn func(Repos) error) error {
	return s.inTx(ctx, func(q querier) error {
		return fn(s.reposFor(q))
	})
}

func (s *Store) inTx(ctx context.Context, fn func(querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// SnapshotRepo returns a SnapshotRepo backed by this store.
func (s *Store) SnapshotRepo() SnapshotRepo {
	return &snapshotRepo{q: s.db}
}

func (s *Store) reposFor(q querier) Repos {
	return Repos{
		Topics:    &topicRepo{q: q},
		Revisions: &revisionRepo{q: q},
		Tasks:     &taskRepo{q: q},
		Timeline:  &timelineRepo{q: q, seq: s.seq},
	}
}

// buildDSN turns a file path into a modernc DSN carrying the pragmas.
// Times are written in the sqlite layout so they compare lexically.
func buildDSN(path string) string {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(dsn)
	for _, p := range pragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	b.WriteString("&_time_format=sqlite")
	return b.String()
}

// DefaultDBPath resolves the database file path in priority order:
// 1. GRIT_DB environment variable
// 2. $XDG_DATA_HOME/grit/grit.db
// 3. ~/.local/share/grit/grit.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("GRIT_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "grit", "grit.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
