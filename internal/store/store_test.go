package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "grit.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil db")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
		{"busy_timeout", "5000"},
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if strings.ToLower(got) != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN("/tmp/x.db")
	if !strings.HasPrefix(dsn, "file:/tmp/x.db?_pragma=journal_mode(WAL)") {
		t.Errorf("unexpected dsn prefix: %s", dsn)
	}
	if !strings.Contains(dsn, "&_pragma=foreign_keys(1)") {
		t.Errorf("dsn missing foreign_keys: %s", dsn)
	}

	dsn = buildDSN("file:x.db?mode=rwc")
	if !strings.HasPrefix(dsn, "file:x.db?mode=rwc&_pragma=") {
		t.Errorf("existing query not extended: %s", dsn)
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	for _, table := range []string{"topics", "revisions", "tasks", "timeline_entries", "snapshots", "global_sequence"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestMigrationIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grit.db")
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		s.Close()
	}
}

func TestTables_FromSchema(t *testing.T) {
	tables := Tables()
	if len(tables) != 5 {
		t.Fatalf("tables = %d, want 5", len(tables))
	}
	byName := map[string]bool{}
	for _, tbl := range tables {
		byName[tbl.Name] = true
		if len(tbl.PrimaryKey) != 1 || tbl.PrimaryKey[0].Name != "id" {
			t.Errorf("%s: expected id primary key", tbl.Name)
		}
	}
	for _, name := range []string{"topics", "revisions", "tasks", "timeline_entries", "snapshots"} {
		if !byName[name] {
			t.Errorf("missing table %s", name)
		}
	}

	for _, tbl := range tables {
		if tbl.Name != "timeline_entries" {
			continue
		}
		if !tbl.HasColumn("sequence") || !tbl.HasColumn("created_at") {
			t.Error("timeline_entries should carry the event mixin columns")
		}
	}
}

func TestSnapshotSaveAndLatest(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	// No snapshot yet.
	snap, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("latest (empty): %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil snapshot when none exist")
	}

	now := time.Now().UTC().Truncate(time.Second)
	err = repo.Save(ctx, &Snapshot{
		Sequence:  42,
		Timestamp: now,
		Label:     "manual",
		Data:      SnapshotData{Version: StateVersion},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	snap, err = repo.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap == nil {
		t.Fatal("expected non-nil snapshot")
	}
	if snap.Sequence != 42 {
		t.Errorf("sequence = %d, want 42", snap.Sequence)
	}
	if snap.Data.Version != StateVersion {
		t.Errorf("data.version = %q, want %q", snap.Data.Version, StateVersion)
	}
	if snap.Label != "manual" {
		t.Errorf("label = %q, want manual", snap.Label)
	}
}

func TestSnapshotLatestReturnsNewest(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		err := repo.Save(ctx, &Snapshot{
			Sequence:  int64(i + 1),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Data:      SnapshotData{Version: StateVersion},
		})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	snap, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap.Sequence != 3 {
		t.Errorf("sequence = %d, want 3", snap.Sequence)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].Sequence != 3 {
		t.Errorf("list should be newest first, got %+v", list)
	}

	got, err := repo.Get(ctx, list[2].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Sequence != 1 {
		t.Errorf("get sequence = %d, want 1", got.Sequence)
	}
}

func TestSnapshotPrune(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 7; i++ {
		err := repo.Save(ctx, &Snapshot{
			Sequence:  int64(i + 1),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Data:      SnapshotData{Version: StateVersion},
		})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	// Prune to keep 5.
	if err := repo.Prune(ctx, 5); err != nil {
		t.Fatalf("prune: %v", err)
	}

	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Errorf("remaining snapshots = %d, want 5", count)
	}

	// Latest should still be sequence 7.
	snap, err := repo.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap.Sequence != 7 {
		t.Errorf("latest sequence = %d, want 7", snap.Sequence)
	}
}

func TestSnapshotPruneWithFewerThanKeep(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 2; i++ {
		err := repo.Save(ctx, &Snapshot{
			Sequence:  int64(i + 1),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Data:      SnapshotData{Version: StateVersion},
		})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	// Prune with keep=5 should be a no-op.
	if err := repo.Prune(ctx, 5); err != nil {
		t.Fatalf("prune: %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("remaining snapshots = %d, want 2", len(list))
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := s.seq.Next(ctx, s.DB())
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	// Should be monotonically increasing starting from 1.
	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}

	cur, err := s.seq.Current(ctx, s.DB())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur != 5 {
		t.Errorf("current = %d, want 5", cur)
	}
}
