package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/abhisek/grit/internal/clock"
	"github.com/abhisek/grit/internal/store"
)

// Source is the slice of *store.Store the backup service needs.
type Source interface {
	Capture(ctx context.Context) (store.SnapshotData, error)
	Restore(ctx context.Context, data store.SnapshotData) error
	TakeSnapshot(ctx context.Context, label string, now time.Time) (*store.Snapshot, error)
	SnapshotRepo() store.SnapshotRepo
}

// Config configures the backup service.
type Config struct {
	// Keep is how many snapshots Prune retains.
	Keep   int
	Clock  clock.Clock
	Logger *slog.Logger
}

// Service manages snapshots and file backups.
type Service struct {
	src    Source
	keep   int
	clock  clock.Clock
	logger *slog.Logger
}

// NewService creates a backup service over src.
func NewService(src Source, cfg Config) *Service {
	if cfg.Keep < 1 {
		cfg.Keep = 10
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{src: src, keep: cfg.Keep, clock: cfg.Clock, logger: cfg.Logger}
}

// Create saves a snapshot of the current state.
func (s *Service) Create(ctx context.Context, label string) (*store.Snapshot, error) {
	snap, err := s.src.TakeSnapshot(ctx, label, s.clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}
	s.logger.Info("snapshot created", "id", snap.ID, "label", label)
	return snap, nil
}

// List returns snapshot headers newest first.
func (s *Service) List(ctx context.Context) ([]store.Snapshot, error) {
	snaps, err := s.src.SnapshotRepo().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

// Restore replaces the current state with snapshot id. The state being
// replaced is saved first under the label "pre-restore".
func (s *Service) Restore(ctx context.Context, id int) (*store.Snapshot, error) {
	snap, err := s.src.SnapshotRepo().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot %d: %w", id, err)
	}
	if err := CheckVersion(snap.Data.Version); err != nil {
		return nil, err
	}
	if err := s.replace(ctx, snap.Data, "pre-restore"); err != nil {
		return nil, err
	}
	s.logger.Info("snapshot restored", "id", id)
	return snap, nil
}

// Prune keeps the configured number of most recent snapshots.
func (s *Service) Prune(ctx context.Context) error {
	if err := s.src.SnapshotRepo().Prune(ctx, s.keep); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

// Export writes the current state as a backup document.
func (s *Service) Export(ctx context.Context, w io.Writer) (store.SnapshotData, error) {
	data, err := s.src.Capture(ctx)
	if err != nil {
		return store.SnapshotData{}, fmt.Errorf("export: %w", err)
	}
	if err := Encode(w, data, s.clock.Now()); err != nil {
		return store.SnapshotData{}, err
	}
	return data, nil
}

// Import validates a backup document and replaces the current state with
// it. Invalid documents leave the database untouched and return an error
// wrapping ErrIncompatible.
func (s *Service) Import(ctx context.Context, r io.Reader) (*Document, error) {
	doc, err := Decode(r)
	if err != nil {
		return nil, err
	}
	if err := s.replace(ctx, doc.Data, "pre-import"); err != nil {
		return nil, err
	}
	s.logger.Info("backup imported",
		"topics", len(doc.Data.Topics), "tasks", len(doc.Data.Tasks), "timeline", len(doc.Data.Timeline))
	return doc, nil
}

func (s *Service) replace(ctx context.Context, data store.SnapshotData, label string) error {
	if _, err := s.src.TakeSnapshot(ctx, label, s.clock.Now().UTC()); err != nil {
		return fmt.Errorf("save %s snapshot: %w", label, err)
	}
	if err := s.src.Restore(ctx, data); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	return nil
}
