package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrAmbiguousID is returned when an id prefix matches more than one row.
var ErrAmbiguousID = errors.New("ambiguous id prefix")

// QueryOpts configures timeline queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // created_at >= From
	To     time.Time // created_at <= To
	Types  []string  // entry types to include (empty = all)
}

// TopicRecord is the stored form of a study topic.
type TopicRecord struct {
	ID               string     `json:"id"`
	Topic            string     `json:"topic"`
	Level            int        `json:"level"`
	ReviewCount      int        `json:"review_count"`
	IntegrityPercent int        `json:"integrity_percent"`
	DecayState       string     `json:"decay_state"`
	LastReviewedAt   *time.Time `json:"last_reviewed_at,omitempty"`
	NextReviewAt     *time.Time `json:"next_review_at,omitempty"`
	IsMastered       bool       `json:"is_mastered"`
	Priority         string     `json:"priority"`
	Model            string     `json:"model"`
	ConfidenceLevel  *int       `json:"confidence_level,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// RevisionRecord is the stored form of one scheduled review.
type RevisionRecord struct {
	ID               string     `json:"id"`
	TopicID          string     `json:"topic_id"`
	ScheduledAt      time.Time  `json:"scheduled_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	WasMissed        bool       `json:"was_missed"`
	Feedback         string     `json:"feedback"`
	ConfidenceBefore *int       `json:"confidence_before,omitempty"`
	ConfidenceAfter  *int       `json:"confidence_after,omitempty"`
}

// IsOpen reports whether the revision has been neither completed nor missed.
func (r RevisionRecord) IsOpen() bool {
	return r.CompletedAt == nil && !r.WasMissed
}

// TaskRecord is the stored form of a planner task.
type TaskRecord struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	TimeEstimateMinutes int        `json:"time_estimate_minutes"`
	DecayCost           int        `json:"decay_cost"`
	IsRecovery          bool       `json:"is_recovery"`
	OriginalTaskID      *string    `json:"original_task_id,omitempty"`
	Status              string     `json:"status"`
	ScheduledDate       string     `json:"scheduled_date"`
	ScheduledTime       *string    `json:"scheduled_time,omitempty"`
	Priority            *int       `json:"priority,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	SkippedAt           *time.Time `json:"skipped_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// TaskFilter narrows task listings. Zero values match everything.
type TaskFilter struct {
	Status   string
	Date     string
	FromDate string
	ToDate   string
}

// TimelineRecord is the stored form of a timeline entry.
type TimelineRecord struct {
	ID          string    `json:"id"`
	Sequence    int64     `json:"sequence"`
	EntryType   string    `json:"entry_type"`
	ReferenceID string    `json:"reference_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	WasAvoided  bool      `json:"was_avoided"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repos groups the repositories bound to one connection or transaction.
type Repos struct {
	Topics    TopicRepo
	Revisions RevisionRepo
	Tasks     TaskRepo
	Timeline  TimelineRepo
}

// Backend hands out repositories and runs transactions. *Store implements
// it; services depend on this interface.
type Backend interface {
	Repos() Repos
	Tx(ctx context.Context, fn func(Repos) error) error
}

// TopicRepo persists study topics.
type TopicRepo interface {
	Create(ctx context.Context, t TopicRecord) error
	Get(ctx context.Context, id string) (*TopicRecord, error)
	Update(ctx context.Context, t TopicRecord) error
	// Delete removes the topic; its revisions cascade.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]TopicRecord, error)
	// DueAt returns topics whose next review is at or before t.
	DueAt(ctx context.Context, t time.Time) ([]TopicRecord, error)
	// Resolve expands an id prefix into a full id.
	Resolve(ctx context.Context, prefix string) (string, error)
}

// RevisionRepo persists revisions. A revision is closed exactly once.
type RevisionRepo interface {
	Append(ctx context.Context, r RevisionRecord) error
	// Open returns the topic's open revision, or ErrNotFound.
	Open(ctx context.Context, topicID string) (*RevisionRecord, error)
	// Complete closes an open revision as reviewed.
	Complete(ctx context.Context, r RevisionRecord) error
	// MarkMissed closes an open revision as missed.
	MarkMissed(ctx context.Context, id string) error
	ListByTopic(ctx context.Context, topicID string) ([]RevisionRecord, error)
	List(ctx context.Context) ([]RevisionRecord, error)
}

// TaskRepo persists planner tasks.
type TaskRepo interface {
	Create(ctx context.Context, t TaskRecord) error
	Get(ctx context.Context, id string) (*TaskRecord, error)
	Update(ctx context.Context, t TaskRecord) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f TaskFilter) ([]TaskRecord, error)
	// RecoveriesOf returns tasks whose original_task_id is id.
	RecoveriesOf(ctx context.Context, id string) ([]TaskRecord, error)
	Resolve(ctx context.Context, prefix string) (string, error)
}

// TimelineRepo persists the append-only activity log.
type TimelineRepo interface {
	// Append assigns the next sequence number and stores the entry.
	Append(ctx context.Context, e TimelineRecord) (TimelineRecord, error)
	// Update rewrites an entry's title and description in place.
	Update(ctx context.Context, e TimelineRecord) error
	ListByReference(ctx context.Context, referenceID string) ([]TimelineRecord, error)
	DeleteByReference(ctx context.Context, referenceID string) (int, error)
	Query(ctx context.Context, opts QueryOpts) ([]TimelineRecord, error)
}

// SnapshotData captures the full tracker state at a point in time.
type SnapshotData struct {
	Version   string           `json:"version"`
	Topics    []TopicRecord    `json:"topics"`
	Revisions []RevisionRecord `json:"revisions"`
	Tasks     []TaskRecord     `json:"tasks"`
	Timeline  []TimelineRecord `json:"timeline"`
}

// Snapshot represents a point-in-time capture of tracker state.
type Snapshot struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	Label     string
	Data      SnapshotData
}

// SnapshotRepo manages state snapshots.
type SnapshotRepo interface {
	// Save stores a new snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot, or nil if none exist.
	Latest(ctx context.Context) (*Snapshot, error)

	// Get returns the snapshot with id, or ErrNotFound.
	Get(ctx context.Context, id int) (*Snapshot, error)

	// List returns snapshot headers newest first. Data is left empty.
	List(ctx context.Context) ([]Snapshot, error)

	// Prune deletes all but the N most recent snapshots.
	Prune(ctx context.Context, keep int) error
}
