// Package study manages spaced-repetition topics and their revision history.
package study

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abhisek/grit/internal/spacedrep"
	"github.com/abhisek/grit/internal/store"
)

var (
	// ErrNotDue is returned when a miss is recorded for a review that is
	// not due yet.
	ErrNotDue = errors.New("review is not due")

	// ErrWrongModel is returned when a level-model operation is applied to a
	// confidence-model topic or the reverse.
	ErrWrongModel = errors.New("operation does not match the topic's scheduling model")
)

// MaxNameLength bounds topic names.
const MaxNameLength = 200

// Priority ranks topics in the due list.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities; lower is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Topic is a study topic with its scheduling state.
type Topic struct {
	ID             string
	Name           string
	Level          int
	ReviewCount    int
	Integrity      int
	Decay          spacedrep.DecayState
	LastReviewedAt *time.Time
	NextReviewAt   *time.Time
	IsMastered     bool
	Priority       Priority
	Model          spacedrep.Model
	Confidence     *int
	CreatedAt      time.Time
}

// IsDue reports whether the topic needs a review at now.
func (t Topic) IsDue(now time.Time) bool {
	return spacedrep.NeedsReviewToday(t.NextReviewAt, now)
}

// Revision is one scheduled review.
type Revision struct {
	ID               string
	TopicID          string
	ScheduledAt      time.Time
	CompletedAt      *time.Time
	WasMissed        bool
	Feedback         spacedrep.Feedback
	ConfidenceBefore *int
	ConfidenceAfter  *int
}

// Status describes the revision outcome for display.
func (r Revision) Status() string {
	switch {
	case r.WasMissed:
		return "missed"
	case r.CompletedAt != nil:
		return "done"
	default:
		return "open"
	}
}

// NewTopic is the input for creating a topic.
type NewTopic struct {
	Name     string
	Priority Priority
	Model    spacedrep.Model
}

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks a new topic and fills defaults for empty fields.
func (n *NewTopic) Validate(defaultModel spacedrep.Model) error {
	n.Name = strings.TrimSpace(n.Name)
	if n.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(n.Name) > MaxNameLength {
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("longer than %d characters", MaxNameLength)}
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if !n.Priority.IsValid() {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("%q is not high, medium or low", n.Priority)}
	}
	if n.Model == "" {
		n.Model = defaultModel
	}
	if !n.Model.IsValid() {
		return &ValidationError{Field: "model", Reason: fmt.Sprintf("%q is not level or confidence", n.Model)}
	}
	return nil
}

// ValidateConfidence rejects confidence values outside 0-100.
func ValidateConfidence(c int) error {
	if c < 0 || c > 100 {
		return &ValidationError{Field: "confidence", Reason: "must be between 0 and 100"}
	}
	return nil
}

func topicFromRecord(r store.TopicRecord) Topic {
	return Topic{
		ID:             r.ID,
		Name:           r.Topic,
		Level:          r.Level,
		ReviewCount:    r.ReviewCount,
		Integrity:      r.IntegrityPercent,
		Decay:          spacedrep.DecayState(r.DecayState),
		LastReviewedAt: r.LastReviewedAt,
		NextReviewAt:   r.NextReviewAt,
		IsMastered:     r.IsMastered,
		Priority:       Priority(r.Priority),
		Model:          spacedrep.Model(r.Model),
		Confidence:     r.ConfidenceLevel,
		CreatedAt:      r.CreatedAt,
	}
}

func topicToRecord(t Topic) store.TopicRecord {
	return store.TopicRecord{
		ID:               t.ID,
		Topic:            t.Name,
		Level:            t.Level,
		ReviewCount:      t.ReviewCount,
		IntegrityPercent: t.Integrity,
		DecayState:       string(t.Decay),
		LastReviewedAt:   t.LastReviewedAt,
		NextReviewAt:     t.NextReviewAt,
		IsMastered:       t.IsMastered,
		Priority:         string(t.Priority),
		Model:            string(t.Model),
		ConfidenceLevel:  t.Confidence,
		CreatedAt:        t.CreatedAt,
	}
}

func revisionFromRecord(r store.RevisionRecord) Revision {
	return Revision{
		ID:               r.ID,
		TopicID:          r.TopicID,
		ScheduledAt:      r.ScheduledAt,
		CompletedAt:      r.CompletedAt,
		WasMissed:        r.WasMissed,
		Feedback:         spacedrep.Feedback(r.Feedback),
		ConfidenceBefore: r.ConfidenceBefore,
		ConfidenceAfter:  r.ConfidenceAfter,
	}
}
