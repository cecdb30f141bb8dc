// Package timeline records the append-only activity log that every task and
// study transition writes to as a side effect.
package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/grit/internal/store"
)

// EntryType classifies a timeline entry.
type EntryType string

const (
	EntryProblem        EntryType = "problem"
	EntryStudySession   EntryType = "study_session"
	EntryMissedRevision EntryType = "missed_revision"
	EntryPlannerFailure EntryType = "planner_failure"
	EntryThought        EntryType = "thought"
)

// AllEntryTypes returns every entry type in display order.
func AllEntryTypes() []EntryType {
	return []EntryType{EntryStudySession, EntryMissedRevision, EntryPlannerFailure, EntryThought, EntryProblem}
}

// ParseEntryType validates s as an entry type.
func ParseEntryType(s string) (EntryType, error) {
	t := EntryType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllEntryTypes() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown entry type %q", s)
}

// Label is a short human-readable name.
func (t EntryType) Label() string {
	switch t {
	case EntryStudySession:
		return "study"
	case EntryMissedRevision:
		return "missed"
	case EntryPlannerFailure:
		return "failure"
	default:
		return string(t)
	}
}

// Entry is one timeline row.
type Entry struct {
	ID          string
	Sequence    int64
	Type        EntryType
	ReferenceID string
	Title       string
	Description string
	WasAvoided  bool
	CreatedAt   time.Time
}

// DeletedSuffix tags titles of entries whose subject was deleted.
const DeletedSuffix = " (deleted)"

func fromRecord(r store.TimelineRecord) Entry {
	return Entry{
		ID:          r.ID,
		Sequence:    r.Sequence,
		Type:        EntryType(r.EntryType),
		ReferenceID: r.ReferenceID,
		Title:       r.Title,
		Description: r.Description,
		WasAvoided:  r.WasAvoided,
		CreatedAt:   r.CreatedAt,
	}
}

func toRecord(e Entry) store.TimelineRecord {
	return store.TimelineRecord{
		ID:          e.ID,
		Sequence:    e.Sequence,
		EntryType:   string(e.Type),
		ReferenceID: e.ReferenceID,
		Title:       e.Title,
		Description: e.Description,
		WasAvoided:  e.WasAvoided,
		CreatedAt:   e.CreatedAt,
	}
}
