package timeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/abhisek/grit/internal/clock"
	"github.com/abhisek/grit/internal/store"
)

// Recorder appends timeline entries through a TimelineRepo. Bind it to the
// repo of the transaction the triggering transition runs in.
type Recorder struct {
	repo  store.TimelineRepo
	clock clock.Clock
	newID func() string
}

// NewRecorder creates a recorder writing to repo.
func NewRecorder(repo store.TimelineRepo, clk clock.Clock) *Recorder {
	if clk == nil {
		clk = clock.Real()
	}
	return &Recorder{repo: repo, clock: clk, newID: uuid.NewString}
}

func (r *Recorder) append(ctx context.Context, e Entry) (Entry, error) {
	e.ID = r.newID()
	e.CreatedAt = r.clock.Now().UTC()
	rec, err := r.repo.Append(ctx, toRecord(e))
	if err != nil {
		return Entry{}, fmt.Errorf("record %s: %w", e.Type, err)
	}
	return fromRecord(rec), nil
}

// RecordStudySession logs completed work on referenceID.
func (r *Recorder) RecordStudySession(ctx context.Context, referenceID, title, description string) (Entry, error) {
	return r.append(ctx, Entry{
		Type:        EntryStudySession,
		ReferenceID: referenceID,
		Title:       title,
		Description: description,
	})
}

// RecordPlannerFailure logs an avoided task.
func (r *Recorder) RecordPlannerFailure(ctx context.Context, referenceID, title, description string) (Entry, error) {
	return r.append(ctx, Entry{
		Type:        EntryPlannerFailure,
		ReferenceID: referenceID,
		Title:       title,
		Description: description,
		WasAvoided:  true,
	})
}

// RecordMissedRevision logs a skipped review of topicID.
func (r *Recorder) RecordMissedRevision(ctx context.Context, topicID, title, description string) (Entry, error) {
	return r.append(ctx, Entry{
		Type:        EntryMissedRevision,
		ReferenceID: topicID,
		Title:       title,
		Description: description,
		WasAvoided:  true,
	})
}

// RecordThought logs a free-form journal note.
func (r *Recorder) RecordThought(ctx context.Context, title, description string) (Entry, error) {
	return r.append(ctx, Entry{Type: EntryThought, Title: title, Description: description})
}

// RecordProblem logs a problem the user ran into.
func (r *Recorder) RecordProblem(ctx context.Context, title, description string) (Entry, error) {
	return r.append(ctx, Entry{Type: EntryProblem, Title: title, Description: description})
}

// Erase removes every entry referencing referenceID and returns how many
// were removed.
func (r *Recorder) Erase(ctx context.Context, referenceID string) (int, error) {
	n, err := r.repo.DeleteByReference(ctx, referenceID)
	if err != nil {
		return 0, fmt.Errorf("erase timeline for %s: %w", referenceID, err)
	}
	return n, nil
}

// MarkDeleted records that referenceID was deleted. Existing entries are
// rewritten in place; if there are none a planner failure is appended so
// the deletion still leaves a trace.
func (r *Recorder) MarkDeleted(ctx context.Context, referenceID, name string) ([]Entry, error) {
	recs, err := r.repo.ListByReference(ctx, referenceID)
	if err != nil {
		return nil, fmt.Errorf("load timeline for %s: %w", referenceID, err)
	}

	if len(recs) == 0 {
		e, err := r.RecordPlannerFailure(ctx, referenceID, name+DeletedSuffix, "Deleted before it was done.")
		if err != nil {
			return nil, err
		}
		return []Entry{e}, nil
	}

	entries := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		e := fromRecord(rec)
		e.Title = name + DeletedSuffix
		if e.Description == "" {
			e.Description = "Task deleted."
		} else {
			e.Description += " Task deleted."
		}
		if err := r.repo.Update(ctx, toRecord(e)); err != nil {
			return nil, fmt.Errorf("rewrite timeline entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ForReference returns the entries referencing referenceID, oldest first.
func (r *Recorder) ForReference(ctx context.Context, referenceID string) ([]Entry, error) {
	recs, err := r.repo.ListByReference(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	return toEntries(recs), nil
}

// Recent returns up to limit entries, newest first, optionally restricted
// to the given types.
func (r *Recorder) Recent(ctx context.Context, limit int, types ...EntryType) ([]Entry, error) {
	opts := store.QueryOpts{Limit: limit}
	for _, t := range types {
		opts.Types = append(opts.Types, string(t))
	}
	recs, err := r.repo.Query(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("query timeline: %w", err)
	}
	return toEntries(recs), nil
}

func toEntries(recs []store.TimelineRecord) []Entry {
	entries := make([]Entry, len(recs))
	for i, rec := range recs {
		entries[i] = fromRecord(rec)
	}
	return entries
}
