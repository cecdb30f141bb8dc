package study

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/grit/internal/clock"
	"github.com/abhisek/grit/internal/dates"
	"github.com/abhisek/grit/internal/spacedrep"
	"github.com/abhisek/grit/internal/store"
	"github.com/abhisek/grit/internal/timeline"
)

// Config configures the study service. Zero values fall back to defaults.
type Config struct {
	Policy       spacedrep.Policy
	DefaultModel spacedrep.Model
	Clock        clock.Clock
	Logger       *slog.Logger
}

// Service applies scheduler decisions to stored topics.
type Service struct {
	backend      store.Backend
	sched        *spacedrep.Scheduler
	defaultModel spacedrep.Model
	clock        clock.Clock
	logger       *slog.Logger
	newID        func() string
}

// NewService creates a study service over backend.
func NewService(backend store.Backend, cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if !cfg.DefaultModel.IsValid() {
		cfg.DefaultModel = spacedrep.ModelLevel
	}
	return &Service{
		backend:      backend,
		sched:        spacedrep.NewScheduler(cfg.Policy),
		defaultModel: cfg.DefaultModel,
		clock:        cfg.Clock,
		logger:       cfg.Logger,
		newID:        uuid.NewString,
	}
}

// Scheduler returns the scheduler in use.
func (s *Service) Scheduler() *spacedrep.Scheduler {
	return s.sched
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// startOfToday is local midnight, the same calendar the planner uses.
func (s *Service) startOfToday() time.Time {
	return dates.StartOfDay(s.clock.Now())
}

// ReviewResult describes one applied review.
type ReviewResult struct {
	Topic          Topic
	PreviousLevel  int
	IntervalDays   int
	BecameMastered bool
	LostMastery    bool
}

// CreateTopic stores a new topic and schedules its first review.
func (s *Service) CreateTopic(ctx context.Context, in NewTopic) (*Topic, error) {
	if err := in.Validate(s.defaultModel); err != nil {
		return nil, err
	}

	now := s.now()
	days := s.sched.Policy().Intervals.Interval(0)
	if in.Model == spacedrep.ModelConfidence {
		days = s.sched.Policy().ConfidenceIntervals.Interval(0)
	}
	next := now.AddDate(0, 0, days)

	topic := Topic{
		ID:           s.newID(),
		Name:         in.Name,
		Integrity:    spacedrep.FullIntegrity,
		Decay:        spacedrep.DecayFresh,
		NextReviewAt: &next,
		Priority:     in.Priority,
		Model:        in.Model,
		CreatedAt:    now,
	}

	err := s.backend.Tx(ctx, func(r store.Repos) error {
		if err := r.Topics.Create(ctx, topicToRecord(topic)); err != nil {
			return err
		}
		if err := s.openRevision(ctx, r, topic.ID, next); err != nil {
			return err
		}
		_, err := timeline.NewRecorder(r.Timeline, s.clock).
			RecordStudySession(ctx, topic.ID, topic.Name, "Started studying.")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}

	s.logger.Info("topic created", "topic", topic.ID, "name", topic.Name, "model", topic.Model)
	return &topic, nil
}

// Review applies level-model feedback to a topic.
func (s *Service) Review(ctx context.Context, ref string, fb spacedrep.Feedback) (*ReviewResult, error) {
	if !fb.IsValid() {
		return nil, &ValidationError{Field: "feedback", Reason: fmt.Sprintf("%q is not again, hard, good or easy", fb)}
	}
	return s.review(ctx, ref, spacedrep.ModelLevel, func(t Topic, now time.Time) (spacedrep.Outcome, store.RevisionRecord) {
		out := s.sched.CalculateNextReview(t.Level, t.ReviewCount, fb, now)
		return out, store.RevisionRecord{Feedback: string(fb)}
	})
}

// ReviewWithConfidence applies a confidence-model review.
func (s *Service) ReviewWithConfidence(ctx context.Context, ref string, confidence int) (*ReviewResult, error) {
	if err := ValidateConfidence(confidence); err != nil {
		return nil, err
	}
	return s.review(ctx, ref, spacedrep.ModelConfidence, func(t Topic, now time.Time) (spacedrep.Outcome, store.RevisionRecord) {
		out := s.sched.CalculateConfidenceReview(t.Level, t.ReviewCount, confidence, now)
		c := confidence
		return out, store.RevisionRecord{ConfidenceBefore: t.Confidence, ConfidenceAfter: &c}
	})
}

type reviewFunc func(t Topic, now time.Time) (spacedrep.Outcome, store.RevisionRecord)

func (s *Service) review(ctx context.Context, ref string, model spacedrep.Model, calc reviewFunc) (*ReviewResult, error) {
	var result ReviewResult
	err := s.backend.Tx(ctx, func(r store.Repos) error {
		topic, err := s.load(ctx, r, ref)
		if err != nil {
			return err
		}
		if topic.Model != model {
			return fmt.Errorf("topic %s uses the %s model: %w", topic.ID, topic.Model, ErrWrongModel)
		}

		now := s.now()
		out, closing := calc(topic, now)
		wasMastered := topic.IsMastered
		result.PreviousLevel = topic.Level

		next := out.NextReviewAt
		topic.Level = out.Level
		topic.ReviewCount = out.ReviewCount
		topic.Integrity = spacedrep.FullIntegrity
		topic.Decay = spacedrep.DecayFresh
		topic.LastReviewedAt = &now
		topic.NextReviewAt = &next
		topic.IsMastered = out.IsMastered
		if closing.ConfidenceAfter != nil {
			topic.Confidence = closing.ConfidenceAfter
		}
		if err := r.Topics.Update(ctx, topicToRecord(topic)); err != nil {
			return err
		}

		open, err := r.Revisions.Open(ctx, topic.ID)
		switch {
		case err == nil:
			closing.ID = open.ID
			closing.CompletedAt = &now
			if err := r.Revisions.Complete(ctx, closing); err != nil {
				return err
			}
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		if err := s.openRevision(ctx, r, topic.ID, next); err != nil {
			return err
		}

		result.Topic = topic
		result.IntervalDays = out.IntervalDays
		result.BecameMastered = out.IsMastered && !wasMastered
		result.LostMastery = wasMastered && !out.IsMastered
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("review topic: %w", err)
	}

	s.logger.Info("topic reviewed",
		"topic", result.Topic.ID,
		"level", result.Topic.Level,
		"interval_days", result.IntervalDays,
		"mastered", result.Topic.IsMastered,
	)
	return &result, nil
}

// MarkMissed records that the due review of a topic was skipped. The open
// revision is closed as missed and a replacement opens at the start of the
// next calendar day, so a topic cannot be penalised twice on one day.
func (s *Service) MarkMissed(ctx context.Context, ref string) (*Topic, error) {
	var topic Topic
	err := s.backend.Tx(ctx, func(r store.Repos) error {
		var err error
		topic, err = s.load(ctx, r, ref)
		if err != nil {
			return err
		}
		return s.markMissed(ctx, r, &topic, s.now())
	})
	if err != nil {
		return nil, fmt.Errorf("mark missed: %w", err)
	}
	s.logger.Info("review missed", "topic", topic.ID, "integrity", topic.Integrity, "decay", topic.Decay)
	return &topic, nil
}

func (s *Service) markMissed(ctx context.Context, r store.Repos, topic *Topic, now time.Time) error {
	open, err := r.Revisions.Open(ctx, topic.ID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("topic %s has no open review: %w", topic.ID, ErrNotDue)
	}
	if err != nil {
		return err
	}
	if open.ScheduledAt.After(now) {
		return fmt.Errorf("topic %s is next due %s: %w", topic.ID, open.ScheduledAt.Format(time.RFC3339), ErrNotDue)
	}

	topic.Integrity = s.sched.ApplyMiss(topic.Integrity)
	topic.Decay = spacedrep.CalculateDecayState(topic.NextReviewAt, now)
	if err := r.Topics.Update(ctx, topicToRecord(*topic)); err != nil {
		return err
	}

	if err := r.Revisions.MarkMissed(ctx, open.ID); err != nil {
		return err
	}
	retry := s.startOfToday().AddDate(0, 0, 1)
	if err := s.openRevision(ctx, r, topic.ID, retry); err != nil {
		return err
	}

	desc := fmt.Sprintf("Review due %s was missed. Integrity is now %d%%.",
		dates.FormatDate(open.ScheduledAt), topic.Integrity)
	_, err = timeline.NewRecorder(r.Timeline, s.clock).
		RecordMissedRevision(ctx, topic.ID, topic.Name, desc)
	return err
}

// SweepMissed marks every topic whose open review was due before today as
// missed and returns the affected topics.
func (s *Service) SweepMissed(ctx context.Context) ([]Topic, error) {
	now := s.now()
	cutoff := s.startOfToday()

	var missed []Topic
	err := s.backend.Tx(ctx, func(r store.Repos) error {
		recs, err := r.Topics.DueAt(ctx, now)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			open, err := r.Revisions.Open(ctx, rec.ID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !open.ScheduledAt.Before(cutoff) {
				continue
			}
			topic := topicFromRecord(rec)
			if err := s.markMissed(ctx, r, &topic, now); err != nil {
				return err
			}
			missed = append(missed, topic)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sweep missed reviews: %w", err)
	}
	if len(missed) > 0 {
		s.logger.Info("missed reviews swept", "count", len(missed))
	}
	return missed, nil
}

// RefreshDecay recomputes the stored decay state of every topic and returns
// how many changed.
func (s *Service) RefreshDecay(ctx context.Context) (int, error) {
	now := s.now()
	changed := 0
	err := s.backend.Tx(ctx, func(r store.Repos) error {
		recs, err := r.Topics.List(ctx)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			state := spacedrep.CalculateDecayState(rec.NextReviewAt, now)
			if string(state) == rec.DecayState {
				continue
			}
			rec.DecayState = string(state)
			if err := r.Topics.Update(ctx, rec); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("refresh decay: %w", err)
	}
	return changed, nil
}

// DueTopics returns the topics due now, most urgent first. The decay state
// is recomputed for the returned values. An empty slice means nothing is due.
func (s *Service) DueTopics(ctx context.Context) ([]Topic, error) {
	now := s.now()
	recs, err := s.backend.Repos().Topics.DueAt(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("due topics: %w", err)
	}
	topics := make([]Topic, 0, len(recs))
	for _, rec := range recs {
		t := topicFromRecord(rec)
		t.Decay = spacedrep.CalculateDecayState(t.NextReviewAt, now)
		topics = append(topics, t)
	}
	SortDue(topics)
	return topics, nil
}

// SortDue orders topics by priority, then next review time, then id.
func SortDue(topics []Topic) {
	sort.SliceStable(topics, func(i, j int) bool {
		a, b := topics[i], topics[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		switch {
		case a.NextReviewAt == nil && b.NextReviewAt != nil:
			return false
		case a.NextReviewAt != nil && b.NextReviewAt == nil:
			return true
		case a.NextReviewAt != nil && !a.NextReviewAt.Equal(*b.NextReviewAt):
			return a.NextReviewAt.Before(*b.NextReviewAt)
		}
		return a.ID < b.ID
	})
}

// ListTopics returns every topic in creation order.
func (s *Service) ListTopics(ctx context.Context) ([]Topic, error) {
	recs, err := s.backend.Repos().Topics.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	now := s.now()
	topics := make([]Topic, len(recs))
	for i, rec := range recs {
		topics[i] = topicFromRecord(rec)
		topics[i].Decay = spacedrep.CalculateDecayState(topics[i].NextReviewAt, now)
	}
	return topics, nil
}

// GetTopic returns one topic by id or unique id prefix.
func (s *Service) GetTopic(ctx context.Context, ref string) (*Topic, error) {
	t, err := s.load(ctx, s.backend.Repos(), ref)
	if err != nil {
		return nil, err
	}
	t.Decay = spacedrep.CalculateDecayState(t.NextReviewAt, s.now())
	return &t, nil
}

// DeleteTopic removes a topic and its revision history.
func (s *Service) DeleteTopic(ctx context.Context, ref string) error {
	err := s.backend.Tx(ctx, func(r store.Repos) error {
		id, err := r.Topics.Resolve(ctx, ref)
		if err != nil {
			return err
		}
		return r.Topics.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	s.logger.Info("topic deleted", "ref", ref)
	return nil
}

// History returns a topic's revisions, oldest first.
func (s *Service) History(ctx context.Context, ref string) ([]Revision, error) {
	repos := s.backend.Repos()
	id, err := repos.Topics.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	recs, err := repos.Revisions.ListByTopic(ctx, id)
	if err != nil {
		return nil, err
	}
	revs := make([]Revision, len(recs))
	for i, rec := range recs {
		revs[i] = revisionFromRecord(rec)
	}
	return revs, nil
}

// Summary counts topics by state.
type Summary struct {
	Total    int
	Mastered int
	Due      int
	ByDecay  map[spacedrep.DecayState]int
}

// Summarize returns topic counts at the current time.
func (s *Service) Summarize(ctx context.Context) (Summary, error) {
	topics, err := s.ListTopics(ctx)
	if err != nil {
		return Summary{}, err
	}
	now := s.now()
	sum := Summary{Total: len(topics), ByDecay: map[spacedrep.DecayState]int{}}
	for _, t := range topics {
		if t.IsMastered {
			sum.Mastered++
		}
		if t.IsDue(now) {
			sum.Due++
		}
		sum.ByDecay[t.Decay]++
	}
	return sum, nil
}

func (s *Service) load(ctx context.Context, r store.Repos, ref string) (Topic, error) {
	id, err := r.Topics.Resolve(ctx, ref)
	if err != nil {
		return Topic{}, err
	}
	rec, err := r.Topics.Get(ctx, id)
	if err != nil {
		return Topic{}, err
	}
	return topicFromRecord(*rec), nil
}

func (s *Service) openRevision(ctx context.Context, r store.Repos, topicID string, at time.Time) error {
	return r.Revisions.Append(ctx, store.RevisionRecord{
		ID:          s.newID(),
		TopicID:     topicID,
		ScheduledAt: at,
	})
}
