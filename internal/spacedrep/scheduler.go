package spacedrep

import (
	"math"
	"time"
)

// Model tags which scheduling variant a topic follows. A topic keeps its
// model for life; the two are never mixed on one entity.
type Model string

const (
	ModelLevel      Model = "level"
	ModelConfidence Model = "confidence"
)

// IsValid reports whether m is a known model.
func (m Model) IsValid() bool {
	return m == ModelLevel || m == ModelConfidence
}

// Confidence thresholds for the confidence model.
const (
	LowConfidence      = 50
	HighConfidence     = 70
	MasteredConfidence = 70
)

// Policy holds the tunable parameters of the scheduler.
type Policy struct {
	Intervals           Table
	MasteryLevel        int
	MissedPenalty       int
	ConfidenceIntervals Table
}

// DefaultPolicy returns the built-in intervals and thresholds.
func DefaultPolicy() Policy {
	return Policy{
		Intervals:           LevelIntervals,
		MasteryLevel:        MasteryLevel,
		MissedPenalty:       MissedPenalty,
		ConfidenceIntervals: ReviewCountIntervals,
	}
}

// Outcome is the result of scheduling one review.
type Outcome struct {
	Level        int
	ReviewCount  int
	NextReviewAt time.Time
	IntervalDays int
	IsMastered   bool
}

// Scheduler computes review outcomes. It holds no state beyond its policy
// and never errors: out-of-range inputs are clamped.
type Scheduler struct {
	policy Policy
}

// NewScheduler creates a scheduler. Zero-valued policy fields fall back to
// the defaults.
func NewScheduler(p Policy) *Scheduler {
	def := DefaultPolicy()
	if len(p.Intervals) == 0 {
		p.Intervals = def.Intervals
	}
	if p.MasteryLevel <= 0 {
		p.MasteryLevel = def.MasteryLevel
	}
	if p.MissedPenalty <= 0 {
		p.MissedPenalty = def.MissedPenalty
	}
	if len(p.ConfidenceIntervals) == 0 {
		p.ConfidenceIntervals = def.ConfidenceIntervals
	}
	return &Scheduler{policy: p}
}

// Policy returns the effective policy.
func (s *Scheduler) Policy() Policy {
	return s.policy
}

// MaxLevel returns the highest reachable level.
func (s *Scheduler) MaxLevel() int {
	return s.policy.Intervals.MaxIndex()
}

// AdvanceLevel moves level according to feedback, clamped to the table.
func (s *Scheduler) AdvanceLevel(level int, fb Feedback) int {
	level = clamp(level, 0, s.MaxLevel())
	switch fb {
	case FeedbackAgain:
		return 0
	case FeedbackHard:
		return max(0, level-1)
	case FeedbackEasy:
		return min(s.MaxLevel(), level+1)
	default:
		return level
	}
}

// CalculateNextReview applies feedback to a topic at level with
// reviewCount prior reviews.
func (s *Scheduler) CalculateNextReview(level, reviewCount int, fb Feedback, now time.Time) Outcome {
	next := s.AdvanceLevel(level, fb)
	days := s.policy.Intervals.Interval(next)
	return Outcome{
		Level:        next,
		ReviewCount:  reviewCount + 1,
		NextReviewAt: now.AddDate(0, 0, days),
		IntervalDays: days,
		IsMastered:   next >= s.policy.MasteryLevel,
	}
}

// CalculateConfidenceReview schedules a confidence-model review. The base
// interval comes from the review count and is scaled by the confidence
// multiplier; the level is left untouched.
func (s *Scheduler) CalculateConfidenceReview(level, reviewCount, confidence int, now time.Time) Outcome {
	confidence = clamp(confidence, 0, 100)
	base := s.policy.ConfidenceIntervals.Interval(reviewCount)
	days := int(math.Round(float64(base) * ConfidenceMultiplier(confidence)))
	if days < 1 {
		days = 1
	}
	count := reviewCount + 1
	return Outcome{
		Level:        level,
		ReviewCount:  count,
		NextReviewAt: now.AddDate(0, 0, days),
		IntervalDays: days,
		IsMastered:   count >= len(s.policy.ConfidenceIntervals) && confidence >= MasteredConfidence,
	}
}

// ApplyMiss returns integrity after one missed review.
func (s *Scheduler) ApplyMiss(integrity int) int {
	return ApplyMissPenalty(integrity, s.policy.MissedPenalty)
}

// ConfidenceMultiplier scales an interval by self-reported confidence.
// Below 50 it falls linearly to 0.5 at zero, above 70 it rises linearly to
// 1.3 at 100, and it is 1 in between.
func ConfidenceMultiplier(confidence int) float64 {
	c := float64(clamp(confidence, 0, 100))
	switch {
	case confidence < LowConfidence:
		return 0.5 + c/100.0
	case confidence > HighConfidence:
		return 1.0 + 0.3*(c-HighConfidence)/30.0
	default:
		return 1.0
	}
}

var defaultScheduler = NewScheduler(DefaultPolicy())

// AdvanceLevel applies feedback using the canonical table.
func AdvanceLevel(level int, fb Feedback) int {
	return defaultScheduler.AdvanceLevel(level, fb)
}

// CalculateNextReview schedules a review using the canonical table.
func CalculateNextReview(level, reviewCount int, fb Feedback, now time.Time) Outcome {
	return defaultScheduler.CalculateNextReview(level, reviewCount, fb, now)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
