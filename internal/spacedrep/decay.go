package spacedrep

import "time"

// DecayState buckets how far past due a topic is.
type DecayState string

const (
	DecayFresh    DecayState = "fresh"
	DecayDue      DecayState = "due"
	DecayOverdue  DecayState = "overdue"
	DecayCritical DecayState = "critical"
)

// OverdueThresholdDays is the last whole-day lateness still classed as
// overdue; anything later is critical.
const OverdueThresholdDays = 3

// Severity orders decay states from mildest (0) to most severe (3).
func (d DecayState) Severity() int {
	switch d {
	case DecayDue:
		return 1
	case DecayOverdue:
		return 2
	case DecayCritical:
		return 3
	default:
		return 0
	}
}

// CalculateDecayState classifies a topic from its next review timestamp.
// A nil timestamp or one still in the future is fresh. Otherwise the whole
// days late decide the bucket: 0 is due, 1-3 overdue, more is critical.
func CalculateDecayState(nextReviewAt *time.Time, now time.Time) DecayState {
	if !NeedsReviewToday(nextReviewAt, now) {
		return DecayFresh
	}
	late := int(now.Sub(*nextReviewAt).Hours() / 24.0)
	switch {
	case late <= 0:
		return DecayDue
	case late <= OverdueThresholdDays:
		return DecayOverdue
	default:
		return DecayCritical
	}
}

// NeedsReviewToday reports whether a review is due at now. A review due
// exactly now counts as due.
func NeedsReviewToday(nextReviewAt *time.Time, now time.Time) bool {
	if nextReviewAt == nil {
		return false
	}
	return !nextReviewAt.After(now)
}

// OverdueDays returns fractional days past due, or 0 when not due.
func OverdueDays(nextReviewAt *time.Time, now time.Time) float64 {
	if !NeedsReviewToday(nextReviewAt, now) {
		return 0
	}
	return now.Sub(*nextReviewAt).Hours() / 24.0
}

// DaysUntilReview returns the number of days until the next review, rounded
// up. Returns 0 if already due or unscheduled.
func DaysUntilReview(nextReviewAt *time.Time, now time.Time) int {
	if nextReviewAt == nil || NeedsReviewToday(nextReviewAt, now) {
		return 0
	}
	return int(nextReviewAt.Sub(now).Hours()/24.0) + 1
}

// ApplyMissPenalty lowers integrity by penalty, floored at zero.
func ApplyMissPenalty(integrity, penalty int) int {
	integrity -= penalty
	if integrity < 0 {
		return 0
	}
	return integrity
}
