package spacedrep

import (
	"fmt"
	"strings"
)

// Feedback is the learner's self-assessment after a review.
type Feedback string

const (
	FeedbackAgain Feedback = "again"
	FeedbackHard  Feedback = "hard"
	FeedbackGood  Feedback = "good"
	FeedbackEasy  Feedback = "easy"
)

// AllFeedback returns the feedback values in key order (1-4 on the board).
func AllFeedback() []Feedback {
	return []Feedback{FeedbackAgain, FeedbackHard, FeedbackGood, FeedbackEasy}
}

// IsValid reports whether f is one of the four known values.
func (f Feedback) IsValid() bool {
	switch f {
	case FeedbackAgain, FeedbackHard, FeedbackGood, FeedbackEasy:
		return true
	}
	return false
}

// ParseFeedback accepts a name ("easy") or a key number ("4").
func ParseFeedback(s string) (Feedback, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "1":
		return FeedbackAgain, nil
	case "2":
		return FeedbackHard, nil
	case "3":
		return FeedbackGood, nil
	case "4":
		return FeedbackEasy, nil
	}
	f := Feedback(s)
	if !f.IsValid() {
		return "", fmt.Errorf("unknown feedback %q (want again, hard, good or easy)", s)
	}
	return f, nil
}
