package spacedrep

// Table is an ascending sequence of review intervals in days. Lookups clamp
// the index into range, so positions past the end reuse the longest interval.
type Table []int

// LevelIntervals is the canonical mastery ladder, indexed by level.
var LevelIntervals = Table{1, 2, 5, 10, 21, 50, 90, 180, 365}

// ReviewCountIntervals is the shorter ladder used by the confidence model,
// indexed by the number of completed reviews.
var ReviewCountIntervals = Table{1, 3, 7, 14, 30}

// MaxLevel is the highest level index in LevelIntervals.
const MaxLevel = 8

// MasteryLevel is the level at which a topic counts as mastered.
const MasteryLevel = 5

// MissedPenalty is the integrity lost for each missed review.
const MissedPenalty = 15

// FullIntegrity is the integrity of a freshly reviewed topic.
const FullIntegrity = 100

// Interval returns the interval at index i, clamped into the table.
// An empty table yields 1 day.
func (t Table) Interval(i int) int {
	if len(t) == 0 {
		return 1
	}
	if i < 0 {
		i = 0
	}
	if i > len(t)-1 {
		i = len(t) - 1
	}
	return t[i]
}

// MaxIndex returns the last valid index of the table.
func (t Table) MaxIndex() int {
	if len(t) == 0 {
		return 0
	}
	return len(t) - 1
}

// IsAscending reports whether the table is non-empty, positive and
// non-decreasing.
func (t Table) IsAscending() bool {
	if len(t) == 0 {
		return false
	}
	for i, v := range t {
		if v <= 0 {
			return false
		}
		if i > 0 && v < t[i-1] {
			return false
		}
	}
	return true
}

// IntervalForLevel returns the canonical interval in days for level.
func IntervalForLevel(level int) int {
	return LevelIntervals.Interval(level)
}
