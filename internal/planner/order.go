package planner

import "sort"

// SortAgenda orders tasks for display: priority ascending with unset last,
// then timed before untimed, then by time, creation and id.
func SortAgenda(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return agendaLess(tasks[i], tasks[j])
	})
}

func agendaLess(a, b Task) bool {
	if pa, pb := priorityRank(a), priorityRank(b); pa != pb {
		return pa < pb
	}
	if a.ScheduledDate != b.ScheduledDate {
		return a.ScheduledDate < b.ScheduledDate
	}
	switch {
	case a.ScheduledTime != nil && b.ScheduledTime == nil:
		return true
	case a.ScheduledTime == nil && b.ScheduledTime != nil:
		return false
	case a.ScheduledTime != nil && *a.ScheduledTime != *b.ScheduledTime:
		return *a.ScheduledTime < *b.ScheduledTime
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// priorityRank maps unset priority after every set one.
func priorityRank(t Task) int {
	if t.Priority == nil {
		return MaxPriority + 1
	}
	return *t.Priority
}
