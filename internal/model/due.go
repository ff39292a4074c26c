package model

import "time"

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func IsOverdue(due, now time.Time) bool {
	return now.After(due)
}

// RelativeDue renders a due date as "Today", "Tomorrow" or "Jan 2, 2006".
func RelativeDue(due, now time.Time) string {
	due = due.In(now.Location())
	if sameDay(due, now) {
		return "Today"
	}
	if sameDay(due, now.AddDate(0, 0, 1)) {
		return "Tomorrow"
	}
	return due.Format("Jan 2, 2006")
}
