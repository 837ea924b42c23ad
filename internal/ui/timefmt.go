package ui

import "time"

// timeNow is swapped out in tests.
var timeNow = time.Now

// formatWhen renders a timestamp the way a chat listing expects: clock time
// for today, weekday within the last week, date otherwise.
func formatWhen(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now = now.Local()

	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if now.Sub(t) < 7*24*time.Hour {
		return t.Format("Mon")
	}
	return t.Format("Jan 2")
}
