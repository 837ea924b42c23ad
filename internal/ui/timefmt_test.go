package ui

import (
	"testing"
	"time"
)

func TestFormatWhen(t *testing.T) {
	now := time.Date(2026, time.August, 29, 18, 30, 0, 0, time.Local)

	cases := []struct {
		name string
		at   time.Time
		want string
	}{
		{"zero", time.Time{}, ""},
		{"today", time.Date(2026, time.August, 29, 9, 5, 0, 0, time.Local), "09:05"},
		{"yesterday", time.Date(2026, time.August, 28, 12, 0, 0, 0, time.Local), "Fri"},
		{"six days ago", time.Date(2026, time.August, 23, 20, 0, 0, 0, time.Local), "Sun"},
		{"older", time.Date(2026, time.July, 4, 12, 0, 0, 0, time.Local), "Jul 4"},
		{"last year", time.Date(2025, time.December, 31, 12, 0, 0, 0, time.Local), "Dec 31"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatWhen(tc.at, now); got != tc.want {
				t.Fatalf("formatWhen(%v) = %q, want %q", tc.at, got, tc.want)
			}
		})
	}
}
