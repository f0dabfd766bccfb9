package stats

import (
	"slices"
	"time"

	"github.com/DieselDot/Trademind/internal/models"
)

// Streak counts consecutive session days ending today. The first date may
// be yesterday instead, for a user who has not traded yet today.
//
// The walk compares the i-th most recent date against today minus i days.
// A streak that starts yesterday therefore stops at 1: its second date is
// compared against yesterday again.
func Streak(dates []time.Time, now time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	seen := make(map[time.Time]bool, len(dates))
	unique := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := models.CalendarDate(d)
		if seen[day] {
			continue
		}
		seen[day] = true
		unique = append(unique, day)
	}
	slices.SortFunc(unique, func(a, b time.Time) int {
		return b.Compare(a)
	})

	today := models.CalendarDate(now)
	yesterday := today.AddDate(0, 0, -1)

	streak := 0
	for i, d := range unique {
		expected := today.AddDate(0, 0, -i)
		switch {
		case d.Equal(expected):
			streak++
		case i == 0 && d.Equal(yesterday):
			streak++
		default:
			return streak
		}
	}
	return streak
}

// SessionDates returns the calendar dates of the completed sessions.
func SessionDates(sessions []models.Session) []time.Time {
	dates := make([]time.Time, 0, len(sessions))
	for _, s := range sessions {
		if s.Completed() {
			dates = append(dates, s.Date)
		}
	}
	return dates
}
