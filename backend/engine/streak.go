package engine

import (
	"sort"
	"time"

	"github.com/skmehra/ecotrace/lib/utils"
	"github.com/skmehra/ecotrace/models"
)

// ComputeStreak derives the user's consecutive-day count from their entries.
// The walk anchors on today, or on yesterday when today has no entry yet: a
// user who logged yesterday but has not logged today still has a live streak.
// The first gap stops the count. Pure; callers guarantee at most one entry
// per date (the upsert invariant).
func ComputeStreak(entries []models.DailyEntry, today time.Time) int {
	if len(entries) == 0 {
		return 0
	}

	dates := make([]string, 0, len(entries))
	for _, entry := range entries {
		dates = append(dates, entry.Date)
	}
	// ISO dates order lexicographically; walk newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	anchor := today
	if dates[0] != utils.FormatDate(today) {
		anchor = today.AddDate(0, 0, -1)
	}

	streak := 0
	for _, date := range dates {
		expected := utils.FormatDate(anchor)
		if date == expected {
			streak++
			anchor = anchor.AddDate(0, 0, -1)
		} else if date < expected {
			// A gap: entries beyond it do not count even if they are
			// consecutive among themselves.
			break
		}
	}

	return streak
}
