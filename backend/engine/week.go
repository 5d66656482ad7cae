package engine

import (
	"time"

	"github.com/skmehra/ecotrace/lib/utils"
	"github.com/skmehra/ecotrace/models"
)

// weekKey returns the ISO date of the most recent Monday at or before t.
// It is the key of the current week window; ISO dates compare correctly
// as strings, so an older window key is simply a lexicographically
// smaller one.
func weekKey(t time.Time) string {
	// time.Weekday has Sunday == 0; shift so Monday == 0.
	back := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -back)
	return utils.FormatDate(monday)
}

// applyDelta applies one net point change to the ledger. TotalPoints always
// absorbs the delta; WeeklyPoints is reset to the delta when the stored
// window key is older than the current one, and accumulated otherwise.
// Must only be called on an aggregate loaded inside the enclosing
// transaction.
func applyDelta(u *models.UserAggregate, delta int, now time.Time) {
	wk := weekKey(now)
	if u.LastWeeklyReset < wk {
		u.WeeklyPoints = delta
		u.LastWeeklyReset = wk
	} else {
		u.WeeklyPoints += delta
	}
	u.TotalPoints += delta
}
