package engine

import (
	"testing"
	"time"

	"github.com/skmehra/ecotrace/models"
	"github.com/stretchr/testify/assert"
)

func TestWeekKey(t *testing.T) {
	cases := []struct {
		day  time.Time
		want string
	}{
		{time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), "2024-05-13"},  // Monday maps to itself
		{time.Date(2024, 5, 15, 23, 59, 0, 0, time.UTC), "2024-05-13"}, // mid-week
		{time.Date(2024, 5, 19, 1, 0, 0, 0, time.UTC), "2024-05-13"},  // Sunday still belongs to Monday's window
		{time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), "2024-05-20"},  // next Monday opens a new window
	}

	for _, c := range cases {
		assert.Equal(t, c.want, weekKey(c.day), "weekKey(%s)", c.day)
	}
}

func TestApplyDeltaNewWindowResets(t *testing.T) {
	user := &models.UserAggregate{
		TotalPoints:     200,
		WeeklyPoints:    55,
		LastWeeklyReset: "2024-05-06",
	}

	applyDelta(user, 20, testNow)

	assert.Equal(t, 220, user.TotalPoints)
	assert.Equal(t, 20, user.WeeklyPoints, "weekly points must be the delta, not delta plus stale window")
	assert.Equal(t, "2024-05-13", user.LastWeeklyReset)
}

func TestApplyDeltaSameWindowAccumulates(t *testing.T) {
	user := &models.UserAggregate{
		TotalPoints:     200,
		WeeklyPoints:    55,
		LastWeeklyReset: "2024-05-13",
	}

	applyDelta(user, 20, testNow)

	assert.Equal(t, 220, user.TotalPoints)
	assert.Equal(t, 75, user.WeeklyPoints)
	assert.Equal(t, "2024-05-13", user.LastWeeklyReset)
}

func TestApplyDeltaNegativeRevision(t *testing.T) {
	user := &models.UserAggregate{
		TotalPoints:     100,
		WeeklyPoints:    40,
		LastWeeklyReset: "2024-05-13",
	}

	applyDelta(user, -15, testNow)

	assert.Equal(t, 85, user.TotalPoints)
	assert.Equal(t, 25, user.WeeklyPoints)
}
