package engine

import (
	"context"
	"testing"

	"github.com/skmehra/ecotrace/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func getUser(t *testing.T, store *memStore, id primitive.ObjectID) *models.UserAggregate {
	t.Helper()
	user, err := store.FindUser(context.Background(), bson.M{"_id": id})
	require.NoError(t, err)
	return user
}

func TestUpsertEntryFirstSave(t *testing.T) {
	store := newMemStore()
	e := testEngine(store, nil, nil)
	userID := primitive.NewObjectID()

	impact := models.ImpactVector{CO2: 2.5, Water: 30}
	entryID, earned, err := e.UpsertEntry(context.Background(), userID, daysAgo(0),
		"biked to work instead of driving", impact, 40, "great choice", []string{"try carpooling on rainy days"})
	require.NoError(t, err)
	assert.False(t, entryID.IsZero())
	assert.Empty(t, earned)

	entry, err := store.FindEntry(context.Background(), bson.M{"user_id": userID, "date": daysAgo(0)})
	require.NoError(t, err)
	assert.Equal(t, entryID, entry.ID)
	assert.Equal(t, 40, entry.Points)

	user := getUser(t, store, userID)
	assert.Equal(t, 40, user.TotalPoints)
	assert.Equal(t, 40, user.WeeklyPoints)
	assert.Equal(t, "2024-05-13", user.LastWeeklyReset)
	assert.Equal(t, 1, user.EntryCount)
	assert.InDelta(t, 2.5, user.ImpactTotals.CO2, 1e-9)
	assert.InDelta(t, 30, user.ImpactTotals.Water, 1e-9)
	assert.True(t, user.NotifyFriends, "lazily created users default to notifying friends")
}

func TestUpsertEntrySameDayRevisionAppliesOnlyTheDelta(t *testing.T) {
	store := newMemStore()
	e := testEngine(store, nil, nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	firstID, _, err := e.UpsertEntry(ctx, userID, daysAgo(0), "drove to work",
		models.ImpactVector{CO2: -1.0}, 30, "", nil)
	require.NoError(t, err)

	secondID, _, err := e.UpsertEntry(ctx, userID, daysAgo(0), "actually biked to work",
		models.ImpactVector{CO2: 2.0}, 10, "", nil)
	require.NoError(t, err)
	assert.Equal(t, firstID, secondID, "a same-day revision rewrites the existing entry")

	entries, err := store.FindEntries(ctx, bson.M{"user_id": userID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "actually biked to work", entries[0].Text)
	assert.Equal(t, 10, entries[0].Points)

	user := getUser(t, store, userID)
	assert.Equal(t, 10, user.TotalPoints, "revision must replace, never add to, the day's points")
	assert.Equal(t, 10, user.WeeklyPoints)
	assert.Equal(t, 1, user.EntryCount)
	assert.InDelta(t, 2.0, user.ImpactTotals.CO2, 1e-9)
}

func TestUpsertEntryIdenticalRetryIsIdempotent(t *testing.T) {
	store := newMemStore()
	e := testEngine(store, nil, nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := e.UpsertEntry(ctx, userID, daysAgo(0), "composted food scraps",
			models.ImpactVector{Waste: 0.5}, 25, "", nil)
		require.NoError(t, err)
	}

	user := getUser(t, store, userID)
	assert.Equal(t, 25, user.TotalPoints)
	assert.Equal(t, 1, user.EntryCount)
	assert.InDelta(t, 0.5, user.ImpactTotals.Waste, 1e-9)
}

func TestUpsertEntryResetsStaleWeeklyWindow(t *testing.T) {
	store := newMemStore()
	e := testEngine(store, nil, nil)
	ctx := context.Background()

	user, err := store.AddUser(ctx, &models.UserAggregate{
		TotalPoints:     200,
		WeeklyPoints:    55,
		LastWeeklyReset: "2024-05-06",
	})
	require.NoError(t, err)

	_, _, err = e.UpsertEntry(ctx, user.ID, daysAgo(0), "meatless monday",
		models.ImpactVector{Food: 1.2}, 20, "", nil)
	require.NoError(t, err)

	got := getUser(t, store, user.ID)
	assert.Equal(t, 220, got.TotalPoints)
	assert.Equal(t, 20, got.WeeklyPoints, "the stale window's points must not leak into the new week")
	assert.Equal(t, "2024-05-13", got.LastWeeklyReset)
}

func TestUpsertEntryRejectsMalformedDate(t *testing.T) {
	store := newMemStore()
	e := testEngine(store, nil, nil)

	for _, date := range []string{"", "15-05-2024", "2024/05/15", "2024-13-40", "yesterday"} {
		_, _, err := e.UpsertEntry(context.Background(), primitive.NewObjectID(), date,
			"text", models.ImpactVector{}, 10, "", nil)
		assert.Error(t, err, "date %q", date)
	}
	assert.Empty(t, store.entries)
	assert.Empty(t, store.users)
}

func TestUpsertEntryCommitFailureLeavesNoPartialState(t *testing.T) {
	store := newMemStore()
	e := testEngine(store, nil, nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	_, _, err := e.UpsertEntry(ctx, userID, daysAgo(1), "reusable bottle all day",
		models.ImpactVector{Waste: 0.1}, 15, "", nil)
	require.NoError(t, err)

	store.failCommits = 1
	_, _, err = e.UpsertEntry(ctx, userID, daysAgo(0), "air-dried the laundry",
		models.ImpactVector{Energy: 3.0}, 35, "", nil)
	require.ErrorIs(t, err, errCommitFailed)

	_, err = store.FindEntry(ctx, bson.M{"user_id": userID, "date": daysAgo(0)})
	assert.Error(t, err, "the failed batch must not leave the entry behind")

	user := getUser(t, store, userID)
	assert.Equal(t, 15, user.TotalPoints, "the failed batch must not touch the ledger")
	assert.Equal(t, 1, user.EntryCount)

	// The retry converges on exactly the state a single success would have
	// produced.
	_, _, err = e.UpsertEntry(ctx, userID, daysAgo(0), "air-dried the laundry",
		models.ImpactVector{Energy: 3.0}, 35, "", nil)
	require.NoError(t, err)

	user = getUser(t, store, userID)
	assert.Equal(t, 50, user.TotalPoints)
	assert.Equal(t, 2, user.EntryCount)
	assert.InDelta(t, 3.0, user.ImpactTotals.Energy, 1e-9)
}
