package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/skmehra/ecotrace/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// captureNotifier records every message it is handed and can be told to fail
// for specific recipients.
type captureNotifier struct {
	mu      sync.Mutex
	sent    []models.NotificationMessage
	failFor map[string]bool
}

func (n *captureNotifier) Notify(ctx context.Context, msg *models.NotificationMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, *msg)
	if n.failFor[msg.To] {
		return errors.New("smtp: connection refused")
	}
	return nil
}

func (n *captureNotifier) recipients() map[string]int {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := map[string]int{}
	for _, msg := range n.sent {
		out[msg.To]++
	}
	return out
}

func TestNotifyFriendsFansOutPerFriendAndAchievement(t *testing.T) {
	store := newMemStore()
	notifier := &captureNotifier{}
	e := testEngine(store, nil, notifier)
	ctx := context.Background()

	alice, err := store.AddUser(ctx, &models.UserAggregate{
		DisplayName: "Alice", Email: "alice@example.com", NotifyFriends: true,
	})
	require.NoError(t, err)
	bob, err := store.AddUser(ctx, &models.UserAggregate{
		DisplayName: "Bob", Email: "bob@example.com", NotifyFriends: true,
	})
	require.NoError(t, err)
	// Carol has opted out of friend notifications.
	carol, err := store.AddUser(ctx, &models.UserAggregate{
		DisplayName: "Carol", Email: "carol@example.com", NotifyFriends: false,
	})
	require.NoError(t, err)

	achiever := &models.UserAggregate{
		DisplayName: "Dana",
		Friends:     []primitive.ObjectID{alice.ID, bob.ID, carol.ID},
	}

	achievements := []models.Achievement{
		{ID: "streak_7", Name: "Week Streak"},
		{ID: "points_100", Name: "Century"},
	}
	e.NotifyFriends(ctx, achiever, achievements)

	got := notifier.recipients()
	assert.Equal(t, 2, got["alice@example.com"], "one message per achievement")
	assert.Equal(t, 2, got["bob@example.com"])
	assert.Zero(t, got["carol@example.com"], "opted-out friends receive nothing")

	for _, msg := range notifier.sent {
		assert.NotEmpty(t, msg.ID, "every message carries a dedupe id")
		assert.Equal(t, "Dana", msg.AchieverName)
	}
}

func TestNotifyFriendsOneFailureDoesNotBlockOthers(t *testing.T) {
	store := newMemStore()
	notifier := &captureNotifier{failFor: map[string]bool{"bob@example.com": true}}
	e := testEngine(store, nil, notifier)
	ctx := context.Background()

	alice, err := store.AddUser(ctx, &models.UserAggregate{
		DisplayName: "Alice", Email: "alice@example.com", NotifyFriends: true,
	})
	require.NoError(t, err)
	bob, err := store.AddUser(ctx, &models.UserAggregate{
		DisplayName: "Bob", Email: "bob@example.com", NotifyFriends: true,
	})
	require.NoError(t, err)

	achiever := &models.UserAggregate{
		DisplayName: "Dana",
		Friends:     []primitive.ObjectID{bob.ID, alice.ID},
	}

	e.NotifyFriends(ctx, achiever, []models.Achievement{{ID: "first_entry", Name: "First Steps"}})

	got := notifier.recipients()
	assert.Equal(t, 1, got["alice@example.com"], "a failed delivery must not suppress the rest")
	assert.Equal(t, 1, got["bob@example.com"], "the failing recipient is still attempted")
}

func TestNotifyFriendsNoopCases(t *testing.T) {
	store := newMemStore()
	notifier := &captureNotifier{}
	e := testEngine(store, nil, notifier)
	ctx := context.Background()

	friendless := &models.UserAggregate{DisplayName: "Dana"}
	e.NotifyFriends(ctx, friendless, []models.Achievement{{ID: "first_entry"}})
	assert.Empty(t, notifier.sent)

	achiever := &models.UserAggregate{DisplayName: "Dana", Friends: []primitive.ObjectID{}}
	e.NotifyFriends(ctx, achiever, nil)
	assert.Empty(t, notifier.sent)

	// A nil notifier is legal and must not panic.
	bare := testEngine(store, nil, nil)
	bare.NotifyFriends(ctx, friendless, []models.Achievement{{ID: "first_entry"}})
}
