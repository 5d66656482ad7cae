package engine

import (
	"context"
	"fmt"

	storage "github.com/skmehra/ecotrace/backend/storage/persistent"
	"github.com/skmehra/ecotrace/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Metrics is the snapshot an achievement predicate sees. It is rebuilt from
// the store on every evaluation; no cached value is trusted.
type Metrics struct {
	TotalPoints    int
	WeeklyPoints   int
	Streak         int
	EntryCount     int
	Impact         models.ImpactVector
	ChallengesDone int
	Quiz           models.QuizStats
	FriendCount    int
}

// Evaluate re-derives the user's metrics and awards every catalog achievement
// whose predicate newly holds. All new awards are committed in a single
// transaction: ids appended to the earned set, names appended to badges, the
// summed bonus applied to the ledger. Already-earned achievements are never
// re-awarded, so calling Evaluate repeatedly with no new activity is a no-op.
// Returns the achievements awarded by this call.
func (e *Engine) Evaluate(ctx context.Context, userID primitive.ObjectID) ([]models.Achievement, error) {
	user, err := e.store.FindUser(ctx, bson.M{"_id": userID})
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", userID.Hex(), err)
	}

	metrics, err := e.snapshotMetrics(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("computing metrics for %s: %w", userID.Hex(), err)
	}

	var candidates []models.Achievement
	for _, rule := range e.catalog {
		if user.HasEarned(rule.ID) {
			continue
		}
		if rule.Satisfied(metrics) {
			candidates = append(candidates, rule.Achievement)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Award inside one transaction, re-reading the aggregate so a concurrent
	// evaluation cannot double-award: the earned set is re-checked against
	// the transaction's snapshot.
	var awarded []models.Achievement
	err = e.store.WithTransaction(ctx, func(ctx context.Context) error {
		awarded = awarded[:0]

		current, err := e.store.FindUser(ctx, bson.M{"_id": userID})
		if err != nil {
			return err
		}

		bonus := 0
		for _, a := range candidates {
			if current.HasEarned(a.ID) {
				continue
			}
			current.EarnedIDs = append(current.EarnedIDs, a.ID)
			current.Badges = append(current.Badges, a.Name)
			bonus += a.Bonus
			awarded = append(awarded, a)
		}
		if len(awarded) == 0 {
			return nil
		}

		applyDelta(current, bonus, e.now())
		return e.store.SaveUser(ctx, current)
	})
	if err != nil {
		return nil, fmt.Errorf("awarding achievements for %s: %w", userID.Hex(), err)
	}
	if len(awarded) == 0 {
		return nil, nil
	}

	e.log.Info("achievements awarded",
		zap.String("user_id", userID.Hex()),
		zap.Int("count", len(awarded)))

	// Friend fan-out is best-effort and happens after the award commit;
	// a delivery failure never unwinds points.
	e.NotifyFriends(ctx, user, awarded)

	return awarded, nil
}

// snapshotMetrics queries the store fresh for everything a predicate may
// read. Streak, entry count and impact sums come from the entries; points
// and quiz stats from the aggregate; challenge completions from a count.
func (e *Engine) snapshotMetrics(ctx context.Context, user *models.UserAggregate) (Metrics, error) {
	entries, err := e.store.FindEntries(ctx, bson.M{"user_id": user.ID})
	if err != nil {
		return Metrics{}, err
	}

	completions, err := e.store.CountCompletions(ctx, bson.M{"user_id": user.ID})
	if err != nil {
		return Metrics{}, err
	}

	var impact models.ImpactVector
	for _, entry := range entries {
		impact = impact.Add(entry.Impact)
	}

	return Metrics{
		TotalPoints:    user.TotalPoints,
		WeeklyPoints:   user.WeeklyPoints,
		Streak:         ComputeStreak(entries, e.now()),
		EntryCount:     len(entries),
		Impact:         impact,
		ChallengesDone: int(completions),
		Quiz:           user.Quiz,
		FriendCount:    len(user.Friends),
	}, nil
}

// loadOrCreateUser returns the aggregate for userID, lazily creating a
// minimal one when none exists yet. Must run inside a transaction so the
// creation commits together with whatever mutation follows it.
func (e *Engine) loadOrCreateUser(ctx context.Context, userID primitive.ObjectID) (*models.UserAggregate, error) {
	user, err := e.store.FindUser(ctx, bson.M{"_id": userID})
	if err == nil {
		return user, nil
	}
	if err != storage.ErrNotFound {
		return nil, err
	}

	user = &models.UserAggregate{
		ID:              userID,
		LastWeeklyReset: weekKey(e.now()),
		NotifyFriends:   true,
	}
	return e.store.AddUser(ctx, user)
}
