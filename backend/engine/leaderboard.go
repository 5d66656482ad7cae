package engine

import (
	"context"
	"fmt"

	"github.com/skmehra/ecotrace/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Leaderboard returns up to limit public users ranked by weekly points.
func (e *Engine) Leaderboard(ctx context.Context, limit int64) ([]models.LeaderboardRow, error) {
	users, err := e.store.TopUsers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("loading leaderboard: %w", err)
	}

	rows := make([]models.LeaderboardRow, 0, len(users))
	for i, user := range users {
		rows = append(rows, models.LeaderboardRow{
			UserID:       user.ID,
			DisplayName:  user.DisplayName,
			WeeklyPoints: user.WeeklyPoints,
			TotalPoints:  user.TotalPoints,
			Rank:         i + 1,
		})
	}
	return rows, nil
}

// Streak returns the user's current day streak, computed fresh from their
// entries.
func (e *Engine) Streak(ctx context.Context, userID primitive.ObjectID) (int, error) {
	entries, err := e.store.FindEntries(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("loading entries for %s: %w", userID.Hex(), err)
	}
	return ComputeStreak(entries, e.now()), nil
}

// Profile returns the user's aggregate record.
func (e *Engine) Profile(ctx context.Context, userID primitive.ObjectID) (*models.UserAggregate, error) {
	return e.store.FindUser(ctx, bson.M{"_id": userID})
}
