package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/skmehra/ecotrace/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// NotifyFriends fans one notification out per (friend, achievement) pair.
// Each attempt runs in its own goroutine: one failure neither blocks nor
// rolls back the others, and never the award itself, which is already
// committed by the time this runs. Failures are logged and discarded.
func (e *Engine) NotifyFriends(ctx context.Context, user *models.UserAggregate, achievements []models.Achievement) {
	if e.notifier == nil || len(user.Friends) == 0 || len(achievements) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, friendID := range user.Friends {
		friend, err := e.store.FindUser(ctx, bson.M{"_id": friendID})
		if err != nil {
			e.log.Warn("skipping unreachable friend",
				zap.String("friend_id", friendID.Hex()),
				zap.Error(err))
			continue
		}
		if !friend.NotifyFriends {
			continue
		}

		for _, achievement := range achievements {
			msg := &models.NotificationMessage{
				ID:              uuid.NewString(),
				To:              friend.Email,
				FriendName:      friend.DisplayName,
				AchieverName:    user.DisplayName,
				AchievementName: achievement.Name,
			}

			wg.Add(1)
			go func(msg *models.NotificationMessage) {
				defer wg.Done()
				if err := e.notifier.Notify(ctx, msg); err != nil {
					e.log.Warn("achievement notification failed",
						zap.String("to", msg.To),
						zap.String("achievement", msg.AchievementName),
						zap.Error(err))
				}
			}(msg)
		}
	}
	wg.Wait()
}
