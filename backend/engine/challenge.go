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

// CompleteChallenge records a one-shot challenge completion and credits the
// challenge's fixed points as a ledger delta, both in one transaction. The
// completion record is the idempotency guard: a repeat completion returns
// ErrChallengeCompleted without touching the ledger, so a retried request
// can never double-apply the points.
func (e *Engine) CompleteChallenge(ctx context.Context, challengeID, userID primitive.ObjectID) ([]models.Achievement, error) {
	challenge, err := e.store.FindChallenge(ctx, bson.M{"_id": challengeID})
	if err != nil {
		return nil, fmt.Errorf("loading challenge %s: %w", challengeID.Hex(), err)
	}

	err = e.store.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := e.store.FindCompletion(ctx, bson.M{"challenge_id": challengeID, "user_id": userID})
		if err == nil {
			return storage.ErrChallengeCompleted
		}
		if err != storage.ErrNotFound {
			return err
		}

		completion := &models.ChallengeCompletion{
			ChallengeID: challengeID,
			UserID:      userID,
			CompletedAt: e.now(),
		}
		if _, err := e.store.AddCompletion(ctx, completion); err != nil {
			return err
		}

		user, err := e.loadOrCreateUser(ctx, userID)
		if err != nil {
			return err
		}

		applyDelta(user, challenge.Points, e.now())
		user.ChallengesDone++

		return e.store.SaveUser(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("completing challenge %s for %s: %w", challengeID.Hex(), userID.Hex(), err)
	}

	earned, err := e.Evaluate(ctx, userID)
	if err != nil {
		e.log.Warn("achievement evaluation failed after challenge completion",
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
		return nil, nil
	}

	return earned, nil
}
