package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/skmehra/ecotrace/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrInvalidQuizResult is returned when a quiz round reports an impossible
// score, such as more correct answers than questions.
var ErrInvalidQuizResult = errors.New("invalid quiz result")

// RecordQuizResult applies one quiz round to the user's quiz stats and
// credits its points as a ledger delta, in one transaction. A fully-correct
// round extends the current quiz streak, anything less resets it; the streak
// is what the "Perfect Score" achievement reads.
func (e *Engine) RecordQuizResult(ctx context.Context, userID primitive.ObjectID, correct, total, points int) ([]models.Achievement, error) {
	if total <= 0 || correct < 0 || correct > total {
		return nil, fmt.Errorf("%w: %d/%d", ErrInvalidQuizResult, correct, total)
	}

	err := e.store.WithTransaction(ctx, func(ctx context.Context) error {
		user, err := e.loadOrCreateUser(ctx, userID)
		if err != nil {
			return err
		}

		user.Quiz.Total++
		user.Quiz.Correct += correct
		if correct == total {
			user.Quiz.CurrentStreak++
			if user.Quiz.CurrentStreak > user.Quiz.BestStreak {
				user.Quiz.BestStreak = user.Quiz.CurrentStreak
			}
		} else {
			user.Quiz.CurrentStreak = 0
		}

		applyDelta(user, points, e.now())

		return e.store.SaveUser(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("recording quiz result for %s: %w", userID.Hex(), err)
	}

	earned, err := e.Evaluate(ctx, userID)
	if err != nil {
		e.log.Warn("achievement evaluation failed after quiz result",
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
		return nil, nil
	}

	return earned, nil
}
