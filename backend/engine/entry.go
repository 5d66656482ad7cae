package engine

import (
	"context"
	"fmt"

	storage "github.com/skmehra/ecotrace/backend/storage/persistent"
	"github.com/skmehra/ecotrace/lib/utils"
	"github.com/skmehra/ecotrace/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UpsertEntry writes the user's journal entry for one calendar day and
// adjusts the point ledger by the net delta. A first save for the date
// inserts the entry and applies its full points; a same-day revision mutates
// the entry in place and applies only newPoints - oldPoints, so retries and
// corrections can never double-count. Entry write and aggregate update commit
// atomically.
//
// Points and impact come from the AI analysis collaborator and are applied
// as-is; only the date is validated here.
//
// After the commit, achievement evaluation runs for the user; any
// newly-earned achievements are returned alongside the entry id. The
// evaluation is a separate transaction: its bonuses are additive and
// idempotent, so an evaluation failure leaves a correct ledger and is only
// logged.
func (e *Engine) UpsertEntry(ctx context.Context, userID primitive.ObjectID, date, text string, impact models.ImpactVector, points int, comment string, actions []string) (primitive.ObjectID, []models.Achievement, error) {
	if !utils.ValidDate(date) {
		return primitive.NilObjectID, nil, fmt.Errorf("invalid date %q: want YYYY-MM-DD", date)
	}

	var entryID primitive.ObjectID
	err := e.store.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := e.store.FindEntry(ctx, bson.M{"user_id": userID, "date": date})
		if err != nil && err != storage.ErrNotFound {
			return err
		}

		var delta int
		var impactDelta models.ImpactVector
		newEntry := existing == nil

		if newEntry {
			entry := &models.DailyEntry{
				UserID:    userID,
				Date:      date,
				Text:      text,
				Impact:    impact,
				Points:    points,
				Comment:   comment,
				Actions:   actions,
				UpdatedAt: e.now(),
			}
			if _, err := e.store.AddEntry(ctx, entry); err != nil {
				return err
			}
			entryID = entry.ID
			delta = points
			impactDelta = impact
		} else {
			delta = points - existing.Points
			impactDelta = impact.Sub(existing.Impact)

			existing.Text = text
			existing.Impact = impact
			existing.Points = points
			existing.Comment = comment
			existing.Actions = actions
			existing.UpdatedAt = e.now()
			if err := e.store.SaveEntry(ctx, existing); err != nil {
				return err
			}
			entryID = existing.ID
		}

		user, err := e.loadOrCreateUser(ctx, userID)
		if err != nil {
			return err
		}

		applyDelta(user, delta, e.now())
		user.ImpactTotals = user.ImpactTotals.Add(impactDelta)
		if newEntry {
			user.EntryCount++
		}

		return e.store.SaveUser(ctx, user)
	})
	if err != nil {
		return primitive.NilObjectID, nil, fmt.Errorf("upserting entry for %s on %s: %w", userID.Hex(), date, err)
	}

	earned, err := e.Evaluate(ctx, userID)
	if err != nil {
		e.log.Warn("achievement evaluation failed after entry upsert",
			zap.String("user_id", userID.Hex()),
			zap.String("date", date),
			zap.Error(err))
		return entryID, nil, nil
	}

	return entryID, earned, nil
}
