package engine

import (
	"context"
	"fmt"

	"github.com/skmehra/ecotrace/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EnsureProfile lazily creates the user's aggregate record on first contact
// and refreshes its display fields. The ledger fields are untouched: profile
// updates never change points.
func (e *Engine) EnsureProfile(ctx context.Context, userID primitive.ObjectID, displayName, email string) (*models.UserAggregate, error) {
	var user *models.UserAggregate
	err := e.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = e.loadOrCreateUser(ctx, userID)
		if err != nil {
			return err
		}
		if displayName != "" {
			user.DisplayName = displayName
		}
		if email != "" {
			user.Email = email
		}
		return e.store.SaveUser(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("ensuring profile for %s: %w", userID.Hex(), err)
	}
	return user, nil
}
