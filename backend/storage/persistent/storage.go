package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/skmehra/ecotrace/models"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrChallengeCompleted is returned when a user tries to complete a
// challenge they have already completed. The ledger must never apply the
// same challenge delta twice.
var ErrChallengeCompleted = errors.New("challenge already completed")

// StorageInterface defines the set of methods that any persistent storage
// backend needs to implement. Every mutation of shared ledger state must
// happen inside WithTransaction so that an entry write and its aggregate
// update commit or fail as one unit.
type StorageInterface interface {
	// Establishes a connection to the storage backend.
	Connect(dbName, uri string) error
	// Disconnects from the storage backend.
	Disconnect() error
	// Runs fn inside an atomic multi-document transaction. Every read and
	// write fn performs through the ctx it receives observes a consistent
	// snapshot; if fn returns an error nothing is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Finds a single daily entry using a filter.
	FindEntry(ctx context.Context, filter interface{}) (*models.DailyEntry, error)
	// Finds all daily entries matching a filter.
	FindEntries(ctx context.Context, filter interface{}) ([]models.DailyEntry, error)
	// Adds a new daily entry.
	AddEntry(ctx context.Context, entry *models.DailyEntry) (*models.DailyEntry, error)
	// Saves an existing daily entry in full, by id.
	SaveEntry(ctx context.Context, entry *models.DailyEntry) error

	// Finds a user aggregate using a filter.
	FindUser(ctx context.Context, filter interface{}) (*models.UserAggregate, error)
	// Adds a new user aggregate.
	AddUser(ctx context.Context, user *models.UserAggregate) (*models.UserAggregate, error)
	// Saves an existing user aggregate in full, by id.
	SaveUser(ctx context.Context, user *models.UserAggregate) error
	// Returns the top user aggregates ordered by weekly points descending.
	TopUsers(ctx context.Context, limit int64) ([]models.UserAggregate, error)

	// Finds a challenge using a filter.
	FindChallenge(ctx context.Context, filter interface{}) (*models.Challenge, error)
	// Adds a new challenge.
	AddChallenge(ctx context.Context, challenge *models.Challenge) (*models.Challenge, error)
	// Finds a challenge completion record using a filter.
	FindCompletion(ctx context.Context, filter interface{}) (*models.ChallengeCompletion, error)
	// Adds a new challenge completion record.
	AddCompletion(ctx context.Context, completion *models.ChallengeCompletion) (*models.ChallengeCompletion, error)
	// Returns the count of completion records matching a filter.
	CountCompletions(ctx context.Context, filter interface{}) (int64, error)
}

// NewStorage creates a new StorageInterface with a MongoDB backend,
// using the provided URI to connect to the MongoDB server.
func NewStorage(dbName, uri string) (StorageInterface, error) {
	storage := NewMongoStorage()
	err := storage.Connect(dbName, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return storage, nil
}
