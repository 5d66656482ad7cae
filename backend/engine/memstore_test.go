package engine

import (
	"context"
	"errors"
	"sort"
	"sync"

	storage "github.com/skmehra/ecotrace/backend/storage/persistent"
	"github.com/skmehra/ecotrace/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// errCommitFailed simulates a store that cannot commit its batch.
var errCommitFailed = errors.New("commit failed: store unavailable")

// memStore is an in-memory StorageInterface with real transaction semantics:
// WithTransaction snapshots all state before running the callback and
// restores the snapshot when the callback errors or a forced commit failure
// is armed. Reads hand out copies the way a driver decode would, so callers
// never alias stored state.
type memStore struct {
	mu          sync.Mutex
	entries     map[primitive.ObjectID]models.DailyEntry
	users       map[primitive.ObjectID]models.UserAggregate
	challenges  map[primitive.ObjectID]models.Challenge
	completions map[primitive.ObjectID]models.ChallengeCompletion

	// failCommits forces that many upcoming transactions to fail at commit
	// time, after the callback has run, with a full rollback.
	failCommits int
}

func newMemStore() *memStore {
	return &memStore{
		entries:     map[primitive.ObjectID]models.DailyEntry{},
		users:       map[primitive.ObjectID]models.UserAggregate{},
		challenges:  map[primitive.ObjectID]models.Challenge{},
		completions: map[primitive.ObjectID]models.ChallengeCompletion{},
	}
}

func (m *memStore) Connect(dbName, uri string) error { return nil }
func (m *memStore) Disconnect() error                { return nil }

func cloneEntry(e models.DailyEntry) models.DailyEntry {
	e.Actions = append([]string(nil), e.Actions...)
	return e
}

func cloneUser(u models.UserAggregate) models.UserAggregate {
	u.Badges = append([]string(nil), u.Badges...)
	u.EarnedIDs = append([]string(nil), u.EarnedIDs...)
	u.Friends = append([]primitive.ObjectID(nil), u.Friends...)
	return u
}

func (m *memStore) snapshot() (map[primitive.ObjectID]models.DailyEntry, map[primitive.ObjectID]models.UserAggregate, map[primitive.ObjectID]models.Challenge, map[primitive.ObjectID]models.ChallengeCompletion) {
	entries := make(map[primitive.ObjectID]models.DailyEntry, len(m.entries))
	for id, e := range m.entries {
		entries[id] = cloneEntry(e)
	}
	users := make(map[primitive.ObjectID]models.UserAggregate, len(m.users))
	for id, u := range m.users {
		users[id] = cloneUser(u)
	}
	challenges := make(map[primitive.ObjectID]models.Challenge, len(m.challenges))
	for id, c := range m.challenges {
		challenges[id] = c
	}
	completions := make(map[primitive.ObjectID]models.ChallengeCompletion, len(m.completions))
	for id, c := range m.completions {
		completions[id] = c
	}
	return entries, users, challenges, completions
}

func (m *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, users, challenges, completions := m.snapshot()

	rollback := func() {
		m.entries = entries
		m.users = users
		m.challenges = challenges
		m.completions = completions
	}

	err := fn(ctx)
	if err != nil {
		rollback()
		return err
	}
	if m.failCommits > 0 {
		m.failCommits--
		rollback()
		return errCommitFailed
	}
	return nil
}

func matchID(got primitive.ObjectID, want interface{}) bool {
	id, ok := want.(primitive.ObjectID)
	return ok && got == id
}

func entryMatches(e models.DailyEntry, filter bson.M) bool {
	for key, want := range filter {
		switch key {
		case "_id":
			if !matchID(e.ID, want) {
				return false
			}
		case "user_id":
			if !matchID(e.UserID, want) {
				return false
			}
		case "date":
			if e.Date != want.(string) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (m *memStore) FindEntry(ctx context.Context, filter interface{}) (*models.DailyEntry, error) {
	for _, e := range m.entries {
		if entryMatches(e, filter.(bson.M)) {
			entry := cloneEntry(e)
			return &entry, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) FindEntries(ctx context.Context, filter interface{}) ([]models.DailyEntry, error) {
	var out []models.DailyEntry
	for _, e := range m.entries {
		if entryMatches(e, filter.(bson.M)) {
			out = append(out, cloneEntry(e))
		}
	}
	return out, nil
}

func (m *memStore) AddEntry(ctx context.Context, entry *models.DailyEntry) (*models.DailyEntry, error) {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	m.entries[entry.ID] = cloneEntry(*entry)
	return entry, nil
}

func (m *memStore) SaveEntry(ctx context.Context, entry *models.DailyEntry) error {
	if _, ok := m.entries[entry.ID]; !ok {
		return storage.ErrNotFound
	}
	m.entries[entry.ID] = cloneEntry(*entry)
	return nil
}

func (m *memStore) FindUser(ctx context.Context, filter interface{}) (*models.UserAggregate, error) {
	f := filter.(bson.M)
	for _, u := range m.users {
		if matchID(u.ID, f["_id"]) {
			user := cloneUser(u)
			return &user, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) AddUser(ctx context.Context, user *models.UserAggregate) (*models.UserAggregate, error) {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.users[user.ID] = cloneUser(*user)
	return user, nil
}

func (m *memStore) SaveUser(ctx context.Context, user *models.UserAggregate) error {
	if _, ok := m.users[user.ID]; !ok {
		return storage.ErrNotFound
	}
	m.users[user.ID] = cloneUser(*user)
	return nil
}

func (m *memStore) TopUsers(ctx context.Context, limit int64) ([]models.UserAggregate, error) {
	var out []models.UserAggregate
	for _, u := range m.users {
		if !u.Private {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeeklyPoints > out[j].WeeklyPoints })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) FindChallenge(ctx context.Context, filter interface{}) (*models.Challenge, error) {
	f := filter.(bson.M)
	for _, c := range m.challenges {
		if matchID(c.ID, f["_id"]) {
			challenge := c
			return &challenge, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) AddChallenge(ctx context.Context, challenge *models.Challenge) (*models.Challenge, error) {
	if challenge.ID.IsZero() {
		challenge.ID = primitive.NewObjectID()
	}
	m.challenges[challenge.ID] = *challenge
	return challenge, nil
}

func completionMatches(c models.ChallengeCompletion, filter bson.M) bool {
	for key, want := range filter {
		switch key {
		case "challenge_id":
			if !matchID(c.ChallengeID, want) {
				return false
			}
		case "user_id":
			if !matchID(c.UserID, want) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (m *memStore) FindCompletion(ctx context.Context, filter interface{}) (*models.ChallengeCompletion, error) {
	for _, c := range m.completions {
		if completionMatches(c, filter.(bson.M)) {
			completion := c
			return &completion, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) AddCompletion(ctx context.Context, completion *models.ChallengeCompletion) (*models.ChallengeCompletion, error) {
	if completion.ID.IsZero() {
		completion.ID = primitive.NewObjectID()
	}
	m.completions[completion.ID] = *completion
	return completion, nil
}

func (m *memStore) CountCompletions(ctx context.Context, filter interface{}) (int64, error) {
	var count int64
	for _, c := range m.completions {
		if completionMatches(c, filter.(bson.M)) {
			count++
		}
	}
	return count, nil
}
