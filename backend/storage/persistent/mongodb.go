package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/skmehra/ecotrace/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// MongoStorage is a struct representing a MongoDB storage.
// It provides an interface to perform CRUD operations on the various
// collections in the MongoDB database, and atomic multi-document
// transactions over them.
type MongoStorage struct {
	client *mongo.Client
	dbName string
}

// NewMongoStorage creates a new instance of MongoStorage.
// This function doesn't establish a connection to the MongoDB server.
// To connect to the server, use the Connect method of the returned MongoStorage instance.
func NewMongoStorage() *MongoStorage {
	return &MongoStorage{}
}

// Connect establishes a connection to the MongoDB server at the given URI and
// database name, and sets up indexes as necessary.
// Returns an error if any issues are encountered.
func (m *MongoStorage) Connect(dbName, uri string) error {

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("error connecting to MongoDB: %v", err)
	}

	m.client = client
	m.dbName = dbName

	// Initializing users collection
	usersCollection := m.client.Database(m.dbName).Collection("users")

	// Create an index on the "email" field. This is to ensure that every user has a unique email.
	emailIndexModel := mongo.IndexModel{
		Keys: bson.M{
			"email": 1, // 1 for ascending order
		},
		Options: options.Index().SetUnique(true),
	}

	_, err = usersCollection.Indexes().CreateOne(ctx, emailIndexModel)
	if err != nil {
		return fmt.Errorf("error creating email index: %v", err)
	}

	// An index to serve the weekly leaderboard range query.
	weeklyPointsIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "weekly_points", Value: -1}, // -1 for descending order
		},
		Options: options.Index(),
	}

	_, err = usersCollection.Indexes().CreateOne(ctx, weeklyPointsIndexModel)
	if err != nil {
		return fmt.Errorf("error creating weekly_points index: %v", err)
	}

	// Initializing entries collection
	entriesCollection := m.client.Database(m.dbName).Collection("entries")

	// Compound index on (user_id, date). It is deliberately NOT unique: the
	// one-entry-per-day invariant is enforced by the query-before-write step
	// of the upsert transaction, the index only serves the lookup.
	userIdDateIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1}, // 1 for ascending order
			{Key: "date", Value: 1},
		},
		Options: options.Index(),
	}

	_, err = entriesCollection.Indexes().CreateOne(ctx, userIdDateIndexModel)
	if err != nil {
		return fmt.Errorf("error creating user_id and date index: %v", err)
	}

	// Initializing completions collection
	completionsCollection := m.client.Database(m.dbName).Collection("completions")

	// Compound index on (challenge_id, user_id) so that the one-completion
	// check is a point lookup.
	challengeUserIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "challenge_id", Value: 1},
			{Key: "user_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}

	_, err = completionsCollection.Indexes().CreateOne(ctx, challengeUserIndexModel)
	if err != nil {
		return fmt.Errorf("error creating challenge_id and user_id index: %v", err)
	}

	return nil
}

// Disconnect closes the connection to the MongoDB server.
// It should be called when the MongoStorage instance is no longer needed.
// Returns an error if the disconnection process fails.
func (m *MongoStorage) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := m.client.Disconnect(ctx)
	if err != nil {
		return fmt.Errorf("error disconnecting from MongoDB: %v", err)
	}

	return nil
}

// WithTransaction runs fn inside a MongoDB multi-document transaction with
// snapshot reads and majority writes. The session context is passed to fn, so
// every storage call made with it participates in the same transaction. If fn
// returns an error the whole transaction is aborted and nothing is committed.
func (m *MongoStorage) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("error starting session: %v", err)
	}
	defer session.EndSession(ctx)

	txnOptions := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.New(writeconcern.WMajority()))

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	}, txnOptions)
	if err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	return nil
}

// FindEntry finds a daily entry document in the 'entries' collection that matches the given filter.
// Returns ErrNotFound if no entry matches.
func (m *MongoStorage) FindEntry(ctx context.Context, filter interface{}) (*models.DailyEntry, error) {
	collection := m.client.Database(m.dbName).Collection("entries")
	result := collection.FindOne(ctx, filter)
	entry := &models.DailyEntry{}
	err := result.Decode(entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

// FindEntries finds daily entry documents in the 'entries' collection that match the given filter.
// Returns the found entries as a slice of DailyEntry instances and an error if the find operation fails.
func (m *MongoStorage) FindEntries(ctx context.Context, filter interface{}) ([]models.DailyEntry, error) {
	collection := m.client.Database(m.dbName).Collection("entries")
	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.DailyEntry
	for cursor.Next(ctx) {
		var entry models.DailyEntry
		err := cursor.Decode(&entry)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, cursor.Err()
}

// AddEntry adds a new daily entry document to the 'entries' collection.
// Returns the added entry instance and an error if the insert operation fails.
func (m *MongoStorage) AddEntry(ctx context.Context, entry *models.DailyEntry) (*models.DailyEntry, error) {
	collection := m.client.Database(m.dbName).Collection("entries")
	result, err := collection.InsertOne(ctx, entry)
	if err != nil {
		return nil, err
	}

	entry.ID = result.InsertedID.(primitive.ObjectID)
	return entry, nil
}

// SaveEntry replaces the stored daily entry with the given one, matched by id.
// Returns ErrNotFound if no entry with that id exists.
func (m *MongoStorage) SaveEntry(ctx context.Context, entry *models.DailyEntry) error {
	collection := m.client.Database(m.dbName).Collection("entries")
	result, err := collection.ReplaceOne(ctx, bson.M{"_id": entry.ID}, entry)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindUser finds a user aggregate document in the 'users' collection that matches the given filter.
// Returns ErrNotFound if no user matches.
func (m *MongoStorage) FindUser(ctx context.Context, filter interface{}) (*models.UserAggregate, error) {
	collection := m.client.Database(m.dbName).Collection("users")
	result := collection.FindOne(ctx, filter)
	user := &models.UserAggregate{}
	err := result.Decode(user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// AddUser adds a new user aggregate document to the 'users' collection.
// Returns the added user instance and an error if the insert operation fails.
func (m *MongoStorage) AddUser(ctx context.Context, user *models.UserAggregate) (*models.UserAggregate, error) {
	collection := m.client.Database(m.dbName).Collection("users")
	result, err := collection.InsertOne(ctx, user)
	if err != nil {
		return nil, err
	}

	user.ID = result.InsertedID.(primitive.ObjectID)
	return user, nil
}

// SaveUser replaces the stored user aggregate with the given one, matched by id.
// Returns ErrNotFound if no user with that id exists.
func (m *MongoStorage) SaveUser(ctx context.Context, user *models.UserAggregate) error {
	collection := m.client.Database(m.dbName).Collection("users")
	result, err := collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// TopUsers returns up to limit user aggregates ordered by weekly points
// descending. Used by the leaderboard read path.
func (m *MongoStorage) TopUsers(ctx context.Context, limit int64) ([]models.UserAggregate, error) {
	collection := m.client.Database(m.dbName).Collection("users")
	findOptions := options.Find().
		SetSort(bson.D{{Key: "weekly_points", Value: -1}}).
		SetLimit(limit)

	cursor, err := collection.Find(ctx, bson.M{"private": false}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.UserAggregate
	for cursor.Next(ctx) {
		var user models.UserAggregate
		err := cursor.Decode(&user)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, cursor.Err()
}

// FindChallenge finds a challenge document in the 'challenges' collection that matches the given filter.
// Returns ErrNotFound if no challenge matches.
func (m *MongoStorage) FindChallenge(ctx context.Context, filter interface{}) (*models.Challenge, error) {
	collection := m.client.Database(m.dbName).Collection("challenges")
	result := collection.FindOne(ctx, filter)
	challenge := &models.Challenge{}
	err := result.Decode(challenge)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return challenge, nil
}

// AddChallenge adds a new challenge document to the 'challenges' collection.
// Returns the added challenge instance and an error if the insert operation fails.
func (m *MongoStorage) AddChallenge(ctx context.Context, challenge *models.Challenge) (*models.Challenge, error) {
	collection := m.client.Database(m.dbName).Collection("challenges")
	result, err := collection.InsertOne(ctx, challenge)
	if err != nil {
		return nil, err
	}

	challenge.ID = result.InsertedID.(primitive.ObjectID)
	return challenge, nil
}

// FindCompletion finds a challenge completion document in the 'completions' collection that matches the given filter.
// Returns ErrNotFound if no completion matches.
func (m *MongoStorage) FindCompletion(ctx context.Context, filter interface{}) (*models.ChallengeCompletion, error) {
	collection := m.client.Database(m.dbName).Collection("completions")
	result := collection.FindOne(ctx, filter)
	completion := &models.ChallengeCompletion{}
	err := result.Decode(completion)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return completion, nil
}

// AddCompletion adds a new challenge completion document to the 'completions' collection.
// Returns the added completion instance and an error if the insert operation fails.
func (m *MongoStorage) AddCompletion(ctx context.Context, completion *models.ChallengeCompletion) (*models.ChallengeCompletion, error) {
	collection := m.client.Database(m.dbName).Collection("completions")
	result, err := collection.InsertOne(ctx, completion)
	if err != nil {
		return nil, err
	}

	completion.ID = result.InsertedID.(primitive.ObjectID)
	return completion, nil
}

// CountCompletions returns the number of documents in the 'completions' collection that match the given filter.
// Returns an error if the count operation fails.
func (m *MongoStorage) CountCompletions(ctx context.Context, filter interface{}) (int64, error) {
	collection := m.client.Database(m.dbName).Collection("completions")
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return count, nil
}
