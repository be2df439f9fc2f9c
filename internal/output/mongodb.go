// internal/output/mongodb.go
package output

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valpere/VidSieve/pkg/types"
)

const (
	mongoStatsID   = "totals"
	mongoCounterID = "history_seq"
)

// mongoHistoryDoc is one history entry; Seq orders entries by append
type mongoHistoryDoc struct {
	Seq       int64  `bson:"seq"`
	Title     string `bson:"title"`
	Reason    string `bson:"reason"`
	Timestamp string `bson:"timestamp"`
}

// MongoStore persists history in <prefix>_history and keeps stats and the
// history sequence counter as documents in <prefix>_stats
type MongoStore struct {
	client  *mongo.Client
	history *mongo.Collection
	stats   *mongo.Collection
	limit   int
	timeout time.Duration
}

// NewMongoStore connects using config.URI
func NewMongoStore(ctx context.Context, config StoreConfig) (*MongoStore, error) {
	if config.URI == "" {
		return nil, fmt.Errorf("MongoDB connection string is required")
	}

	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetMaxPoolSize(10).
		SetRetryWrites(true)
	if config.Timeout > 0 {
		clientOptions.SetConnectTimeout(config.Timeout)
		clientOptions.SetServerSelectionTimeout(config.Timeout)
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	s := &MongoStore{
		client:  client,
		limit:   config.HistoryLimit,
		timeout: config.Timeout,
	}
	if s.limit <= 0 {
		s.limit = types.HistoryLimit
	}

	pingCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(config.Database)
	s.history = db.Collection(config.TablePrefix + "_history")
	s.stats = db.Collection(config.TablePrefix + "_stats")

	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "seq", Value: 1}},
		Options: options.Index().SetName("seq_1").SetUnique(true),
	}
	if _, err := s.history.Indexes().CreateOne(pingCtx, index); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create history index: %w", err)
	}

	return s, nil
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *MongoStore) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Value int64 `bson:"value"`
	}
	err := s.stats.FindOneAndUpdate(ctx,
		bson.M{"_id": mongoCounterID},
		bson.M{"$inc": bson.M{"value": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to advance history sequence: %w", err)
	}
	return counter.Value, nil
}

// AppendHistory inserts the entry and deletes everything older than the
// most recent entries
func (s *MongoStore) AppendHistory(ctx context.Context, entry types.HistoryEntry) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	seq, err := s.nextSeq(ctx)
	if err != nil {
		return err
	}

	doc := mongoHistoryDoc{Seq: seq, Title: entry.Title, Reason: entry.Reason, Timestamp: entry.Timestamp}
	if _, err := s.history.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	_, err = s.history.DeleteMany(ctx, bson.M{"seq": bson.M{"$lte": seq - int64(s.limit)}})
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	return nil
}

func (s *MongoStore) AddStats(ctx context.Context, delta types.StatsDelta) error {
	if delta.IsZero() {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.M{"$inc": bson.M{
		"views":    delta.Views,
		"duration": delta.Duration,
		"age":      delta.Age,
		"keyword":  delta.Keyword,
		"total":    delta.Total,
	}}
	_, err := s.stats.UpdateOne(ctx, bson.M{"_id": mongoStatsID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}
	return nil
}

func (s *MongoStore) History(ctx context.Context) ([]types.HistoryEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := s.history.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoHistoryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}

	entries := make([]types.HistoryEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, types.HistoryEntry{Title: doc.Title, Reason: doc.Reason, Timestamp: doc.Timestamp})
	}
	return types.CapHistory(entries, s.limit), nil
}

func (s *MongoStore) Stats(ctx context.Context) (types.StatsDelta, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var stats types.StatsDelta
	err := s.stats.FindOne(ctx, bson.M{"_id": mongoStatsID}).Decode(&stats)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.StatsDelta{}, nil
	}
	if err != nil {
		return types.StatsDelta{}, fmt.Errorf("failed to query stats: %w", err)
	}
	return stats, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
