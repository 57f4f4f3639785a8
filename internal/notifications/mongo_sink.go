package notifications

import (
	"context"
	"fmt"
	"time"

	"tandem/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const notificationCollection = "notifications"

// MongoSink stores notifications as documents keyed by a unique dedup_key.
type MongoSink struct {
	coll *mongo.Collection
}

// ConnectMongo dials uri and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri).SetMaxPoolSize(20)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// NewMongoSink creates a sink over database db and ensures its indexes.
func NewMongoSink(ctx context.Context, db *mongo.Database) (*MongoSink, error) {
	s := &MongoSink{coll: db.Collection(notificationCollection)}
	if err := s.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the unique dedup index and the per-user listing index.
func (s *MongoSink) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "dedup_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_dedup_key"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("user_created"),
		},
	})
	if err != nil {
		return fmt.Errorf("create notification indexes: %w", err)
	}
	return nil
}

func (s *MongoSink) Record(ctx context.Context, n models.Notification) (created bool, err error) {
	defer func() { recordWrite("mongo", created, err) }()

	if err := prepare(&n); err != nil {
		return false, err
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"dedup_key": n.DedupKey},
		bson.M{"$setOnInsert": n},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, models.NewInternalError(err)
	}
	return res.UpsertedCount == 1, nil
}

func (s *MongoSink) ListForUser(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(clampLimit(limit)))
	cur, err := s.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer func() { _ = cur.Close(ctx) }()

	list := []models.Notification{}
	if err := cur.All(ctx, &list); err != nil {
		return nil, models.NewInternalError(err)
	}
	return list, nil
}

func (s *MongoSink) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"user_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return res.ModifiedCount, nil
}
