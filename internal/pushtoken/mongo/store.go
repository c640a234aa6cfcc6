// Package mongo stores device push tokens in a MongoDB collection, one
// document per user, merged on write.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kasir/internal/core"
	"kasir/internal/ports"
)

// CollectionName matches the collection the mobile client has always used.
const CollectionName = "PushTokens"

type document struct {
	UserID    string    `bson:"_id"`
	Token     string    `bson:"token"`
	Platform  string    `bson:"platform,omitempty"`
	Timestamp time.Time `bson:"timestamp"`
}

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect dials uri and returns a store backed by database.PushTokens.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	slog.InfoContext(ctx, "Connected to MongoDB", "database", database, "collection", CollectionName)
	return &Store{client: client, coll: client.Database(database).Collection(CollectionName)}, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// mergeUpdate builds a $set of the non-empty fields, so fields written by
// other clients survive.
func mergeUpdate(t core.PushToken) bson.M {
	set := bson.M{"token": t.Token, "timestamp": t.Timestamp}
	if t.Platform != "" {
		set["platform"] = t.Platform
	}
	return bson.M{"$set": set}
}

func (s *Store) UpsertPushToken(ctx context.Context, t core.PushToken) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": t.UserID},
		mergeUpdate(t),
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert push token: %w", err)
	}
	return nil
}

func (s *Store) GetPushToken(ctx context.Context, userID string) (core.PushToken, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.PushToken{}, ports.ErrNotFound
	}
	if err != nil {
		return core.PushToken{}, fmt.Errorf("find push token: %w", err)
	}
	return core.PushToken{
		UserID:    doc.UserID,
		Token:     doc.Token,
		Platform:  doc.Platform,
		Timestamp: doc.Timestamp.UTC(),
	}, nil
}

var _ ports.PushTokenStore = (*Store)(nil)
