// Package mongodb implements the domain repositories on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"todos/internal/domain"
)

// DB holds the client and the users and todos collections.
type DB struct {
	client *mongo.Client
	users  *mongo.Collection
	todos  *mongo.Collection
}

var (
	_ domain.UserRepository = (*DB)(nil)
	_ domain.TodoRepository = (*DB)(nil)
)

// Open connects to uri, pings the primary and ensures the username index.
func Open(ctx context.Context, uri, database string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}

	db := client.Database(database)
	d := &DB{
		client: client,
		users:  db.Collection("users"),
		todos:  db.Collection("todos"),
	}
	if err := d.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return d, nil
}

func (d *DB) ensureIndexes(ctx context.Context) error {
	_, err := d.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	_, err = d.todos.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create todos index: %w", err)
	}
	return nil
}

// Ping checks the connection to the primary.
func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (d *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

// objectID parses a hex id. The empty string maps to the nil ObjectID, which
// marks unowned todos.
func objectID(hex string) (primitive.ObjectID, error) {
	if hex == "" {
		return primitive.NilObjectID, nil
	}
	return primitive.ObjectIDFromHex(hex)
}

func hexID(id primitive.ObjectID) string {
	if id.IsZero() {
		return ""
	}
	return id.Hex()
}

// notFound maps a missing document to domain.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return err
}

// duplicateUsername maps a unique index violation on insert to
// domain.ErrDuplicateUsername.
func duplicateUsername(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateUsername
	}
	return err
}
