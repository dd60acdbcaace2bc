package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"todos/internal/domain"
)

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  string             `bson:"username"`
	Password  string             `bson:"password"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (u userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:           u.ID.Hex(),
		Username:     u.Username,
		PasswordHash: u.Password,
		CreatedAt:    u.CreatedAt,
	}
}

// GetByUsername retrieves a user by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return d.findUser(ctx, bson.M{"username": username})
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return d.findUser(ctx, bson.M{"_id": oid})
}

func (d *DB) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := d.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toDomain(), nil
}

// Create creates a new user.
func (d *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	doc := userDoc{
		ID:        primitive.NewObjectID(),
		Username:  username,
		Password:  passwordHash,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := d.users.InsertOne(ctx, doc); err != nil {
		return nil, duplicateUsername(err)
	}
	return doc.toDomain(), nil
}
