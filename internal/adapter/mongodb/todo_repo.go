package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"todos/internal/domain"
)

type todoDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Text      string             `bson:"text"`
	Completed bool               `bson:"completed"`
	UserID    primitive.ObjectID `bson:"userId"`
}

func (t todoDoc) toDomain() domain.Todo {
	return domain.Todo{
		ID:        t.ID.Hex(),
		Text:      t.Text,
		Completed: t.Completed,
		OwnerID:   hexID(t.UserID),
	}
}

// ListTodos returns a user's todos ordered by _id, which follows insertion.
func (d *DB) ListTodos(ctx context.Context, ownerID string) ([]domain.Todo, error) {
	owner, err := objectID(ownerID)
	if err != nil {
		return nil, fmt.Errorf("owner id: %w", err)
	}

	cur, err := d.todos.Find(ctx, bson.M{"userId": owner}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx) //nolint:errcheck

	out := make([]domain.Todo, 0)
	for cur.Next(ctx) {
		var doc todoDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toDomain())
	}
	return out, cur.Err()
}

// GetTodo returns a todo by ID. Malformed ids are reported as not found.
func (d *DB) GetTodo(ctx context.Context, id string) (*domain.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var doc todoDoc
	if err := d.todos.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	t := doc.toDomain()
	return &t, nil
}

// CreateTodo inserts a new incomplete todo.
func (d *DB) CreateTodo(ctx context.Context, ownerID, text string) (*domain.Todo, error) {
	owner, err := objectID(ownerID)
	if err != nil {
		return nil, fmt.Errorf("owner id: %w", err)
	}

	doc := todoDoc{
		ID:     primitive.NewObjectID(),
		Text:   text,
		UserID: owner,
	}
	if _, err := d.todos.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	t := doc.toDomain()
	return &t, nil
}

// UpdateTodo sets the supplied fields and returns the updated document.
func (d *DB) UpdateTodo(ctx context.Context, id string, patch domain.TodoPatch) (*domain.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	set := bson.M{}
	if patch.Text != nil {
		set["text"] = *patch.Text
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}
	if len(set) == 0 {
		return nil, domain.ErrInvalidInput
	}

	var doc todoDoc
	err = d.todos.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}
	t := doc.toDomain()
	return &t, nil
}

// DeleteTodo removes a todo by ID.
func (d *DB) DeleteTodo(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	res, err := d.todos.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
