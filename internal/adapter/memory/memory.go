// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"todos/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu    sync.Mutex
	users []*domain.User
	todos []domain.Todo
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{}
}

// Ensure interfaces are met.
var _ domain.UserRepository = (*DB)(nil)
var _ domain.TodoRepository = (*DB)(nil)

// Ping always succeeds.
func (db *DB) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (db *DB) Close() error {
	return nil
}

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, domain.ErrDuplicateUsername
		}
	}

	u := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	cp := *u
	return &cp, nil
}

// --- TodoRepository ---

// ListTodos returns the owner's todos in insertion order.
func (db *DB) ListTodos(ctx context.Context, ownerID string) ([]domain.Todo, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]domain.Todo, 0)
	for _, t := range db.todos {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

// GetTodo returns a todo by ID.
func (db *DB) GetTodo(ctx context.Context, id string) (*domain.Todo, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if i := db.indexOf(id); i >= 0 {
		t := db.todos[i]
		return &t, nil
	}
	return nil, domain.ErrNotFound
}

// CreateTodo appends a new incomplete todo.
func (db *DB) CreateTodo(ctx context.Context, ownerID, text string) (*domain.Todo, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t := domain.Todo{
		ID:      uuid.NewString(),
		Text:    text,
		OwnerID: ownerID,
	}
	db.todos = append(db.todos, t)
	return &t, nil
}

// UpdateTodo applies patch to the todo with the given ID.
func (db *DB) UpdateTodo(ctx context.Context, id string, patch domain.TodoPatch) (*domain.Todo, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.indexOf(id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	db.todos[i] = patch.Apply(db.todos[i])
	t := db.todos[i]
	return &t, nil
}

// DeleteTodo removes the todo with the given ID.
func (db *DB) DeleteTodo(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.indexOf(id)
	if i < 0 {
		return domain.ErrNotFound
	}
	db.todos = append(db.todos[:i], db.todos[i+1:]...)
	return nil
}

// indexOf must be called with mu held.
func (db *DB) indexOf(id string) int {
	for i, t := range db.todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}
