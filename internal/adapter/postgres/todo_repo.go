package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"todos/internal/domain"
)

// ListTodos returns a user's todos in insertion order.
func (d *DB) ListTodos(ctx context.Context, ownerID string) ([]domain.Todo, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, text, completed, user_id FROM todos WHERE user_id=$1 ORDER BY seq;", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.Todo, 0)
	for rows.Next() {
		var t domain.Todo
		if err := rows.Scan(&t.ID, &t.Text, &t.Completed, &t.OwnerID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTodo returns a todo by ID.
func (d *DB) GetTodo(ctx context.Context, id string) (*domain.Todo, error) {
	var t domain.Todo
	err := d.sql.QueryRowContext(ctx,
		"SELECT id, text, completed, user_id FROM todos WHERE id=$1;", id,
	).Scan(&t.ID, &t.Text, &t.Completed, &t.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTodo inserts a new incomplete todo.
func (d *DB) CreateTodo(ctx context.Context, ownerID, text string) (*domain.Todo, error) {
	var t domain.Todo
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO todos(id, text, completed, user_id) VALUES($1, $2, FALSE, $3) RETURNING id, text, completed, user_id;",
		uuid.NewString(), text, ownerID,
	).Scan(&t.ID, &t.Text, &t.Completed, &t.OwnerID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTodo changes the supplied fields of a todo.
func (d *DB) UpdateTodo(ctx context.Context, id string, patch domain.TodoPatch) (*domain.Todo, error) {
	var text sql.NullString
	if patch.Text != nil {
		text = sql.NullString{String: *patch.Text, Valid: true}
	}
	var completed sql.NullBool
	if patch.Completed != nil {
		completed = sql.NullBool{Bool: *patch.Completed, Valid: true}
	}

	var t domain.Todo
	err := d.sql.QueryRowContext(ctx,
		"UPDATE todos SET text = COALESCE($2, text), completed = COALESCE($3, completed) WHERE id=$1 RETURNING id, text, completed, user_id;",
		id, text, completed,
	).Scan(&t.ID, &t.Text, &t.Completed, &t.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTodo removes a todo by ID.
func (d *DB) DeleteTodo(ctx context.Context, id string) error {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM todos WHERE id=$1;", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
