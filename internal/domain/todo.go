package domain

import "context"

// Todo is a single item on a user's list.
type Todo struct {
	ID        string `json:"_id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	OwnerID   string `json:"userId,omitempty"`
}

// TodoPatch carries the fields of an update. Nil fields are left unchanged.
type TodoPatch struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

// Empty reports whether the patch changes nothing.
func (p TodoPatch) Empty() bool {
	return p.Text == nil && p.Completed == nil
}

// Apply returns t with the patch fields copied over.
func (p TodoPatch) Apply(t Todo) Todo {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// TodoRepository is the port for todo persistence.
//
// The repository does not check ownership; callers must do that before
// Update and Delete. Get, Update and Delete return ErrNotFound for unknown ids.
type TodoRepository interface {
	ListTodos(ctx context.Context, ownerID string) ([]Todo, error)
	GetTodo(ctx context.Context, id string) (*Todo, error)
	CreateTodo(ctx context.Context, ownerID, text string) (*Todo, error)
	UpdateTodo(ctx context.Context, id string, patch TodoPatch) (*Todo, error)
	DeleteTodo(ctx context.Context, id string) error
}

// CanMutate reports whether actingUserID may change or remove t.
func CanMutate(actingUserID string, t *Todo) bool {
	return t != nil && t.OwnerID == actingUserID
}
