package app

import (
	"context"

	"todos/internal/domain"
)

// TodoService encapsulates todo use cases for an acting user.
type TodoService struct {
	repo domain.TodoRepository
}

// NewTodoService creates a TodoService backed by the given repository.
func NewTodoService(repo domain.TodoRepository) *TodoService {
	return &TodoService{repo: repo}
}

// List returns the todos owned by userID.
func (s *TodoService) List(ctx context.Context, userID string) ([]domain.Todo, error) {
	items, err := s.repo.ListTodos(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Todo{}
	}
	return items, nil
}

// Create validates text and stores a new, incomplete todo for userID.
func (s *TodoService) Create(ctx context.Context, userID, text string) (*domain.Todo, error) {
	if text == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.repo.CreateTodo(ctx, userID, text)
}

// Update applies patch to the todo identified by id if userID owns it.
func (s *TodoService) Update(ctx context.Context, userID, id string, patch domain.TodoPatch) (*domain.Todo, error) {
	if patch.Empty() {
		return nil, domain.ErrInvalidInput
	}
	if patch.Text != nil && *patch.Text == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.repo.UpdateTodo(ctx, id, patch)
}

// Delete removes the todo identified by id if userID owns it.
func (s *TodoService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.DeleteTodo(ctx, id)
}

func (s *TodoService) owned(ctx context.Context, userID, id string) (*domain.Todo, error) {
	todo, err := s.repo.GetTodo(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanMutate(userID, todo) {
		return nil, domain.ErrForbidden
	}
	return todo, nil
}
