package adapthttp

import (
	"errors"
	"net/http"

	"todos/internal/domain"
)

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	items, err := s.todos.List(r.Context(), actingUser(r.Context()))
	if err != nil {
		s.internalError(w, r, err, "Failed to fetch todos")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Text is required")
		return
	}

	todo, err := s.todos.Create(r.Context(), actingUser(r.Context()), req.Text)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, "Text is required")
	case err != nil:
		s.internalError(w, r, err, "Failed to add todo")
	default:
		writeJSON(w, http.StatusOK, todo)
	}
}

func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	var patch domain.TodoPatch
	if err := parseJSON(r, &patch); err != nil || patch.Empty() {
		writeMessage(w, http.StatusBadRequest, "Nothing to update")
		return
	}
	if patch.Text != nil && *patch.Text == "" {
		writeMessage(w, http.StatusBadRequest, "Text is required")
		return
	}

	todo, err := s.todos.Update(r.Context(), actingUser(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		s.todoError(w, r, err, "Failed to update todo")
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	err := s.todos.Delete(r.Context(), actingUser(r.Context()), r.PathValue("id"))
	if err != nil {
		s.todoError(w, r, err, "Failed to delete todo")
		return
	}
	writeMessage(w, http.StatusOK, "Todo deleted")
}

// todoError maps errors from the mutating todo operations to responses.
func (s *Server) todoError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, "Nothing to update")
	case errors.Is(err, domain.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Todo not found")
	case errors.Is(err, domain.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "Unauthorized")
	default:
		s.internalError(w, r, err, msg)
	}
}
