// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"errors"
	"net/http"

	"todos/internal/domain"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := parseJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}

	_, err := s.authSvc.Register(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, "All fields are required")
	case errors.Is(err, domain.ErrDuplicateUsername):
		writeMessage(w, http.StatusBadRequest, "Username already taken")
	case errors.Is(err, domain.ErrReservedUsername):
		writeMessage(w, http.StatusBadRequest, "Username is reserved")
	case err != nil:
		s.internalError(w, r, err, "Internal Server Error")
	default:
		writeMessage(w, http.StatusOK, "User registered successfully!")
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := parseJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}

	token, err := s.authSvc.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, "All fields are required")
	case errors.Is(err, domain.ErrNotFound):
		writeMessage(w, http.StatusBadRequest, "User not found")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeMessage(w, http.StatusBadRequest, "Invalid credentials")
	case err != nil:
		s.internalError(w, r, err, "Internal Server Error")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}
