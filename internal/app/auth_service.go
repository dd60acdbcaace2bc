// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"todos/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost factor for stored password hashes.
const PasswordCost = bcrypt.DefaultCost

// AuthService handles registration, password login and token verification.
type AuthService struct {
	users  domain.UserRepository
	tokens *Tokens
	log    *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, tokens *Tokens, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{users: users, tokens: tokens, log: log}
}

// Register stores a new user with a bcrypt hash of password and returns its id.
func (s *AuthService) Register(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", domain.ErrInvalidInput
	}
	if domain.IsSSOUsername(username) {
		return "", domain.ErrReservedUsername
	}

	existing, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil && existing != nil:
		return "", domain.ErrDuplicateUsername
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return "", fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, username, string(hash))
	if err != nil {
		return "", err
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user.ID, nil
}

// Authenticate checks username and password and returns the user's id.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", domain.ErrInvalidInput
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}
	return user.ID, nil
}

// Login authenticates a user and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	userID, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", err
	}
	token, err := s.tokens.Issue(userID)
	if err != nil {
		return "", err
	}
	s.log.Info("user logged in", "user_id", userID)
	return token, nil
}

// LoginWithSSO issues a token for the account bound to an identity provider
// subject, provisioning it on first sight. SSO accounts live under
// domain.SSOUsernamePrefix, which Register refuses, and get an empty password
// hash so password login is never possible for them.
func (s *AuthService) LoginWithSSO(ctx context.Context, subject string) (string, error) {
	if subject == "" {
		return "", domain.ErrInvalidInput
	}
	username := domain.SSOUsername(subject)

	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		user, err = s.users.Create(ctx, username, "")
		if errors.Is(err, domain.ErrDuplicateUsername) {
			// Lost a race with a concurrent first login.
			user, err = s.users.GetByUsername(ctx, username)
		}
		if err == nil {
			s.log.Info("sso user provisioned", "user_id", user.ID)
		}
	}
	if err != nil {
		return "", err
	}
	if user.PasswordHash != "" {
		s.log.Warn("sso login refused for password account", "user_id", user.ID)
		return "", domain.ErrInvalidCredentials
	}

	return s.tokens.Issue(user.ID)
}

// VerifyToken returns the id of the user a valid token was issued to. Tokens
// for users that no longer exist are rejected.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (string, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return "", err
	}
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("%w: unknown user", domain.ErrUnauthenticated)
	}
	if err != nil {
		return "", fmt.Errorf("lookup token user: %w", err)
	}
	return user.ID, nil
}
