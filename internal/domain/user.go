// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"strings"
	"time"
)

// SSOUsernamePrefix marks accounts provisioned through single sign-on. The
// rest of the username is the identity provider's subject.
const SSOUsernamePrefix = "sso:"

// SSOUsername returns the username of the account bound to an SSO subject.
func SSOUsername(subject string) string {
	return SSOUsernamePrefix + subject
}

// IsSSOUsername reports whether username lies in the SSO namespace.
func IsSSOUsername(username string) bool {
	return strings.HasPrefix(username, SSOUsernamePrefix)
}

// User represents a registered account.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// UserRepository defines the port for user persistence operations.
//
// GetByUsername and GetByID return ErrNotFound when no user matches. Create
// returns ErrDuplicateUsername when the username is already taken.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, username, passwordHash string) (*User, error)
}
