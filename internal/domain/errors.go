package domain

import "errors"

var (
	// ErrInvalidInput indicates a missing or malformed field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateUsername indicates the username is already registered.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrReservedUsername indicates the username belongs to the SSO namespace.
	ErrReservedUsername = errors.New("username is reserved")
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates the password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates a missing, malformed or expired token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
)
