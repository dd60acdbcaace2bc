package app

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"todos/internal/domain"
)

// Claims is the bearer token payload.
type Claims struct {
	UserID string `json:"userId"`
	jwtlib.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token issuer signing with secret. Tokens expire ttl
// after issuance.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for userID.
func (t *Tokens) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("issue token: empty user id")
	}
	now := t.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of token and returns the user id it
// carries. Every rejection wraps domain.ErrUnauthenticated.
func (t *Tokens) Verify(token string) (string, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(*jwtlib.Token) (any, error) {
		return t.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return "", fmt.Errorf("%w: invalid claims", domain.ErrUnauthenticated)
	}
	return claims.UserID, nil
}
