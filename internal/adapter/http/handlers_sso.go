package adapthttp

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"todos/internal/config"
	"todos/internal/domain"
)

const stateCookie = "oauth_state"

// OIDCConfig holds the discovered provider and the OAuth2 client used for SSO.
type OIDCConfig struct {
	Provider     *oidc.Provider
	OAuth2Config oauth2.Config
}

// NewOIDCConfig discovers the issuer and builds the OAuth2 client.
func NewOIDCConfig(ctx context.Context, cfg config.OIDC) (*OIDCConfig, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider: %w", err)
	}
	return &OIDCConfig{
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
	}, nil
}

func (s *Server) handleSSOLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		s.internalError(w, r, err, "SSO login failed")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})
	http.Redirect(w, r, s.oidcConfig.OAuth2Config.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" || r.URL.Query().Get("state") != state.Value {
		writeMessage(w, http.StatusBadRequest, "Invalid SSO state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1})

	oauthToken, err := s.oidcConfig.OAuth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.internalError(w, r, fmt.Errorf("exchange code: %w", err), "SSO login failed")
		return
	}

	rawIDToken, ok := oauthToken.Extra("id_token").(string)
	if !ok {
		s.internalError(w, r, fmt.Errorf("no id_token in token response"), "SSO login failed")
		return
	}

	verifier := s.oidcConfig.Provider.Verifier(&oidc.Config{ClientID: s.oidcConfig.OAuth2Config.ClientID})
	idToken, err := verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		s.internalError(w, r, fmt.Errorf("verify id_token: %w", err), "SSO login failed")
		return
	}

	// Accounts are keyed by the provider subject, never by email.
	token, err := s.authSvc.LoginWithSSO(r.Context(), idToken.Subject)
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidCredentials):
		s.log.Warn("sso login refused", "error", err)
		writeMessage(w, http.StatusForbidden, "SSO login refused")
		return
	case err != nil:
		s.internalError(w, r, err, "SSO login failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
