package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/JaimeStill/erisa/internal/config"
	"github.com/JaimeStill/erisa/internal/users"
)

const (
	stateCookie = "erisa_oidc_state"
	nonceCookie = "erisa_oidc_nonce"
	flowTTL     = 10 * time.Minute
)

// OIDC errors surfaced by the callback.
var (
	ErrStateMismatch = errors.New("oidc: state mismatch")
	ErrMissingToken  = errors.New("oidc: no id_token in token response")
	ErrNonceMismatch = errors.New("oidc: nonce mismatch")
	ErrNoEmail       = errors.New("oidc: identity has no email")
)

// Provider runs the authorization code flow against an OpenID Connect issuer.
type Provider struct {
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
	secure   bool
}

// NewProvider discovers the issuer's endpoints. It performs a network request.
func NewProvider(ctx context.Context, cfg *config.AuthConfig) (*Provider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.OIDC.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc issuer: %w", err)
	}

	scopes := cfg.OIDC.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &Provider{
		oauth: oauth2.Config{
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			RedirectURL:  cfg.OIDC.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       scopes,
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.OIDC.ClientID}),
		secure:   cfg.SecureCookie,
	}, nil
}

// Begin sets the state and nonce cookies and redirects to the issuer.
func (p *Provider) Begin(w http.ResponseWriter, r *http.Request) {
	state, err := randomToken()
	if err != nil {
		http.Error(w, "unable to start sign-in", http.StatusInternalServerError)
		return
	}
	nonce, err := randomToken()
	if err != nil {
		http.Error(w, "unable to start sign-in", http.StatusInternalServerError)
		return
	}

	p.setFlowCookie(w, stateCookie, state, int(flowTTL.Seconds()))
	p.setFlowCookie(w, nonceCookie, nonce, int(flowTTL.Seconds()))

	http.Redirect(w, r, p.oauth.AuthCodeURL(state, oidc.Nonce(nonce)), http.StatusFound)
}

// Complete validates the callback, exchanges the code, and verifies the ID token.
func (p *Provider) Complete(w http.ResponseWriter, r *http.Request) (users.ExternalIdentity, error) {
	var identity users.ExternalIdentity

	defer p.setFlowCookie(w, stateCookie, "", -1)
	defer p.setFlowCookie(w, nonceCookie, "", -1)

	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" || r.URL.Query().Get("state") != state.Value {
		return identity, ErrStateMismatch
	}

	if msg := r.URL.Query().Get("error"); msg != "" {
		return identity, fmt.Errorf("oidc: %s", msg)
	}

	token, err := p.oauth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		return identity, fmt.Errorf("oidc: exchange code: %w", err)
	}

	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return identity, ErrMissingToken
	}

	idToken, err := p.verifier.Verify(r.Context(), raw)
	if err != nil {
		return identity, fmt.Errorf("oidc: verify id_token: %w", err)
	}

	nonce, err := r.Cookie(nonceCookie)
	if err != nil || idToken.Nonce != nonce.Value {
		return identity, ErrNonceMismatch
	}

	var claims struct {
		Email             string `json:"email"`
		PreferredUsername string `json:"preferred_username"`
		GivenName         string `json:"given_name"`
		FamilyName        string `json:"family_name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return identity, fmt.Errorf("oidc: decode claims: %w", err)
	}
	if claims.Email == "" {
		return identity, ErrNoEmail
	}

	return users.ExternalIdentity{
		Email:     claims.Email,
		Username:  claims.PreferredUsername,
		FirstName: claims.GivenName,
		LastName:  claims.FamilyName,
	}, nil
}

func (p *Provider) setFlowCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func randomToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
