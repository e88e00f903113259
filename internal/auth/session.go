// Package auth issues signed session cookies, resolves the signed-in user for
// each request, and guards pages and API routes that require a user.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/JaimeStill/erisa/internal/config"
	"github.com/JaimeStill/erisa/internal/users"
)

const issuer = "erisa"

// ErrInvalidSession indicates a missing, expired, or tampered session cookie.
var ErrInvalidSession = errors.New("invalid session")

// Claims is the JWT payload carried in the session cookie.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Sessions signs and verifies HS256 session tokens stored in a cookie.
type Sessions struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
}

// NewSessions creates a session manager from the auth configuration.
func NewSessions(cfg *config.AuthConfig) *Sessions {
	return &Sessions{
		secret:     []byte(cfg.SessionSecret),
		ttl:        cfg.SessionTTLDuration(),
		cookieName: cfg.CookieName,
		secure:     cfg.SecureCookie,
		now:        time.Now,
	}
}

// CookieName returns the name of the session cookie.
func (s *Sessions) CookieName() string {
	return s.cookieName
}

// Sign returns a signed token for the user.
func (s *Sessions) Sign(u *users.User) (string, error) {
	now := s.now()
	claims := Claims{
		Name: u.DisplayName(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Verify parses a signed token and returns the user id it carries.
func (s *Sessions) Verify(token string) (uuid.UUID, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(
		token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidSession)
	}
	return id, nil
}

// Issue signs a token for the user and sets the session cookie.
func (s *Sessions) Issue(w http.ResponseWriter, u *users.User) error {
	token, err := s.Sign(u)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the user id from the request's session cookie.
func (s *Sessions) Read(r *http.Request) (uuid.UUID, error) {
	c, err := r.Cookie(s.cookieName)
	if err != nil || c.Value == "" {
		return uuid.Nil, ErrInvalidSession
	}
	return s.Verify(c.Value)
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
