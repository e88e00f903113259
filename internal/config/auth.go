package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const minSecretLength = 32

// AuthConfig holds session cookie and optional OpenID Connect settings.
type AuthConfig struct {
	SessionSecret string     `toml:"session_secret"`
	SessionTTL    string     `toml:"session_ttl"`
	CookieName    string     `toml:"cookie_name"`
	SecureCookie  bool       `toml:"secure_cookie"`
	OIDC          OIDCConfig `toml:"oidc"`

	// EphemeralSecret is set when no secret was configured and one was generated.
	// Sessions then do not survive a restart.
	EphemeralSecret bool `toml:"-"`
}

// OIDCConfig enables single sign-on when Issuer is set.
type OIDCConfig struct {
	Issuer       string   `toml:"issuer"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURL  string   `toml:"redirect_url"`
	Scopes       []string `toml:"scopes"`
}

// Enabled reports whether an issuer is configured.
func (c *OIDCConfig) Enabled() bool {
	return c.Issuer != ""
}

// SessionTTLDuration returns SessionTTL as a time.Duration.
func (c *AuthConfig) SessionTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.SessionTTL)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AuthConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if c.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
		c.SessionSecret = secret
		c.EphemeralSecret = true
	}

	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AuthConfig) Merge(overlay *AuthConfig) {
	if overlay.SessionSecret != "" {
		c.SessionSecret = overlay.SessionSecret
	}
	if overlay.SessionTTL != "" {
		c.SessionTTL = overlay.SessionTTL
	}
	if overlay.CookieName != "" {
		c.CookieName = overlay.CookieName
	}
	if overlay.SecureCookie {
		c.SecureCookie = true
	}
	if overlay.OIDC.Issuer != "" {
		c.OIDC.Issuer = overlay.OIDC.Issuer
	}
	if overlay.OIDC.ClientID != "" {
		c.OIDC.ClientID = overlay.OIDC.ClientID
	}
	if overlay.OIDC.ClientSecret != "" {
		c.OIDC.ClientSecret = overlay.OIDC.ClientSecret
	}
	if overlay.OIDC.RedirectURL != "" {
		c.OIDC.RedirectURL = overlay.OIDC.RedirectURL
	}
	if len(overlay.OIDC.Scopes) > 0 {
		c.OIDC.Scopes = overlay.OIDC.Scopes
	}
}

func (c *AuthConfig) loadDefaults() {
	if c.SessionTTL == "" {
		c.SessionTTL = "12h"
	}
	if c.CookieName == "" {
		c.CookieName = "erisa_session"
	}
	if len(c.OIDC.Scopes) == 0 {
		c.OIDC.Scopes = []string{"openid", "profile", "email"}
	}
}

func (c *AuthConfig) loadEnv() {
	envString(&c.SessionSecret, "ERISA_AUTH_SESSION_SECRET")
	envString(&c.SessionTTL, "ERISA_AUTH_SESSION_TTL")
	envString(&c.CookieName, "ERISA_AUTH_COOKIE_NAME")
	envBool(&c.SecureCookie, "ERISA_AUTH_SECURE_COOKIE")
	envString(&c.OIDC.Issuer, "ERISA_OIDC_ISSUER")
	envString(&c.OIDC.ClientID, "ERISA_OIDC_CLIENT_ID")
	envString(&c.OIDC.ClientSecret, "ERISA_OIDC_CLIENT_SECRET")
	envString(&c.OIDC.RedirectURL, "ERISA_OIDC_REDIRECT_URL")
}

func (c *AuthConfig) validate() error {
	if len(c.SessionSecret) < minSecretLength {
		return fmt.Errorf("session_secret must be at least %d characters", minSecretLength)
	}
	ttl, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return fmt.Errorf("invalid session_ttl: %w", err)
	}
	if ttl <= 0 {
		return errors.New("session_ttl must be positive")
	}
	if c.OIDC.Enabled() {
		if c.OIDC.ClientID == "" {
			return errors.New("oidc: client_id required when issuer is set")
		}
		if c.OIDC.RedirectURL == "" {
			return errors.New("oidc: redirect_url required when issuer is set")
		}
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, minSecretLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
