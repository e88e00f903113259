// Package users manages analyst accounts: registration with bcrypt password
// hashes, credential checks, and accounts provisioned by single sign-on.
package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// User is an analyst account. PasswordHash is nil for accounts created through
// single sign-on, which cannot log in with a password.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName returns the first name, falling back to the username.
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}

// RegisterCommand carries a signup form submission.
type RegisterCommand struct {
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Password        string
	PasswordConfirm string
}

// Validate trims the command and checks required fields and password rules.
// Uniqueness is enforced by the store.
func (c *RegisterCommand) Validate() error {
	c.Username = strings.TrimSpace(c.Username)
	c.Email = strings.TrimSpace(c.Email)
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)

	switch {
	case c.Username == "" || c.Email == "" || c.FirstName == "" || c.Password == "" || c.PasswordConfirm == "":
		return ErrMissingFields
	case !strings.Contains(c.Email, "@"):
		return ErrInvalidEmail
	case c.Password != c.PasswordConfirm:
		return ErrPasswordMismatch
	case len(c.Password) < MinPasswordLength:
		return ErrPasswordTooShort
	}
	return nil
}

// ExternalIdentity is the profile asserted by an identity provider.
type ExternalIdentity struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
}
