// Package annotations implements user-authored flags and notes on claims.
// Annotations are append-only: they can be created and listed, never edited or removed.
package annotations

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes flags from notes.
type Kind string

const (
	KindFlag Kind = "flag"
	KindNote Kind = "note"
)

// DefaultFlagReason is used when a flag is submitted without a reason.
const DefaultFlagReason = "Flagged for review"

// Annotation is a flag or note attached to a claim.
// Category holds the flag reason and is nil for notes.
type Annotation struct {
	ID        uuid.UUID `json:"id"`
	ClaimID   int64     `json:"claim_id"`
	Kind      Kind      `json:"kind"`
	Category  *string   `json:"category"`
	Note      string    `json:"note"`
	AuthorID  uuid.UUID `json:"author_id"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCommand carries a new annotation from a form or JSON request.
type CreateCommand struct {
	ClaimID  int64
	Kind     Kind
	Category string
	Note     string
	AuthorID uuid.UUID
}

// Normalize trims input, applies the default flag reason, and validates the command.
func (c *CreateCommand) Normalize() error {
	c.Category = strings.TrimSpace(c.Category)
	c.Note = strings.TrimSpace(c.Note)

	if c.AuthorID == uuid.Nil {
		return ErrUnauthenticated
	}

	switch c.Kind {
	case KindFlag:
		if c.Category == "" {
			c.Category = DefaultFlagReason
		}
	case KindNote:
		c.Category = ""
		if c.Note == "" {
			return ErrEmptyNote
		}
	default:
		return ErrInvalidKind
	}
	return nil
}

// Counts reports how many flags and notes a claim carries.
type Counts struct {
	Flags int `json:"flags"`
	Notes int `json:"notes"`
}

// Result is returned after creating an annotation.
type Result struct {
	Success    bool       `json:"success"`
	Annotation Annotation `json:"annotation"`
	Counts     Counts     `json:"counts"`
}
