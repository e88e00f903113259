package annotations

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// System defines the public contract for annotation operations.
type System interface {
	Handler(author AuthorFunc) *Handler

	Create(ctx context.Context, cmd CreateCommand) (*Annotation, error)
	ListByClaim(ctx context.Context, claimID int64) ([]Annotation, error)
	Counts(ctx context.Context, claimID int64) (Counts, error)
}

// AuthorFunc resolves the authenticated user of a request.
type AuthorFunc func(r *http.Request) (uuid.UUID, bool)
