package users

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for user operations.
type System interface {
	Register(ctx context.Context, cmd RegisterCommand) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)
	Find(ctx context.Context, id uuid.UUID) (*User, error)
	FindOrCreateExternal(ctx context.Context, identity ExternalIdentity) (*User, error)
	Count(ctx context.Context) (int, error)
}
