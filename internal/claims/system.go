package claims

import (
	"context"

	"github.com/JaimeStill/erisa/pkg/pagination"
)

// System defines the public contract for claim domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Claim], error)

	Find(ctx context.Context, id int64) (*Claim, error)
	Details(ctx context.Context, id int64) ([]Detail, error)
	Record(ctx context.Context, id int64) (*Record, error)
	Statuses(ctx context.Context) ([]Status, error)
	Insurers(ctx context.Context) ([]string, error)

	// Write operations used by ingestion. Each runs in its own transaction.
	CreateClaim(ctx context.Context, c Claim) error
	UpdateClaim(ctx context.Context, c Claim) error
	FindDetail(ctx context.Context, claimID int64, cptCode string) (*Detail, error)
	CreateDetail(ctx context.Context, d Detail) error
	UpdateDetail(ctx context.Context, d Detail) error
	Clear(ctx context.Context) (ClearResult, error)
}

// ClearResult reports how many rows Clear removed.
type ClearResult struct {
	Claims  int64 `json:"claims"`
	Details int64 `json:"details"`
}
