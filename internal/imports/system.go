package imports

import (
	"context"

	"github.com/JaimeStill/erisa/pkg/pagination"
)

// System defines the public contract for import run history.
type System interface {
	Handler() *Handler

	Record(ctx context.Context, run Run) (*Run, error)
	List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Run], error)
	Recent(ctx context.Context, limit int) ([]Run, error)
}
