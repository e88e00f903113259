package imports

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/erisa/pkg/pagination"
	"github.com/JaimeStill/erisa/pkg/query"
	"github.com/JaimeStill/erisa/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an import run repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "imports"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

const insertRun = `
	INSERT INTO import_runs(
		id, files, format, mode, update_existing, archive_keys,
		claims_created, claims_updated, claims_skipped, claims_failed,
		details_created, details_updated, details_skipped, details_failed,
		started_at, completed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

func (r *repo) Record(ctx context.Context, run Run) (*Run, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Files == nil {
		run.Files = []string{}
	}
	if run.ArchiveKeys == nil {
		run.ArchiveKeys = []string{}
	}

	err := repository.ExecExpectOne(
		ctx, r.db, insertRun,
		run.ID, run.Files, run.Format, run.Mode, run.UpdateExisting, run.ArchiveKeys,
		run.Claims.Created, run.Claims.Updated, run.Claims.Skipped, run.Claims.Failed,
		run.Details.Created, run.Details.Updated, run.Details.Skipped, run.Details.Failed,
		run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("record import run: %w", err)
	}

	r.logger.Info("import run recorded", "id", run.ID, "files", len(run.Files), "mode", run.Mode)
	return &run, nil
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Run], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort).WhereSearch(page.Search, "Format", "Mode")
	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.QueryScalar[int](ctx, r.db, countSQL, countArgs...)
	if err != nil {
		return nil, fmt.Errorf("count import runs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRun)
	if err != nil {
		return nil, fmt.Errorf("query import runs: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Recent(ctx context.Context, limit int) ([]Run, error) {
	q, args := query.NewBuilder(projection, defaultSort).BuildPage(1, limit)
	runs, err := repository.QueryMany(ctx, r.db, q, args, scanRun)
	if err != nil {
		return nil, fmt.Errorf("query recent import runs: %w", err)
	}
	return runs, nil
}
