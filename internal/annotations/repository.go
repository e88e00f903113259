package annotations

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/erisa/pkg/query"
	"github.com/JaimeStill/erisa/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates an annotation repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "annotations"),
	}
}

func (r *repo) Handler(author AuthorFunc) *Handler {
	return NewHandler(r, r.logger, author)
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Annotation, error) {
	if err := cmd.Normalize(); err != nil {
		return nil, err
	}

	var category *string
	if cmd.Kind == KindFlag {
		category = &cmd.Category
	}

	insert := `
		INSERT INTO annotations(id, claim_id, kind, category, note, author_id)
		VALUES ($1, $2, $3, $4, $5, $6)`

	id := uuid.New()
	selectSQL, selectArgs := query.NewBuilder(projection).BuildSingle("ID", id)

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Annotation, error) {
		exists, err := repository.QueryScalar[bool](ctx, tx, "SELECT EXISTS(SELECT 1 FROM claims WHERE id = $1)", cmd.ClaimID)
		if err != nil {
			return Annotation{}, err
		}
		if !exists {
			return Annotation{}, ErrClaimNotFound
		}

		if err := repository.ExecExpectOne(
			ctx, tx, insert,
			id, cmd.ClaimID, string(cmd.Kind), category, cmd.Note, cmd.AuthorID,
		); err != nil {
			return Annotation{}, err
		}

		return repository.QueryOne(ctx, tx, selectSQL, selectArgs, scanAnnotation)
	})

	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, ErrClaimNotFound
		}
		return nil, repository.MapError(err, ErrClaimNotFound, ErrDuplicate)
	}

	r.logger.Info("annotation created", "id", a.ID, "claim_id", a.ClaimID, "kind", a.Kind, "author", a.Author)
	return &a, nil
}

func (r *repo) ListByClaim(ctx context.Context, claimID int64) ([]Annotation, error) {
	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("ClaimID", claimID).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanAnnotation)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	return items, nil
}

func (r *repo) Counts(ctx context.Context, claimID int64) (Counts, error) {
	q := `
		SELECT
			COUNT(*) FILTER (WHERE kind = 'flag'),
			COUNT(*) FILTER (WHERE kind = 'note')
		FROM annotations
		WHERE claim_id = $1`

	var c Counts
	if err := r.db.QueryRowContext(ctx, q, claimID).Scan(&c.Flags, &c.Notes); err != nil {
		return Counts{}, fmt.Errorf("count annotations: %w", err)
	}
	return c, nil
}
