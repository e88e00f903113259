package claims

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/erisa/pkg/pagination"
	"github.com/JaimeStill/erisa/pkg/query"
	"github.com/JaimeStill/erisa/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a claim repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "claims"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Claim], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "IDText", "PatientName", "InsurerName")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.QueryScalar[int](ctx, r.db, countSQL, countArgs...)
	if err != nil {
		return nil, fmt.Errorf("count claims: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanClaim)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id int64) (*Claim, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanClaim)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) Details(ctx context.Context, id int64) ([]Detail, error) {
	q, args := query.
		NewBuilder(detailProjection, query.SortField{Field: "CPTCode"}).
		WhereEquals("ClaimID", id).
		Build()

	details, err := repository.QueryMany(ctx, r.db, q, args, scanDetail)
	if err != nil {
		return nil, fmt.Errorf("query claim details: %w", err)
	}
	return details, nil
}

func (r *repo) Record(ctx context.Context, id int64) (*Record, error) {
	c, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	details, err := r.Details(ctx, id)
	if err != nil {
		return nil, err
	}
	if details == nil {
		details = []Detail{}
	}

	return &Record{Claim: *c, Details: details}, nil
}

func (r *repo) Statuses(ctx context.Context) ([]Status, error) {
	return repository.QueryMany(
		ctx, r.db,
		"SELECT DISTINCT status FROM claims ORDER BY status",
		nil,
		func(s repository.Scanner) (Status, error) {
			var st Status
			err := s.Scan(&st)
			return st, err
		},
	)
}

func (r *repo) Insurers(ctx context.Context) ([]string, error) {
	return repository.QueryMany(
		ctx, r.db,
		"SELECT DISTINCT insurer_name FROM claims WHERE insurer_name <> '' ORDER BY insurer_name",
		nil,
		func(s repository.Scanner) (string, error) {
			var name string
			err := s.Scan(&name)
			return name, err
		},
	)
}

func (r *repo) CreateClaim(ctx context.Context, c Claim) error {
	q := `
		INSERT INTO claims(id, patient_name, billed_amount, paid_amount, status, insurer_name, discharge_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, q, claimArgs(c)...)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (r *repo) UpdateClaim(ctx context.Context, c Claim) error {
	q := `
		UPDATE claims
		SET patient_name = $2, billed_amount = $3, paid_amount = $4, status = $5,
			insurer_name = $6, discharge_date = $7, updated_at = NOW()
		WHERE id = $1`

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, q, claimArgs(c)...)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (r *repo) FindDetail(ctx context.Context, claimID int64, cptCode string) (*Detail, error) {
	q, args := query.
		NewBuilder(detailProjection).
		WhereEquals("ClaimID", claimID).
		WhereEquals("CPTCode", cptCode).
		BuildSingleOrNull()

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDetail)
	if err != nil {
		return nil, repository.MapError(err, ErrDetailNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) CreateDetail(ctx context.Context, d Detail) error {
	q := `
		INSERT INTO claim_details(claim_id, cpt_code, denial_reason)
		VALUES ($1, $2, $3)`

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, q, d.ClaimID, d.CPTCode, d.DenialReason)
	})
	if repository.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: %d", ErrNotFound, d.ClaimID)
	}
	if err != nil {
		return repository.MapError(err, ErrDetailNotFound, ErrDuplicate)
	}
	return nil
}

func (r *repo) UpdateDetail(ctx context.Context, d Detail) error {
	q := `
		UPDATE claim_details
		SET denial_reason = $3
		WHERE claim_id = $1 AND cpt_code = $2`

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, q, d.ClaimID, d.CPTCode, d.DenialReason)
	})
	if err != nil {
		return repository.MapError(err, ErrDetailNotFound, ErrDuplicate)
	}
	return nil
}

// Clear removes every detail and then every claim in one transaction.
// Annotations on the removed claims cascade with them.
func (r *repo) Clear(ctx context.Context) (ClearResult, error) {
	res, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (ClearResult, error) {
		var res ClearResult
		var err error

		if res.Details, err = repository.ExecCount(ctx, tx, "DELETE FROM claim_details"); err != nil {
			return res, fmt.Errorf("delete claim details: %w", err)
		}
		if res.Claims, err = repository.ExecCount(ctx, tx, "DELETE FROM claims"); err != nil {
			return res, fmt.Errorf("delete claims: %w", err)
		}
		return res, nil
	})
	if err != nil {
		return ClearResult{}, err
	}

	r.logger.Info("claims cleared", "claims", res.Claims, "details", res.Details)
	return res, nil
}

func claimArgs(c Claim) []any {
	return []any{
		c.ID,
		c.PatientName,
		c.BilledAmount,
		c.PaidAmount,
		string(c.Status),
		c.InsurerName,
		c.DischargeDate,
	}
}

// IsNotFound reports whether err means the claim or detail does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDetailNotFound)
}
