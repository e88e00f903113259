package dashboard

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/erisa/internal/claims"
	"github.com/JaimeStill/erisa/internal/imports"
	"github.com/JaimeStill/erisa/pkg/repository"
)

// maxConcurrentQueries bounds how many pool connections one overview holds.
const maxConcurrentQueries = 4

// System defines the public contract for dashboard aggregation.
type System interface {
	Handler() *Handler
	Overview(ctx context.Context) (*Overview, error)
}

type repo struct {
	db      *sql.DB
	imports imports.System
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a dashboard system reading from db. Recent import runs come from runs.
func New(db *sql.DB, runs imports.System, logger *slog.Logger) System {
	return &repo{
		db:      db,
		imports: runs,
		logger:  logger.With("system", "dashboard"),
		now:     time.Now,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

// Overview runs every aggregate concurrently. The first failure cancels the rest.
func (r *repo) Overview(ctx context.Context) (*Overview, error) {
	now := r.now().UTC()
	recentSince := now.Add(-RecentWindow)
	monthlySince := now.Add(-MonthlyWindow)

	o := &Overview{GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQueries)

	g.Go(func() error {
		t, err := r.totals(gctx, recentSince)
		o.Totals = t
		return wrap("totals", err)
	})
	g.Go(func() error {
		f, err := r.financials(gctx)
		o.Financials = f
		return wrap("financials", err)
	})
	g.Go(func() error {
		s, err := repository.QueryMany(gctx, r.db, statusSQL, nil, scanStatus)
		o.Statuses = s
		return wrap("statuses", err)
	})
	g.Go(func() error {
		s, err := repository.QueryMany(gctx, r.db, insurerSQL, []any{TopInsurerLimit}, scanInsurer)
		o.TopInsurers = s
		return wrap("insurers", err)
	})
	g.Go(func() error {
		s, err := repository.QueryMany(gctx, r.db, monthlySQL, []any{monthlySince}, scanMonth)
		o.Monthly = s
		return wrap("monthly", err)
	})
	g.Go(func() error {
		s, err := repository.QueryMany(gctx, r.db, highValueSQL, []any{HighValueThreshold, ListLimit}, scanSummary)
		o.HighValue = s
		return wrap("high value", err)
	})
	g.Go(func() error {
		s, err := repository.QueryMany(gctx, r.db, mostFlaggedSQL, []any{ListLimit}, scanSummary)
		o.MostFlagged = s
		return wrap("most flagged", err)
	})
	g.Go(func() error {
		s, err := repository.QueryMany(gctx, r.db, activeUsersSQL, []any{ActiveUserLimit}, scanActivity)
		o.ActiveUsers = s
		return wrap("active users", err)
	})
	g.Go(func() error {
		runs, err := r.imports.Recent(gctx, RecentImportLimit)
		o.RecentImports = runs
		return wrap("recent imports", err)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return o, nil
}

const totalsSQL = `
	SELECT
		(SELECT COUNT(*) FROM claims),
		(SELECT COUNT(*) FROM annotations WHERE kind = 'flag'),
		(SELECT COUNT(*) FROM annotations WHERE kind = 'note'),
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM annotations WHERE kind = 'flag' AND created_at >= $1),
		(SELECT COUNT(*) FROM annotations WHERE kind = 'note' AND created_at >= $1)`

func (r *repo) totals(ctx context.Context, since time.Time) (Totals, error) {
	var t Totals
	err := r.db.QueryRowContext(ctx, totalsSQL, since).Scan(
		&t.Claims, &t.Flags, &t.Notes, &t.Users, &t.RecentFlags, &t.RecentNotes,
	)
	return t, err
}

const financialsSQL = `
	SELECT
		COALESCE(SUM(billed_amount), 0),
		COALESCE(SUM(paid_amount), 0),
		COALESCE(AVG(billed_amount), 0),
		COALESCE(AVG(paid_amount), 0)
	FROM claims`

func (r *repo) financials(ctx context.Context) (Financials, error) {
	var billed, paid, avgBilled, avgPaid decimal.Decimal
	if err := r.db.QueryRowContext(ctx, financialsSQL).Scan(&billed, &paid, &avgBilled, &avgPaid); err != nil {
		return Financials{}, err
	}
	return NewFinancials(billed, paid, avgBilled, avgPaid), nil
}

const statusSQL = `
	SELECT status, COUNT(*), COALESCE(SUM(billed_amount), 0)
	FROM claims
	GROUP BY status
	ORDER BY status`

func scanStatus(s repository.Scanner) (StatusStat, error) {
	var st StatusStat
	var status string
	err := s.Scan(&status, &st.Count, &st.TotalBilled)
	st.Status = claims.Status(status)
	return st, err
}

const insurerSQL = `
	SELECT insurer_name, COUNT(*), COALESCE(SUM(billed_amount), 0), COALESCE(SUM(paid_amount), 0)
	FROM claims
	GROUP BY insurer_name
	ORDER BY COUNT(*) DESC, insurer_name
	LIMIT $1`

func scanInsurer(s repository.Scanner) (InsurerStat, error) {
	var st InsurerStat
	err := s.Scan(&st.Insurer, &st.ClaimCount, &st.TotalBilled, &st.TotalPaid)
	return st, err
}

const monthlySQL = `
	SELECT DATE_TRUNC('month', discharge_date)::date AS month,
		COUNT(*), COALESCE(SUM(billed_amount), 0), COALESCE(SUM(paid_amount), 0)
	FROM claims
	WHERE discharge_date >= $1
	GROUP BY month
	ORDER BY month`

func scanMonth(s repository.Scanner) (MonthStat, error) {
	var st MonthStat
	err := s.Scan(&st.Month, &st.Count, &st.TotalBilled, &st.TotalPaid)
	return st, err
}

const summaryColumns = `
	c.id, c.patient_name, c.insurer_name, c.billed_amount, c.paid_amount,
	(SELECT COUNT(*) FROM annotations a WHERE a.claim_id = c.id AND a.kind = 'flag')`

const highValueSQL = `
	SELECT` + summaryColumns + `
	FROM claims c
	WHERE c.billed_amount - c.paid_amount > $1
	ORDER BY c.billed_amount - c.paid_amount DESC
	LIMIT $2`

const mostFlaggedSQL = `
	SELECT` + summaryColumns + ` AS flags
	FROM claims c
	WHERE EXISTS (SELECT 1 FROM annotations a WHERE a.claim_id = c.id AND a.kind = 'flag')
	ORDER BY flags DESC, c.id DESC
	LIMIT $1`

func scanSummary(s repository.Scanner) (ClaimSummary, error) {
	var c ClaimSummary
	err := s.Scan(&c.ID, &c.PatientName, &c.InsurerName, &c.BilledAmount, &c.PaidAmount, &c.FlagCount)
	return c, err
}

const activeUsersSQL = `
	SELECT u.username,
		COUNT(*) FILTER (WHERE a.kind = 'flag'),
		COUNT(*) FILTER (WHERE a.kind = 'note')
	FROM users u
	JOIN annotations a ON a.author_id = u.id
	GROUP BY u.id, u.username
	ORDER BY COUNT(*) DESC, u.username
	LIMIT $1`

func scanActivity(s repository.Scanner) (UserActivity, error) {
	var u UserActivity
	err := s.Scan(&u.Username, &u.Flags, &u.Notes)
	return u, err
}

func wrap(section string, err error) error {
	if err != nil {
		return fmt.Errorf("dashboard %s: %w", section, err)
	}
	return nil
}
