package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/erisa/pkg/repository"
)

var (
	errNotFound  = errors.New("claim not found")
	errDuplicate = errors.New("claim already exists")
)

func TestMapError(t *testing.T) {
	other := errors.New("connection reset")
	fk := &pgconn.PgError{Code: "23503"}

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, errNotFound},
		{"wrapped no rows", fmt.Errorf("find claim: %w", sql.ErrNoRows), errNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, errDuplicate},
		{"foreign key passes through", fk, fk},
		{"other passes through", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repository.MapError(tt.in, errNotFound, errDuplicate)
			if got != tt.want {
				t.Errorf("MapError(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestViolationPredicates(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	fk := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"})

	if !repository.IsUniqueViolation(unique) {
		t.Error("IsUniqueViolation(23505) = false")
	}
	if repository.IsUniqueViolation(fk) {
		t.Error("IsUniqueViolation(23503) = true")
	}
	if !repository.IsForeignKeyViolation(fk) {
		t.Error("IsForeignKeyViolation(23503) = false")
	}
	if repository.IsForeignKeyViolation(errors.New("plain")) {
		t.Error("IsForeignKeyViolation(plain) = true")
	}
}

type fakeResult struct{ n int64 }

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.n, nil }

type fakeExecutor struct {
	n   int64
	err error
}

func (e fakeExecutor) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	if e.err != nil {
		return nil, e.err
	}
	return fakeResult{n: e.n}, nil
}

func TestExecExpectOne(t *testing.T) {
	ctx := context.Background()

	if err := repository.ExecExpectOne(ctx, fakeExecutor{n: 1}, "UPDATE"); err != nil {
		t.Errorf("one row: err = %v", err)
	}
	if err := repository.ExecExpectOne(ctx, fakeExecutor{n: 0}, "UPDATE"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("zero rows: err = %v, want sql.ErrNoRows", err)
	}

	boom := errors.New("boom")
	if err := repository.ExecExpectOne(ctx, fakeExecutor{err: boom}, "UPDATE"); !errors.Is(err, boom) {
		t.Errorf("exec error: err = %v, want boom", err)
	}
}

func TestExecCount(t *testing.T) {
	n, err := repository.ExecCount(context.Background(), fakeExecutor{n: 12}, "DELETE")
	if err != nil {
		t.Fatal(err)
	}
	if n != 12 {
		t.Errorf("ExecCount = %d, want 12", n)
	}
}
