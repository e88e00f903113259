package imports_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/erisa/internal/imports"
	"github.com/JaimeStill/erisa/pkg/pagination"
	"github.com/JaimeStill/erisa/pkg/routes"
)

type mockSystem struct {
	imports.System
	listFn func(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[imports.Run], error)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[imports.Run], error) {
	return m.listFn(ctx, page)
}

var testPagination = pagination.Config{DefaultPageSize: 10, MaxPageSize: 50}

func setupMux(sys *mockSystem) *http.ServeMux {
	h := imports.NewHandler(sys, slog.New(slog.NewTextHandler(io.Discard, nil)), testPagination)
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())
	return mux
}

func TestCountsTotal(t *testing.T) {
	c := imports.Counts{Created: 3, Updated: 2, Skipped: 4, Failed: 1}
	if got := c.Total(); got != 10 {
		t.Errorf("Total: got %d, want 10", got)
	}
}

func TestRunDuration(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	run := imports.Run{StartedAt: start, CompletedAt: start.Add(1500 * time.Millisecond)}
	if got := run.Duration(); got != 1500*time.Millisecond {
		t.Errorf("Duration: got %v", got)
	}
}

func TestHandlerList(t *testing.T) {
	run := imports.Run{
		ID:     uuid.New(),
		Files:  []string{"claim_list_data.csv"},
		Format: "csv",
		Mode:   "append",
		Claims: imports.Counts{Created: 50},
	}

	var gotPage pagination.PageRequest
	sys := &mockSystem{
		listFn: func(_ context.Context, page pagination.PageRequest) (*pagination.PageResult[imports.Run], error) {
			gotPage = page
			result := pagination.NewPageResult([]imports.Run{run}, 1, page.Page, page.PageSize)
			return &result, nil
		},
	}

	rec := httptest.NewRecorder()
	setupMux(sys).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/imports?page=1&page_size=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if gotPage.PageSize != 5 {
		t.Errorf("page size: got %d, want 5", gotPage.PageSize)
	}

	var body pagination.PageResult[imports.Run]
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].Claims.Created != 50 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestHandlerListError(t *testing.T) {
	sys := &mockSystem{
		listFn: func(context.Context, pagination.PageRequest) (*pagination.PageResult[imports.Run], error) {
			return nil, errors.New("connection refused")
		},
	}

	rec := httptest.NewRecorder()
	setupMux(sys).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/imports", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
