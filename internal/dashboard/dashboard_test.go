package dashboard_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/JaimeStill/erisa/internal/claims"
	"github.com/JaimeStill/erisa/internal/dashboard"
	"github.com/JaimeStill/erisa/pkg/routes"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewFinancials(t *testing.T) {
	tests := []struct {
		name                           string
		billed, paid, avgBilled, avgPd string
		wantUnder, wantAvg, wantPct    string
	}{
		{"typical", "1000.00", "750.00", "500.00", "375.00", "250", "125", "25"},
		{"no claims", "0", "0", "0", "0", "0", "0", "0"},
		{"fully paid", "639.00", "639.00", "639.00", "639.00", "0", "0", "0"},
		{"fractional", "300.00", "100.00", "150.004", "50.001", "200", "100", "66.67"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := dashboard.NewFinancials(dec(tt.billed), dec(tt.paid), dec(tt.avgBilled), dec(tt.avgPd))

			if !f.TotalUnderpayment.Equal(dec(tt.wantUnder)) {
				t.Errorf("underpayment: got %s, want %s", f.TotalUnderpayment, tt.wantUnder)
			}
			if !f.AvgUnderpayment.Equal(dec(tt.wantAvg)) {
				t.Errorf("avg: got %s, want %s", f.AvgUnderpayment, tt.wantAvg)
			}
			if !f.UnderpaymentPct.Equal(dec(tt.wantPct)) {
				t.Errorf("pct: got %s, want %s", f.UnderpaymentPct, tt.wantPct)
			}
		})
	}
}

func TestInsurerStat(t *testing.T) {
	s := dashboard.InsurerStat{Insurer: "Aetna", TotalBilled: dec("2000"), TotalPaid: dec("1500")}

	if !s.Underpayment().Equal(dec("500")) {
		t.Errorf("underpayment: got %s", s.Underpayment())
	}
	if !s.UnderpaymentRate().Equal(dec("25")) {
		t.Errorf("rate: got %s", s.UnderpaymentRate())
	}

	empty := dashboard.InsurerStat{}
	if !empty.UnderpaymentRate().IsZero() {
		t.Errorf("empty rate: got %s", empty.UnderpaymentRate())
	}
}

func TestStatusStatLabel(t *testing.T) {
	s := dashboard.StatusStat{Status: claims.StatusUnderReview}
	if got := s.Label(); got != "Under Review" {
		t.Errorf("got %q", got)
	}
}

func TestUserActivityTotal(t *testing.T) {
	if got := (dashboard.UserActivity{Flags: 2, Notes: 3}).Total(); got != 5 {
		t.Errorf("got %d", got)
	}
}

type mockSystem struct {
	dashboard.System
	overviewFn func(ctx context.Context) (*dashboard.Overview, error)
}

func (m *mockSystem) Overview(ctx context.Context) (*dashboard.Overview, error) {
	return m.overviewFn(ctx)
}

func serve(sys dashboard.System) *httptest.ResponseRecorder {
	h := dashboard.NewHandler(sys, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	return rec
}

func TestHandlerOverview(t *testing.T) {
	sys := &mockSystem{
		overviewFn: func(context.Context) (*dashboard.Overview, error) {
			return &dashboard.Overview{
				Totals:     dashboard.Totals{Claims: 42, Flags: 3},
				Financials: dashboard.NewFinancials(dec("100"), dec("80"), dec("50"), dec("40")),
			}, nil
		},
	}

	rec := serve(sys)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}

	var body struct {
		Totals struct {
			Claims int `json:"claims"`
			Flags  int `json:"flags"`
		} `json:"totals"`
		Financials struct {
			Pct string `json:"underpayment_percentage"`
		} `json:"financials"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Totals.Claims != 42 || body.Totals.Flags != 3 {
		t.Errorf("totals: %+v", body.Totals)
	}
	if body.Financials.Pct != "20" {
		t.Errorf("pct: got %q", body.Financials.Pct)
	}
}

func TestHandlerOverviewError(t *testing.T) {
	sys := &mockSystem{
		overviewFn: func(context.Context) (*dashboard.Overview, error) {
			return nil, errors.New("dashboard totals: timeout")
		},
	}

	if rec := serve(sys); rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d", rec.Code)
	}
}
