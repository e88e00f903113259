// Package dashboard aggregates portfolio statistics for the analyst dashboard.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JaimeStill/erisa/internal/claims"
	"github.com/JaimeStill/erisa/internal/imports"
)

// Thresholds and list sizes for the dashboard sections.
const (
	HighValueThreshold = 10000
	TopInsurerLimit    = 10
	ListLimit          = 10
	ActiveUserLimit    = 5
	RecentImportLimit  = 5
	RecentWindow       = 30 * 24 * time.Hour
	MonthlyWindow      = 365 * 24 * time.Hour
)

var hundred = decimal.NewFromInt(100)

// Overview is the complete dashboard payload.
type Overview struct {
	Totals        Totals         `json:"totals"`
	Financials    Financials     `json:"financials"`
	Statuses      []StatusStat   `json:"statuses"`
	TopInsurers   []InsurerStat  `json:"top_insurers"`
	Monthly       []MonthStat    `json:"monthly"`
	HighValue     []ClaimSummary `json:"high_value_underpaid"`
	MostFlagged   []ClaimSummary `json:"most_flagged"`
	ActiveUsers   []UserActivity `json:"active_users"`
	RecentImports []imports.Run  `json:"recent_imports"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// Totals holds record counts.
type Totals struct {
	Claims      int `json:"claims"`
	Flags       int `json:"flags"`
	Notes       int `json:"notes"`
	Users       int `json:"users"`
	RecentFlags int `json:"recent_flags"`
	RecentNotes int `json:"recent_notes"`
}

// Financials summarizes billed and paid amounts across all claims.
type Financials struct {
	TotalBilled       decimal.Decimal `json:"total_billed"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	TotalUnderpayment decimal.Decimal `json:"total_underpayment"`
	AvgUnderpayment   decimal.Decimal `json:"avg_underpayment"`
	UnderpaymentPct   decimal.Decimal `json:"underpayment_percentage"`
}

// NewFinancials derives underpayment figures from the raw aggregates.
func NewFinancials(totalBilled, totalPaid, avgBilled, avgPaid decimal.Decimal) Financials {
	under := totalBilled.Sub(totalPaid)
	return Financials{
		TotalBilled:       totalBilled,
		TotalPaid:         totalPaid,
		TotalUnderpayment: under,
		AvgUnderpayment:   avgBilled.Sub(avgPaid).Round(2),
		UnderpaymentPct:   percent(under, totalBilled),
	}
}

// StatusStat counts claims in one status.
type StatusStat struct {
	Status      claims.Status   `json:"status"`
	Count       int             `json:"count"`
	TotalBilled decimal.Decimal `json:"total_billed"`
}

// Label returns the display label for the status.
func (s StatusStat) Label() string {
	return s.Status.Label()
}

// InsurerStat aggregates one insurer's claims.
type InsurerStat struct {
	Insurer     string          `json:"insurer"`
	ClaimCount  int             `json:"claim_count"`
	TotalBilled decimal.Decimal `json:"total_billed"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
}

// Underpayment returns billed minus paid.
func (s InsurerStat) Underpayment() decimal.Decimal {
	return s.TotalBilled.Sub(s.TotalPaid)
}

// UnderpaymentRate returns underpayment as a percentage of billed.
func (s InsurerStat) UnderpaymentRate() decimal.Decimal {
	return percent(s.Underpayment(), s.TotalBilled)
}

// MonthStat counts claims discharged in one calendar month.
type MonthStat struct {
	Month       time.Time       `json:"month"`
	Count       int             `json:"count"`
	TotalBilled decimal.Decimal `json:"total_billed"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
}

// ClaimSummary is a compact claim row for dashboard lists.
type ClaimSummary struct {
	ID           int64           `json:"id"`
	PatientName  string          `json:"patient_name"`
	InsurerName  string          `json:"insurer_name"`
	BilledAmount decimal.Decimal `json:"billed_amount"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	FlagCount    int             `json:"flag_count"`
}

// Underpayment returns billed minus paid.
func (c ClaimSummary) Underpayment() decimal.Decimal {
	return c.BilledAmount.Sub(c.PaidAmount)
}

// UserActivity counts a user's annotations.
type UserActivity struct {
	Username string `json:"username"`
	Flags    int    `json:"flags"`
	Notes    int    `json:"notes"`
}

// Total returns flags plus notes.
func (u UserActivity) Total() int {
	return u.Flags + u.Notes
}

func percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}
