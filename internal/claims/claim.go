// Package claims implements the claim domain: insurance claims, their CPT line
// items, and the queries behind the claim list, detail, and filter views. It also
// carries the write operations used by claim ingestion.
package claims

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the adjudication state of a claim.
type Status string

const (
	StatusPending     Status = "pending"
	StatusPaid        Status = "paid"
	StatusDenied      Status = "denied"
	StatusUnderReview Status = "under_review"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusPending, StatusPaid, StatusDenied, StatusUnderReview}

var statusLabels = map[Status]string{
	StatusPending:     "Pending",
	StatusPaid:        "Paid",
	StatusDenied:      "Denied",
	StatusUnderReview: "Under Review",
}

// ParseStatus accepts a status in any case with spaces or hyphens in place of
// underscores, e.g. "Under Review", "under-review", "PAID".
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)

	st := Status(norm)
	if _, ok := statusLabels[st]; !ok {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// Label returns the display label, or the raw value for an unknown status.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Claim is a single insurance claim keyed by its external claim identifier.
// FlagCount and NoteCount are populated by list queries only.
type Claim struct {
	ID            int64           `json:"id"`
	PatientName   string          `json:"patient_name"`
	BilledAmount  decimal.Decimal `json:"billed_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Status        Status          `json:"status"`
	InsurerName   string          `json:"insurer_name"`
	DischargeDate time.Time       `json:"discharge_date"`
	FlagCount     int             `json:"flag_count"`
	NoteCount     int             `json:"note_count"`
}

// Underpayment returns billed minus paid.
func (c Claim) Underpayment() decimal.Decimal {
	return c.BilledAmount.Sub(c.PaidAmount)
}

// Equal reports whether the stored fields of c and o match.
func (c Claim) Equal(o Claim) bool {
	return c.ID == o.ID &&
		c.PatientName == o.PatientName &&
		c.BilledAmount.Equal(o.BilledAmount) &&
		c.PaidAmount.Equal(o.PaidAmount) &&
		c.Status == o.Status &&
		c.InsurerName == o.InsurerName &&
		c.DischargeDate.Equal(o.DischargeDate)
}

// Detail is one CPT line item of a claim.
type Detail struct {
	ID           int64   `json:"id"`
	ClaimID      int64   `json:"claim_id"`
	CPTCode      string  `json:"cpt_code"`
	DenialReason *string `json:"denial_reason"`
}

// Record is a claim together with its line items.
type Record struct {
	Claim
	Details []Detail `json:"details"`
}

// FilterOptions holds the distinct values offered by the list filters.
type FilterOptions struct {
	Statuses []Status `json:"statuses"`
	Insurers []string `json:"insurers"`
}
