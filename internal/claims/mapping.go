package claims

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JaimeStill/erisa/pkg/query"
	"github.com/JaimeStill/erisa/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "claims", "c").
	Project("id", "ID").
	Project("patient_name", "PatientName").
	Project("billed_amount", "BilledAmount").
	Project("paid_amount", "PaidAmount").
	Project("status", "Status").
	Project("insurer_name", "InsurerName").
	Project("discharge_date", "DischargeDate").
	ProjectExpr("(SELECT COUNT(*) FROM public.annotations a WHERE a.claim_id = c.id AND a.kind = 'flag')", "FlagCount").
	ProjectExpr("(SELECT COUNT(*) FROM public.annotations a WHERE a.claim_id = c.id AND a.kind = 'note')", "NoteCount").
	Computed("CAST(c.id AS TEXT)", "IDText").
	Computed("(c.billed_amount - c.paid_amount)", "Underpayment")

var detailProjection = query.
	NewProjectionMap("public", "claim_details", "d").
	Project("id", "ID").
	Project("claim_id", "ClaimID").
	Project("cpt_code", "CPTCode").
	Project("denial_reason", "DenialReason")

var defaultSort = query.SortField{
	Field:      "ID",
	Descending: true,
}

// Filters contains optional filtering criteria for claim queries.
// Nil fields are ignored. Status matches exactly. Insurer and PatientName are
// case-insensitive contains matches, and the billed bounds are inclusive.
type Filters struct {
	Status      *Status          `json:"status,omitempty"`
	Insurer     *string          `json:"insurer,omitempty"`
	PatientName *string          `json:"patient_name,omitempty"`
	MinBilled   *decimal.Decimal `json:"min_billed,omitempty"`
	MaxBilled   *decimal.Decimal `json:"max_billed,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	var status *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}

	return b.
		WhereEquals("Status", status).
		WhereContains("InsurerName", f.Insurer).
		WhereContains("PatientName", f.PatientName).
		WhereGreaterOrEqual("BilledAmount", decimalArg(f.MinBilled)).
		WhereLessOrEqual("BilledAmount", decimalArg(f.MaxBilled))
}

func decimalArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return *d
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Unparseable values are ignored, matching how the list page treats stale links.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		if st, err := ParseStatus(s); err == nil {
			f.Status = &st
		}
	}

	if ins := strings.TrimSpace(values.Get("insurer")); ins != "" {
		f.Insurer = &ins
	}

	if pn := strings.TrimSpace(values.Get("patient_name")); pn != "" {
		f.PatientName = &pn
	}

	if v := values.Get("min_billed"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.MinBilled = &d
		}
	}

	if v := values.Get("max_billed"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.MaxBilled = &d
		}
	}

	return f
}

func scanClaim(s repository.Scanner) (Claim, error) {
	var c Claim
	err := s.Scan(
		&c.ID,
		&c.PatientName,
		&c.BilledAmount,
		&c.PaidAmount,
		&c.Status,
		&c.InsurerName,
		&c.DischargeDate,
		&c.FlagCount,
		&c.NoteCount,
	)
	return c, err
}

func scanDetail(s repository.Scanner) (Detail, error) {
	var d Detail
	err := s.Scan(
		&d.ID,
		&d.ClaimID,
		&d.CPTCode,
		&d.DenialReason,
	)
	return d, err
}
