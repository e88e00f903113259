package ingest

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JaimeStill/erisa/internal/claims"
)

// Kind tells claim records from detail records.
type Kind string

const (
	KindClaim   Kind = "claim"
	KindDetail  Kind = "detail"
	KindUnknown Kind = "unknown"
)

// ClaimRecord is a parsed claim and its position in the source.
type ClaimRecord struct {
	Row   int
	Claim claims.Claim
}

// DetailRecord is a parsed detail entry. One entry may carry several CPT codes;
// each expands to its own stored detail row.
type DetailRecord struct {
	Row          int
	ClaimID      int64
	CPTCodes     []string
	DenialReason *string
}

// Batch is the parsed content of one file.
type Batch struct {
	File    string
	Format  Format
	Claims  []ClaimRecord
	Details []DetailRecord
	Errors  []RowError
}

func (b *Batch) reject(kind Kind, row int, err error) {
	b.Errors = append(b.Errors, RowError{File: b.File, Row: row, Kind: kind, Reason: err.Error()})
}

// Canonical field names. Header cells and JSON keys are normalized onto these.
const (
	fieldID            = "id"
	fieldClaimID       = "claim_id"
	fieldPatientName   = "patient_name"
	fieldBilledAmount  = "billed_amount"
	fieldPaidAmount    = "paid_amount"
	fieldStatus        = "status"
	fieldInsurerName   = "insurer_name"
	fieldDischargeDate = "discharge_date"
	fieldCPTCodes      = "cpt_codes"
	fieldDenialReason  = "denial_reason"
)

var fieldAliases = map[string]string{
	"cpt_code": fieldCPTCodes,
	"cpt":      fieldCPTCodes,
	"insurer":  fieldInsurerName,
	"patient":  fieldPatientName,
}

// Column order of headerless files.
var (
	claimColumns = []string{
		fieldID, fieldPatientName, fieldBilledAmount, fieldPaidAmount,
		fieldStatus, fieldInsurerName, fieldDischargeDate,
	}
	detailColumns = []string{fieldClaimID, fieldCPTCodes, fieldDenialReason}
)

var dateLayouts = []string{"2006-01-02", "1/2/2006"}

func normalizeField(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "\ufeff")
	n = strings.NewReplacer(" ", "_", "-", "_").Replace(n)
	if alias, ok := fieldAliases[n]; ok {
		return alias
	}
	return n
}

// classify decides the record kind from the fields present.
func classify(has func(string) bool) Kind {
	switch {
	case has(fieldPatientName):
		return KindClaim
	case has(fieldClaimID) && (has(fieldCPTCodes) || has(fieldDenialReason)):
		return KindDetail
	default:
		return KindUnknown
	}
}

type fields map[string]string

func (f fields) get(name string) string {
	return strings.TrimSpace(f[name])
}

func (f fields) has(name string) bool {
	_, ok := f[name]
	return ok
}

func buildClaim(f fields) (claims.Claim, error) {
	var c claims.Claim

	raw := f.get(fieldID)
	if raw == "" {
		raw = f.get(fieldClaimID)
	}
	id, err := parseID(fieldID, raw)
	if err != nil {
		return c, err
	}
	c.ID = id

	if c.PatientName = f.get(fieldPatientName); c.PatientName == "" {
		return c, missing(fieldPatientName)
	}
	if c.BilledAmount, err = parseAmount(fieldBilledAmount, f.get(fieldBilledAmount)); err != nil {
		return c, err
	}
	if c.PaidAmount, err = parseAmount(fieldPaidAmount, f.get(fieldPaidAmount)); err != nil {
		return c, err
	}

	c.Status = claims.StatusPending
	if s := f.get(fieldStatus); s != "" {
		if c.Status, err = claims.ParseStatus(s); err != nil {
			return c, fmt.Errorf("%s: unknown status %q", fieldStatus, s)
		}
	}

	c.InsurerName = f.get(fieldInsurerName)

	if c.DischargeDate, err = parseDate(fieldDischargeDate, f.get(fieldDischargeDate)); err != nil {
		return c, err
	}
	return c, nil
}

func buildDetail(f fields) (DetailRecord, error) {
	var d DetailRecord

	id, err := parseID(fieldClaimID, f.get(fieldClaimID))
	if err != nil {
		return d, err
	}
	d.ClaimID = id

	d.CPTCodes = splitCodes(f.get(fieldCPTCodes))
	if len(d.CPTCodes) == 0 {
		return d, missing(fieldCPTCodes)
	}

	if reason := f.get(fieldDenialReason); reason != "" {
		d.DenialReason = &reason
	}
	return d, nil
}

func splitCodes(s string) []string {
	var codes []string
	for _, code := range strings.Split(s, ",") {
		code = strings.TrimSpace(code)
		if code != "" && !slices.Contains(codes, code) {
			codes = append(codes, code)
		}
	}
	return codes
}

func parseID(name, s string) (int64, error) {
	if s == "" {
		return 0, missing(name)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s: invalid identifier %q", name, s)
	}
	return id, nil
}

func parseAmount(name, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, missing(name)
	}
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(s)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid amount %q", name, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s: negative amount %q", name, s)
	}
	return d.Round(2), nil
}

func parseDate(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, missing(name)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: invalid date %q (want YYYY-MM-DD or MM/DD/YYYY)", name, s)
}

var errMissing = errors.New("required field is empty")

func missing(name string) error {
	return fmt.Errorf("%s: %w", name, errMissing)
}
