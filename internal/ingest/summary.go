package ingest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/erisa/internal/claims"
	"github.com/JaimeStill/erisa/internal/imports"
)

// maxListedErrors caps the row errors printed by Render.
const maxListedErrors = 20

// Counts tallies per-record outcomes.
type Counts = imports.Counts

type outcome int

const (
	created outcome = iota
	updated
	skipped
	failed
)

func tally(c *Counts, o outcome) {
	switch o {
	case created:
		c.Created++
	case updated:
		c.Updated++
	case skipped:
		c.Skipped++
	case failed:
		c.Failed++
	}
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID          uuid.UUID           `json:"run_id"`
	Files          []string            `json:"files"`
	Formats        []Format            `json:"formats"`
	Mode           Mode                `json:"mode"`
	UpdateExisting bool                `json:"update_existing"`
	Cleared        *claims.ClearResult `json:"cleared,omitempty"`
	Claims         Counts              `json:"claims"`
	Details        Counts              `json:"details"`
	Unrecognized   int                 `json:"unrecognized"`
	Errors         []RowError          `json:"errors"`
	Warnings       []string            `json:"warnings"`
	ArchiveKeys    []string            `json:"archive_keys"`
	StartedAt      time.Time           `json:"started_at"`
	CompletedAt    time.Time           `json:"completed_at"`
}

// Total returns every record processed, failures included.
func (s *Summary) Total() int {
	return s.Claims.Total() + s.Details.Total() + s.Unrecognized
}

// HasFailures reports whether any record was rejected.
func (s *Summary) HasFailures() bool {
	return len(s.Errors) > 0
}

func (s *Summary) reject(e RowError, n int) {
	s.Errors = append(s.Errors, e)
	switch e.Kind {
	case KindClaim:
		s.Claims.Failed += n
	case KindDetail:
		s.Details.Failed += n
	default:
		s.Unrecognized += n
	}
}

func (s *Summary) warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// Run converts the summary into an import history entry.
func (s *Summary) Run() imports.Run {
	formats := make([]string, len(s.Formats))
	for i, f := range s.Formats {
		formats[i] = string(f)
	}

	return imports.Run{
		ID:             s.RunID,
		Files:          s.Files,
		Format:         strings.Join(formats, ","),
		Mode:           string(s.Mode),
		UpdateExisting: s.UpdateExisting,
		ArchiveKeys:    s.ArchiveKeys,
		Claims:         s.Claims,
		Details:        s.Details,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
	}
}

// Render writes the human-readable run summary.
func (s *Summary) Render(w io.Writer) error {
	rule := strings.Repeat("=", 50)

	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "IMPORT SUMMARY")
	fmt.Fprintln(&b, rule)

	mode := strings.ToUpper(string(s.Mode))
	if s.Mode == ModeAppend && s.UpdateExisting {
		mode += " (update existing)"
	}
	fmt.Fprintf(&b, "Mode: %s\n", mode)
	fmt.Fprintf(&b, "Files: %s\n", strings.Join(s.Files, ", "))
	if s.Cleared != nil {
		fmt.Fprintf(&b, "Cleared: %d claims, %d claim details\n", s.Cleared.Claims, s.Cleared.Details)
	}

	writeCounts(&b, "Claims", s.Claims)
	writeCounts(&b, "Claim Details", s.Details)

	if s.Unrecognized > 0 {
		fmt.Fprintf(&b, "\nUnrecognized records: %d\n", s.Unrecognized)
	}

	if len(s.Errors) > 0 {
		fmt.Fprintf(&b, "\nErrors (%d):\n", len(s.Errors))
		for i, e := range s.Errors {
			if i == maxListedErrors {
				fmt.Fprintf(&b, "  ... and %d more\n", len(s.Errors)-maxListedErrors)
				break
			}
			fmt.Fprintf(&b, "  %s\n", e.Error())
		}
	}

	if len(s.Warnings) > 0 {
		fmt.Fprintln(&b, "\nWarnings:")
		for _, warning := range s.Warnings {
			fmt.Fprintf(&b, "  %s\n", warning)
		}
	}

	fmt.Fprintf(&b, "\nTotal records processed: %d\n", s.Total())
	fmt.Fprintln(&b, rule)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeCounts(b *strings.Builder, title string, c Counts) {
	fmt.Fprintf(b, "\n%s:\n", title)
	fmt.Fprintf(b, "  ✓ Created: %d\n", c.Created)
	fmt.Fprintf(b, "  ↻ Updated: %d\n", c.Updated)
	fmt.Fprintf(b, "  ⊝ Skipped: %d\n", c.Skipped)
	fmt.Fprintf(b, "  ✗ Failed:  %d\n", c.Failed)
}
