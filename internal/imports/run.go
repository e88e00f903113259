// Package imports records the history of claim ingestion runs.
package imports

import (
	"time"

	"github.com/google/uuid"
)

// Counts tallies the outcome of one record kind in a run.
type Counts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Total returns the number of records processed.
func (c Counts) Total() int {
	return c.Created + c.Updated + c.Skipped + c.Failed
}

// Run is a completed ingestion run.
type Run struct {
	ID             uuid.UUID `json:"id"`
	Files          []string  `json:"files"`
	Format         string    `json:"format"`
	Mode           string    `json:"mode"`
	UpdateExisting bool      `json:"update_existing"`
	ArchiveKeys    []string  `json:"archive_keys"`
	Claims         Counts    `json:"claims"`
	Details        Counts    `json:"details"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
