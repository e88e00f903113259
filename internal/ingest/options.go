// Package ingest loads claims and claim details from CSV or JSON files and
// reconciles them against stored records.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a source file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a --format value. An empty value means auto-detect.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (want csv or json)", ErrUnknownFormat, s)
	}
}

// DetectFormat infers the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".psv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: cannot detect format of %s, pass --format", ErrUnknownFormat, path)
	}
}

// Mode selects how incoming records reconcile with stored ones.
type Mode string

const (
	// ModeAppend creates new records and skips existing ones unless
	// UpdateExisting is set.
	ModeAppend Mode = "append"
	// ModeOverwrite updates matched records and creates the rest.
	ModeOverwrite Mode = "overwrite"
	// ModeClear deletes every claim and detail, then creates everything.
	ModeClear Mode = "clear"
)

// ParseMode validates a --mode value.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAppend, ModeOverwrite, ModeClear:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (want append, overwrite or clear)", ErrUnknownMode, s)
	}
}

// Strategy is the action taken when an incoming record already exists.
type Strategy int

const (
	Skip Strategy = iota
	Update
)

func (s Strategy) String() string {
	if s == Update {
		return "update"
	}
	return "skip"
}

// Options configures one ingestion run.
type Options struct {
	Paths          []string
	Format         Format
	Mode           Mode
	UpdateExisting bool
}

// Strategy resolves update-versus-skip for existing records. Overwrite always
// updates; append updates only with UpdateExisting. Clear never meets an
// existing record except for duplicates within the same run, which are skipped.
func (o Options) Strategy() Strategy {
	switch {
	case o.Mode == ModeOverwrite:
		return Update
	case o.Mode == ModeAppend && o.UpdateExisting:
		return Update
	default:
		return Skip
	}
}

// FormatFor returns the explicit format or the one detected from path.
func (o Options) FormatFor(path string) (Format, error) {
	if o.Format != "" {
		return o.Format, nil
	}
	return DetectFormat(path)
}

// Validate checks the options before any file is read.
func (o Options) Validate() error {
	if len(o.Paths) == 0 {
		return ErrNoPaths
	}
	if _, err := ParseMode(string(o.Mode)); err != nil {
		return err
	}
	if _, err := ParseFormat(string(o.Format)); err != nil {
		return err
	}
	return nil
}
