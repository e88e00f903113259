package ingest

import (
	"errors"
	"fmt"
)

// File-level errors. Any of these aborts a run before the first write.
var (
	ErrNoPaths             = errors.New("no input files")
	ErrUnknownFormat       = errors.New("unknown format")
	ErrUnknownMode         = errors.New("unknown mode")
	ErrUnreadable          = errors.New("unreadable file")
	ErrUnrecognizedHeader  = errors.New("file format not recognized")
	ErrFileTooLarge        = errors.New("file exceeds maximum size")
	ErrUnsupportedDocument = errors.New("unsupported JSON document")
)

// RowError describes a record that was skipped.
type RowError struct {
	File   string `json:"file"`
	Row    int    `json:"row"`
	Kind   Kind   `json:"kind"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s row %d: %s", e.File, e.Row, e.Reason)
}
