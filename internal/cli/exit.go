package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/JaimeStill/erisa/internal/ingest"
)

// Exit codes returned by load_claims.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // records failed under --strict, or the run was interrupted
	ExitCommandError = 2 // bad flags, unreadable input, unreachable database
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without an underlying cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code and message to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode extracts the exit code from err. Nil is ExitSuccess and any
// other error is ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

var commandErrors = []error{
	ingest.ErrNoPaths,
	ingest.ErrUnknownFormat,
	ingest.ErrUnknownMode,
	ingest.ErrUnreadable,
	ingest.ErrUnrecognizedHeader,
	ingest.ErrFileTooLarge,
	ingest.ErrUnsupportedDocument,
}

// classify maps a loader error onto an exit code.
func classify(err error) *ExitError {
	for _, target := range commandErrors {
		if errors.Is(err, target) {
			return WrapExitError(ExitCommandError, "import aborted", err)
		}
	}
	if errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "import interrupted", err)
	}
	return WrapExitError(ExitFailure, "import failed", err)
}
