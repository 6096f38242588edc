// Package errors defines the sentinel errors shared across topicsearch and
// maps them to CLI exit codes.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDocument  = errors.New("invalid document")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrStoreClosed      = errors.New("store closed")
	ErrStoreLocked      = errors.New("store locked by another writer")
	ErrIndexUnavailable = errors.New("index unavailable")
	ErrPredictFailed    = errors.New("prediction failed")
)

// AppError attaches a human-readable message to a sentinel error while
// keeping the sentinel reachable through errors.Is/As.
type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// Exit codes reported by the topicsearch binary.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitUsage         = 2
	ExitInvalidInput  = 3
	ExitStoreFailure  = 4
	ExitIndexMissing  = 5
	ExitPredictFailed = 6
)

// ExitCode translates an error into the process exit code for the CLI.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrInvalidDocument):
		return ExitInvalidInput
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrStoreClosed),
		errors.Is(err, ErrStoreLocked):
		return ExitStoreFailure
	case errors.Is(err, ErrIndexUnavailable):
		return ExitIndexMissing
	case errors.Is(err, ErrPredictFailed):
		return ExitPredictFailed
	default:
		return ExitFailure
	}
}
