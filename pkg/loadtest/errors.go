package loadtest

import (
	"errors"
	"fmt"
)

// ErrorCode allows us to encapsulate specific failure codes for the
// simulation. They double as process exit codes.
type ErrorCode int

// Error/exit codes for simulation-related errors.
const (
	NoError ErrorCode = iota
	ErrInvalidConfig
	ErrMissingConfig
	ErrQueueInsertFailed
	ErrKilled
	ErrStatsSanityCheckFailed
	ErrFailedToWriteStats
	ErrFailedToWriteMetrics
	ErrUnexpected
)

// Error is a way of wrapping the meaningful exit code we want to provide on
// failure.
type Error struct {
	Code     ErrorCode
	Message  string
	Upstream error
}

// Error implements error.
var _ error = (*Error)(nil)

// NewError allows us to create new Error structures from the given code and
// upstream error (can be nil).
func NewError(code ErrorCode, upstream error, additionalInfo ...string) *Error {
	return &Error{
		Code:     code,
		Message:  ErrorMessageForCode(code, additionalInfo...),
		Upstream: upstream,
	}
}

// Error implements error.
func (e Error) Error() string {
	if e.Upstream != nil {
		return fmt.Sprintf("%s. Caused by: %s", e.Message, e.Upstream.Error())
	}
	return e.Message
}

func (e Error) Unwrap() error {
	return e.Upstream
}

// ErrorMessageForCode translates the given error code into a human-readable,
// English message.
func ErrorMessageForCode(code ErrorCode, additionalInfo ...string) string {
	var result string
	switch code {
	case NoError:
		result = "No error"
	case ErrInvalidConfig:
		result = "Invalid configuration"
	case ErrMissingConfig:
		result = "Missing configuration"
	case ErrQueueInsertFailed:
		result = "Failed to put message into the queue"
	case ErrKilled:
		result = "Process interrupted by user"
	case ErrStatsSanityCheckFailed:
		result = "Statistics sanity check failed"
	case ErrFailedToWriteStats:
		result = "Failed to write aggregate statistics"
	case ErrFailedToWriteMetrics:
		result = "Failed to write metrics"
	case ErrUnexpected:
		result = "Unexpected error occurred"
	default:
		return "Unrecognized error"
	}
	if len(additionalInfo) > 0 {
		result = fmt.Sprintf("%s: %s", result, additionalInfo[0])
	}
	return result
}

// IsErrorCode is a convenience function that attempts to find an Error in the
// given error's chain and checks its error code against the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// exitCodeFor maps an error returned from a run onto a process exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return int(NoError)
	}
	var e *Error
	if errors.As(err, &e) {
		return int(e.Code)
	}
	return int(ErrUnexpected)
}
