package loadtest

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMessages(t *testing.T) {
	testCases := []struct {
		err      *Error
		expected string
	}{
		{NewError(ErrKilled, nil), "Process interrupted by user"},
		{NewError(ErrMissingConfig, nil, "Environment variable 'X' not set"), "Missing configuration: Environment variable 'X' not set"},
		{NewError(ErrFailedToWriteStats, errors.New("disk full")), "Failed to write aggregate statistics. Caused by: disk full"},
		{NewError(ErrorCode(999), nil), "Unrecognized error"},
	}
	for i, tc := range testCases {
		if tc.err.Error() != tc.expected {
			t.Errorf("Test case %d: expected %q, but got %q", i, tc.expected, tc.err.Error())
		}
	}
}

func TestIsErrorCodeThroughWrapping(t *testing.T) {
	upstream := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", NewError(ErrStatsSanityCheckFailed, upstream))
	require.True(t, IsErrorCode(err, ErrStatsSanityCheckFailed))
	require.False(t, IsErrorCode(err, ErrKilled))
	require.True(t, errors.Is(err, upstream))
	require.False(t, IsErrorCode(errors.New("plain"), ErrKilled))
}

func TestExitCodes(t *testing.T) {
	require.Equal(t, 0, exitCodeFor(nil))
	require.Equal(t, int(ErrKilled), exitCodeFor(NewError(ErrKilled, nil)))
	require.Equal(t, int(ErrUnexpected), exitCodeFor(errors.New("plain")))
}
