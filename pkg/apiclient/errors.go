package apiclient

import (
	"errors"
	"fmt"

	"github.com/notesprobe/pkg/protocol"
)

// ErrHTTPStatus is wrapped by errors produced from non-2xx responses.
var ErrHTTPStatus = errors.New("unexpected http status")

// Error is the only error kind returned by Client calls.
//
// StatusCode is zero when no response status is known (dial failures,
// timeouts before headers). Response holds the decoded JSON body of a
// failed response, or its raw text when it is not JSON, for diagnostics.
type Error struct {
	Message    string
	StatusCode int
	Response   any
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HasStatus reports whether an HTTP status is attached.
func (e *Error) HasStatus() bool {
	return e.StatusCode != 0
}

// Timeout reports whether the request ran out of time.
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, protocol.ErrTimeout)
}

// String includes the status code, useful in logs and test failures.
func (e *Error) String() string {
	if e.HasStatus() {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return e.Message
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusCode returns the HTTP status attached to err, or 0.
func StatusCode(err error) int {
	if apiErr, ok := AsError(err); ok {
		return apiErr.StatusCode
	}
	return 0
}
