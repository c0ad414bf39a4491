package wled

import (
	"errors"
	"fmt"
)

// ErrEmptyUpdate is returned when a state update contains no fields to send.
var ErrEmptyUpdate = errors.New("state update is empty")

// ConnectionError indicates the device could not be reached or answered
// with a server error, after all retries were exhausted.
type ConnectionError struct {
	Host       string
	StatusCode int
	Err        error
}

func (e *ConnectionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("wled %s: connection error: status %d", e.Host, e.StatusCode)
	}
	return fmt.Sprintf("wled %s: connection error: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates a request hit its deadline.
type TimeoutError struct {
	Host string
	Err  error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("wled %s: request timed out: %v", e.Host, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// AuthError indicates the device rejected the request as unauthorized.
// Not retried: a second attempt with the same request cannot succeed.
type AuthError struct {
	Host       string
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("wled %s: authentication failed: status %d", e.Host, e.StatusCode)
}

// InvalidResponseError indicates the device answered with something that is
// not a usable API response (wrong status, empty body, rejected command).
type InvalidResponseError struct {
	Host       string
	StatusCode int
	Reason     string
}

func (e *InvalidResponseError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("wled %s: invalid response: %s (status %d)", e.Host, e.Reason, e.StatusCode)
	}
	return fmt.Sprintf("wled %s: invalid response: %s", e.Host, e.Reason)
}

// InvalidJSONError indicates a response body that could not be decoded.
type InvalidJSONError struct {
	Host string
	Err  error
}

func (e *InvalidJSONError) Error() string {
	return fmt.Sprintf("wled %s: invalid JSON: %v", e.Host, e.Err)
}

func (e *InvalidJSONError) Unwrap() error {
	return e.Err
}

// retryable reports whether a request that failed with err may succeed on a
// later attempt. Authentication and malformed-response failures are terminal.
func retryable(err error) bool {
	var connErr *ConnectionError
	var timeoutErr *TimeoutError
	return errors.As(err, &connErr) || errors.As(err, &timeoutErr)
}
