package whisper

import "fmt"

// FailureStatusCode is the sentinel status code attached to results and
// errors that never carried a real HTTP status: transport failures,
// terminal remote failures folded into a result, and exhausted wait
// budgets.
const FailureStatusCode = -1

// ValidationError is returned when a local precondition is violated
// before any network call is made. It is never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Message
}

// RemoteError is returned when the service answers with a non-success
// HTTP status. It carries the remote status code and the remote-supplied
// message verbatim.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error (status %d): %s", e.StatusCode, e.Message)
}

// TransportError wraps a network-level failure with no structured
// response (DNS, connection reset, request timeout). The status code is
// normalized to FailureStatusCode since no real HTTP status exists.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
