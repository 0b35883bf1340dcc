package client

import "fmt"

// Operation names used in RequestError and log lines
const (
	OpCreate = "create"
	OpList   = "list"
	OpGet    = "get"
	OpUpdate = "update"
	OpDelete = "delete"
)

// RequestError is the single failure value the transport returns.
// Reason is always a non-empty, human-readable string.
type RequestError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Reason     string
	Err        error
}

func (e *RequestError) Error() string {
	return e.Reason
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// failurePrefix returns the reason prefix for an operation
func failurePrefix(op string) string {
	switch op {
	case OpList:
		return "Failed to get inputs"
	case OpGet:
		return "Failed to get input"
	default:
		return fmt.Sprintf("Failed to %s input", op)
	}
}

// statusError builds the failure for a non-success status
func statusError(op string, resp *Response, deviceMsg string) *RequestError {
	reason := fmt.Sprintf("%s: %s", failurePrefix(op), resp.Status)
	if deviceMsg != "" {
		reason = fmt.Sprintf("%s (%s)", reason, deviceMsg)
	}
	return &RequestError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Reason:     reason,
	}
}

// wrapError builds the failure for a network or decode error
func wrapError(op string, statusCode int, err error) *RequestError {
	return &RequestError{
		Op:         op,
		StatusCode: statusCode,
		Reason:     fmt.Sprintf("%s: %v", failurePrefix(op), err),
		Err:        err,
	}
}
