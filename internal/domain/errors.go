package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed classification applied to every failure that
// crosses an API boundary. Loop bodies branch on the kind, never on raw
// status codes.
type ErrorKind string

const (
	// KindNotFound marks an absent resource. Often tolerated, e.g. an
	// already-deleted contract.
	KindNotFound ErrorKind = "not_found"
	// KindServerError marks 5xx responses: connection or database trouble
	// on the remote side, retried on the next timer tick.
	KindServerError ErrorKind = "server_error"
	// KindValidation marks malformed input such as a bad device
	// identifier; skipped, never escalated.
	KindValidation ErrorKind = "validation"
	// KindUnexpected is everything else; logged with full context and the
	// tick aborted.
	KindUnexpected ErrorKind = "unexpected"
)

// APIError is constructed once at the HTTP boundary and carries the
// classification upward with minimal wrapping.
type APIError struct {
	Kind    ErrorKind
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func NewAPIError(kind ErrorKind, op string, status int, message string) *APIError {
	return &APIError{Kind: kind, Op: op, Status: status, Message: message}
}

func NewValidationError(op, message string) *APIError {
	return &APIError{Kind: KindValidation, Op: op, Message: message}
}

// KindOf extracts the error kind, unwrapping as needed. Errors that
// never passed through an API boundary classify as unexpected.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnexpected
}

// IsNotFound reports whether err classifies as an absent resource.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
