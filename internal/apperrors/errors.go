// internal/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping and retry semantics.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"    // user-correctable input problem
	KindNotFound     Kind = "NOT_FOUND"     // unknown key, prize, purchase
	KindUnauthorized Kind = "UNAUTHORIZED"  // bad admin key or webhook signature
	KindConflict     Kind = "CONFLICT"      // bound device, spent spin, redeemed prize
	KindExhausted    Kind = "EXHAUSTED"     // key generation retry bound hit
	KindUpstream     Kind = "UPSTREAM"      // payment provider call failed
	KindInternal     Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetails attaches diagnostic context, e.g. the currently bound HWID on a
// device-mismatch rejection.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// DetailsOf returns the details map of err, if any.
func DetailsOf(err error) map[string]interface{} {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}

// HTTPStatus maps an error kind to its response status. Conflicts map to 403
// rather than 409: a bound license or a spent spin is a refusal, not a
// retryable write collision.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized, KindConflict:
		return http.StatusForbidden
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
