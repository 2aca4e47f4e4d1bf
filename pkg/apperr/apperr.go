// Package apperr holds the error kinds shared by the storefront services.
// Callers match kinds with errors.Is and read the client-facing text with
// Message.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrPaymentMismatch = errors.New("payment does not match order")
	ErrNotPaid         = errors.New("order is not paid")
	ErrUpstream        = errors.New("upstream failure")
)

// Error carries a kind, a message safe to show to API clients and an
// optional cause that is only logged.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func New(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind error, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) error   { return New(ErrNotFound, message) }
func Validation(message string) error { return New(ErrValidation, message) }

// Message returns the client-facing message of err, or fallback when err
// does not carry one.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
