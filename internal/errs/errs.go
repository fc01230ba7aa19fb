// Package errs defines the stable, machine-readable error kinds exposed by
// the rating and payment core. Callers branch on Kind (or the family
// predicates) rather than on message text.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind string

const (
	// NotFound family
	KindProductNotFound  Kind = "PRODUCT_NOT_FOUND"
	KindPackageNotFound  Kind = "PACKAGE_NOT_FOUND"
	KindPaymentNotFound  Kind = "PAYMENT_NOT_FOUND"
	KindPolicyNotFound   Kind = "POLICY_NOT_FOUND"
	KindUnknownReference Kind = "UNKNOWN_REFERENCE"

	// Validation family
	KindInvalidCoverValue   Kind = "INVALID_COVER_VALUE"
	KindUnsupportedStrategy Kind = "UNSUPPORTED_RATING_STRATEGY"
	KindPackageInactive     Kind = "PACKAGE_INACTIVE"
	KindInvalidInput        Kind = "INVALID_INPUT"
	KindOutOfLimits         Kind = "OUT_OF_LIMITS"

	// Conflict family
	KindDuplicateReference Kind = "DUPLICATE_REFERENCE"
	KindInvalidTransition  Kind = "INVALID_TRANSITION"

	// Transient family - storage or upstream collaborator failures
	KindStorage            Kind = "STORAGE_ERROR"
	KindSourceUnavailable  Kind = "POLICY_SOURCE_UNAVAILABLE"
	KindGatewayUnavailable Kind = "GATEWAY_UNAVAILABLE"
)

// Error carries a stable kind plus a human-readable message. Internals and
// stack traces stay in the wrapped cause and never leave the process
// boundary.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(cause error, kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf returns the kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is lets errors.Is match two kind errors regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func IsNotFound(err error) bool {
	switch KindOf(err) {
	case KindProductNotFound, KindPackageNotFound, KindPaymentNotFound,
		KindPolicyNotFound, KindUnknownReference:
		return true
	}
	return false
}

func IsValidation(err error) bool {
	switch KindOf(err) {
	case KindInvalidCoverValue, KindUnsupportedStrategy, KindPackageInactive,
		KindInvalidInput, KindOutOfLimits:
		return true
	}
	return false
}

func IsConflict(err error) bool {
	switch KindOf(err) {
	case KindDuplicateReference, KindInvalidTransition:
		return true
	}
	return false
}

// IsTransient reports whether err came from storage or an upstream
// collaborator rather than from business validation. The orchestrator uses
// this to leave ledger entries in INITIATED instead of mis-marking them
// FAILED.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindStorage, KindSourceUnavailable, KindGatewayUnavailable:
		return true
	}
	return false
}
