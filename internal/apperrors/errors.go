// Package apperrors provides the rejection taxonomy shared by the economy services and the API layer.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a failure by how the caller should react to it.
type Kind string

const (
	// KindValidation means the request was malformed; nothing changed.
	KindValidation Kind = "validation"
	// KindNotFound covers missing resources and resources owned by another account.
	KindNotFound Kind = "not_found"
	// KindConflict means the resource is already in a terminal state.
	KindConflict Kind = "conflict"
	// KindPrecondition means a requirement outside the request is unmet.
	KindPrecondition Kind = "precondition"
	// KindPersistence means the store failed; the action was not applied.
	KindPersistence Kind = "persistence"
)

// Code is a machine-readable rejection code.
type Code string

// Rejection codes.
const (
	CodeInvalidArgument      Code = "invalid_argument"
	CodeNotFound             Code = "not_found"
	CodeNotOwned             Code = "not_owned"
	CodeAlreadyCheckedIn     Code = "already_checked_in"
	CodeAlreadyOpened        Code = "already_opened"
	CodeExpired              Code = "expired"
	CodeInactive             Code = "inactive"
	CodeWalletRequired       Code = "wallet_required"
	CodeWalletAlreadyLinked  Code = "wallet_already_linked"
	CodeMaxCompletions       Code = "max_completions_reached"
	CodeAlreadyCompleted     Code = "already_completed"
	CodeOnCooldown           Code = "on_cooldown"
	CodeInvalidConfiguration Code = "invalid_configuration"
	CodeInsufficientBalance  Code = "insufficient_balance"
	CodeAccountBanned        Code = "account_banned"
	CodeInternal             Code = "internal"
)

// Error is a rejection carrying enough context for the caller to decide when to retry.
type Error struct {
	Kind            Kind
	Code            Code
	Message         string
	NextAvailableAt *time.Time
	Err             error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a rejection without a retry hint.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Retryable creates a conflict that becomes resolvable at next.
func Retryable(code Code, message string, next time.Time) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message, NextAvailableAt: &next}
}

// Validation creates a validation rejection.
func Validation(message string) *Error {
	return New(KindValidation, CodeInvalidArgument, message)
}

// Persistence wraps a store failure.
func Persistence(message string, err error) *Error {
	return &Error{Kind: KindPersistence, Code: CodeInternal, Message: message, Err: err}
}

// CodeOf extracts the rejection code from any error.
// Plain errors map to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// KindOf extracts the kind from any error. Plain errors are persistence failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// Is checks if the error has the specified code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// NextAvailableAt returns the retry hint carried by err, if any.
func NextAvailableAt(err error) *time.Time {
	var e *Error
	if errors.As(err, &e) {
		return e.NextAvailableAt
	}
	return nil
}
