// Package apperr defines the error taxonomy shared by every module.
//
// Errors lose their Go type when they cross the mono request-reply boundary,
// so every Error renders as "<code>: <message>" and Decode recovers the kind
// from the text on the calling side.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is a stable, machine-readable error code.
type Kind string

const (
	KindValidation           Kind = "validation_error"
	KindUnauthorized         Kind = "unauthorized"
	KindForbidden            Kind = "forbidden"
	KindNotFound             Kind = "not_found"
	KindConflict             Kind = "conflict"
	KindOutOfStock           Kind = "out_of_stock"
	KindDuplicateReview      Kind = "duplicate_review"
	KindInvalidState         Kind = "invalid_state"
	KindInvalidTransition    Kind = "invalid_transition"
	KindPaymentNotSuccessful Kind = "payment_not_successful"
	KindRefundFailed         Kind = "refund_failed"
	KindUpstream             Kind = "upstream_failure"
	KindInternal             Kind = "internal_error"
)

var kinds = []Kind{
	KindValidation,
	KindUnauthorized,
	KindForbidden,
	KindNotFound,
	KindConflict,
	KindOutOfStock,
	KindDuplicateReview,
	KindInvalidState,
	KindInvalidTransition,
	KindPaymentNotSuccessful,
	KindRefundFailed,
	KindUpstream,
	KindInternal,
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. A target with a
// message only matches the identical message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind, keeping it reachable through errors.Unwrap.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return New(KindUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(KindForbidden, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

func OutOfStock(format string, args ...any) *Error {
	return New(KindOutOfStock, format, args...)
}

func DuplicateReview(format string, args ...any) *Error {
	return New(KindDuplicateReview, format, args...)
}

func InvalidState(format string, args ...any) *Error {
	return New(KindInvalidState, format, args...)
}

func InvalidTransition(format string, args ...any) *Error {
	return New(KindInvalidTransition, format, args...)
}

// Sentinels for errors.Is checks.
var (
	ErrValidation           = &Error{Kind: KindValidation}
	ErrUnauthorized         = &Error{Kind: KindUnauthorized}
	ErrForbidden            = &Error{Kind: KindForbidden}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrConflict             = &Error{Kind: KindConflict}
	ErrOutOfStock           = &Error{Kind: KindOutOfStock}
	ErrDuplicateReview      = &Error{Kind: KindDuplicateReview}
	ErrInvalidState         = &Error{Kind: KindInvalidState}
	ErrInvalidTransition    = &Error{Kind: KindInvalidTransition}
	ErrPaymentNotSuccessful = &Error{Kind: KindPaymentNotSuccessful}
	ErrRefundFailed         = &Error{Kind: KindRefundFailed}
	ErrUpstream             = &Error{Kind: KindUpstream}
)

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Decode recovers a classified error from its text. Errors that are already
// typed are returned as is; unrecognised errors are returned unchanged.
func Decode(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	// The outermost code wins: it is the classification closest to the caller.
	msg := err.Error()
	best := -1
	var bestKind Kind
	for _, k := range kinds {
		idx := strings.Index(msg, string(k)+": ")
		if idx >= 0 && (best < 0 || idx < best) {
			best = idx
			bestKind = k
		}
	}
	if best < 0 {
		for _, k := range kinds {
			if strings.HasSuffix(msg, string(k)) {
				return &Error{Kind: k, Err: err}
			}
		}
		return err
	}

	rest := msg[best+len(bestKind)+2:]
	return &Error{Kind: bestKind, Message: rest, Err: err}
}

// HTTPStatus maps a kind to its HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindOutOfStock, KindDuplicateReview, KindInvalidState,
		KindInvalidTransition, KindPaymentNotSuccessful:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRefundFailed, KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
