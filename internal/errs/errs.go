// Package errs holds the failure taxonomy shared by the parser, resolver and
// compiler. Every error carries a Kind so the HTTP layer can map it without
// string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the category of a failure.
type Kind string

const (
	KindQueryParse               Kind = "query_parse"
	KindNoGeocodeResult          Kind = "no_geocode_result"
	KindTooFarFromCentroid       Kind = "too_far_from_centroid"
	KindKnownCategoryUnsupported Kind = "known_category_unsupported"
	KindNoCategoryMatch          Kind = "no_category_match"
	KindArgumentCountMismatch    Kind = "argument_count_mismatch"
	KindTooManyConstraints       Kind = "too_many_constraints"
	KindUnsupportedTime          Kind = "unsupported_time_constraint"
	KindNoRouteFound             Kind = "no_route_found"
	KindEmptyResult              Kind = "empty_result"
	KindStatementTimeout         Kind = "statement_timeout"
	KindValidation               Kind = "validation"
	KindExternal                 Kind = "external"
	KindInternal                 Kind = "internal"
)

// Error is the base error type.
type Error struct {
	Kind    Kind
	Message string
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

// Is matches another *Error of the same kind, so sentinel values like
// errs.Of(KindEmptyResult) work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Of returns a bare value of kind usable as an errors.Is target.
func Of(kind Kind) error {
	return &Error{Kind: kind}
}

// KindOf returns the kind of the outermost *Error in the chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether any *Error in the chain has the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
