package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures by how the query loop must react to them.
type Kind string

const (
	KindData           Kind = "DATA_ERROR"
	KindAmbiguity      Kind = "QUERY_AMBIGUITY"
	KindDegenerate     Kind = "STATISTICAL_DEGENERACY"
	KindExternal       Kind = "EXTERNAL_SERVICE_ERROR"
	KindDivisionByZero Kind = "DIVISION_BY_ZERO"
	KindValidation     Kind = "VALIDATION_ERROR"
	KindInternal       Kind = "INTERNAL_ERROR"
)

// Error is the application error carried across package boundaries.
type Error struct {
	Kind    Kind   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Fatal reports whether the process cannot continue. Only dataset load failures are fatal.
func (e *Error) Fatal() bool {
	return e.Kind == KindData
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: err}
}

func Data(message string) *Error {
	return New(KindData, message)
}

func Degenerate(message string) *Error {
	return New(KindDegenerate, message)
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

// External wraps a failed call to the index or language-model service.
func External(err error, service string) *Error {
	return Wrap(err, KindExternal, service+" call failed")
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether any *Error in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// IsFatal reports whether err must stop the process.
func IsFatal(err error) bool {
	return Is(err, KindData)
}
