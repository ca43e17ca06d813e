package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation ErrorKind = "VALIDATION"
	KindNotFound   ErrorKind = "NOT_FOUND"
	KindOutOfStock ErrorKind = "OUT_OF_STOCK"
	KindConflict   ErrorKind = "CONFLICT"
	KindInternal   ErrorKind = "INTERNAL"
)

// Error is the error type surfaced by the engine. It carries the kind plus
// the material/variant it concerns, so a caller can tell which line of a
// batch failed.
type Error struct {
	Kind       ErrorKind
	Message    string
	MaterialID int32
	VariantID  *int32
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.MaterialID != 0 {
		if e.VariantID != nil {
			msg = fmt.Sprintf("%s (material %d, variant %d)", msg, e.MaterialID, *e.VariantID)
		} else {
			msg = fmt.Sprintf("%s (material %d)", msg, e.MaterialID)
		}
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// WithItem attaches the offending material/variant to the error.
func (e *Error) WithItem(materialID int32, variantID *int32) *Error {
	e.MaterialID = materialID
	e.VariantID = variantID
	return e
}

func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewOutOfStockError(format string, args ...any) *Error {
	return &Error{Kind: KindOutOfStock, Message: fmt.Sprintf(format, args...)}
}

func NewConflictError(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NewInternalError(err error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf classifies any error, unwrapping as needed. Errors that did not
// originate in this package count as Internal.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
