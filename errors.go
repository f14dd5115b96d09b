package rowmap

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrorKind classifies why a column could not be mapped into a record field.
type ErrorKind uint8

const (
	// ColumnNotFound: the row has no column with the requested name.
	ColumnNotFound ErrorKind = iota + 1
	// ColumnTypeMismatch: the stored value's type cannot represent the field's type.
	ColumnTypeMismatch
	// ConversionFailed: the row source failed to decode the value for any other reason.
	ConversionFailed
)

func (k ErrorKind) String() string {
	switch k {
	case ColumnNotFound:
		return "column not found"
	case ColumnTypeMismatch:
		return "column type mismatch"
	case ConversionFailed:
		return "conversion failed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// Row sources report failures with these sentinels (wrapped or returned as is).
var (
	// ErrColumnNotFound must be matched (errors.Is) by a row source's error when
	// the requested column does not exist.
	ErrColumnNotFound = errors.New("rowmap: column not found")

	// ErrIncompatibleType is matched by *TypeError.
	ErrIncompatibleType = errors.New("rowmap: incompatible column type")

	// ErrConversionFailed is matched by every *MappingError of kind ConversionFailed.
	ErrConversionFailed = errors.New("rowmap: conversion failed")

	// ErrNullValue is returned when a NULL is decoded into a non-nullable destination.
	ErrNullValue = errors.New("rowmap: NULL into non-nullable destination")

	// ErrOutOfRange is returned when a numeric value does not fit the destination.
	ErrOutOfRange = errors.New("rowmap: value out of range")

	// ErrRowClosed is returned by row sources used after they were consumed.
	ErrRowClosed = errors.New("rowmap: row is closed")
)

// Schema construction errors.
var (
	ErrEmptyColumn     = errors.New("rowmap: empty column name")
	ErrDuplicateColumn = errors.New("rowmap: duplicate column name")
	ErrNotStruct       = errors.New("rowmap: record type must be a struct")
)

// TypeError reports that a stored value cannot be represented as the
// destination type. Row sources return it for static incompatibilities,
// before any parsing is attempted.
type TypeError struct {
	Want reflect.Type
	Got  reflect.Type // nil for an untyped value
}

func (e *TypeError) Error() string {
	got := "<nil>"
	if e.Got != nil {
		got = e.Got.String()
	}
	return fmt.Sprintf("cannot decode %s into %s", got, e.Want)
}

func (e *TypeError) Is(target error) bool { return target == ErrIncompatibleType }

// MappingError is the single error type returned by the non-panicking entry
// points and the panic value of the panicking ones.
type MappingError struct {
	Kind     ErrorKind
	Column   string
	Expected string // destination type, e.g. "int64"
	Err      error  // underlying row source error, may be nil
}

func (e *MappingError) Error() string {
	msg := fmt.Sprintf("rowmap: column %q: %s", e.Column, e.Kind)
	if e.Kind == ColumnTypeMismatch && e.Expected != "" {
		msg += " (want " + e.Expected + ")"
	}
	if e.Err != nil && e.Kind != ColumnNotFound {
		msg += ": " + trimPrefix(e.Err.Error())
	}
	return msg
}

func (e *MappingError) Unwrap() error { return e.Err }

// Is matches another *MappingError of the same kind (and column, when the
// target names one) and the kind sentinels.
func (e *MappingError) Is(target error) bool {
	switch t := target.(type) {
	case *MappingError:
		return t.Kind == e.Kind && (t.Column == "" || t.Column == e.Column)
	}
	switch target {
	case ErrColumnNotFound:
		return e.Kind == ColumnNotFound
	case ErrIncompatibleType:
		return e.Kind == ColumnTypeMismatch
	case ErrConversionFailed:
		return e.Kind == ConversionFailed
	}
	return false
}

// classify turns a row source failure for column into a *MappingError.
func classify(column string, want reflect.Type, err error) *MappingError {
	me := &MappingError{Column: column, Expected: want.String(), Err: err}
	var te *TypeError
	switch {
	case errors.Is(err, ErrColumnNotFound):
		me.Kind = ColumnNotFound
	case errors.As(err, &te):
		me.Kind = ColumnTypeMismatch
	default:
		me.Kind = ConversionFailed
	}
	return me
}

func trimPrefix(s string) string {
	const p = "rowmap: "
	if len(s) > len(p) && s[:len(p)] == p {
		return s[len(p):]
	}
	return s
}
