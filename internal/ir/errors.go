package ir

import (
	"errors"
	"fmt"
)

// ModelErrorCode categorizes value and predicate construction errors.
type ModelErrorCode string

const (
	// ErrCodeInvalidConstant indicates constant text that is not a base-10 integer.
	ErrCodeInvalidConstant ModelErrorCode = "INVALID_CONSTANT"

	// ErrCodeInvalidPredicate indicates a predicate with two constants or no relation.
	ErrCodeInvalidPredicate ModelErrorCode = "INVALID_PREDICATE"

	// ErrCodeInvalidName indicates a variable name that is not an identifier.
	ErrCodeInvalidName ModelErrorCode = "INVALID_NAME"

	// ErrCodeNameTooLong indicates a variable name longer than MaxNameLen bytes.
	ErrCodeNameTooLong ModelErrorCode = "NAME_TOO_LONG"

	// ErrCodeSerialization indicates an attempt to render NoRelation as text.
	ErrCodeSerialization ModelErrorCode = "SERIALIZATION"
)

// ModelError represents an error constructing or serializing a model value.
type ModelError struct {
	// Code identifies the error category.
	Code ModelErrorCode

	// Message is a human-readable description.
	Message string

	// Input is the offending text, if any.
	Input string
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("%s: %s (input=%q)", e.Code, e.Message, e.Input)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newModelError(code ModelErrorCode, input, format string, args ...any) *ModelError {
	return &ModelError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Input:   input,
	}
}

// HasCode reports whether err is a ModelError with the given code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code ModelErrorCode) bool {
	var me *ModelError
	if errors.As(err, &me) {
		return me.Code == code
	}
	return false
}

// IsInvalidConstant returns true if err is an INVALID_CONSTANT error.
func IsInvalidConstant(err error) bool {
	return HasCode(err, ErrCodeInvalidConstant)
}

// IsInvalidPredicate returns true if err is an INVALID_PREDICATE error.
func IsInvalidPredicate(err error) bool {
	return HasCode(err, ErrCodeInvalidPredicate)
}

// IsSerializationError returns true if err is a SERIALIZATION error.
func IsSerializationError(err error) bool {
	return HasCode(err, ErrCodeSerialization)
}

// IsNameError returns true if err rejects a variable name for any reason.
func IsNameError(err error) bool {
	return HasCode(err, ErrCodeInvalidName) || HasCode(err, ErrCodeNameTooLong)
}
