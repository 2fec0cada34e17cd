// Package errors provides structured error types for vase.
//
// Every failure the document codec can produce is an [*Error] carrying a
// machine-readable [Code], a human-readable message and, where one exists,
// the offending construct (a column id, an attribute name, a sequence id).
// The presentation layer relies on the subject to render an actionable
// message instead of a generic "parse failed".
//
// # Error Codes
//
// Codes fall into two groups:
//   - Format codes (MALFORMED_STREAM, MISSING_BLOCK, ...): the persisted
//     document violates the format; see [IsFormatError].
//   - Operational codes (INVALID_*, NOT_FOUND, INTERNAL_ERROR): everything else.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDanglingReference, "no column with id %q", id).WithSubject(id)
//	if errors.Is(err, errors.ErrCodeDanglingReference) {
//	    // ...
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Format error codes. Each one aborts a whole deserialize call.
const (
	ErrCodeMalformedStream       Code = "MALFORMED_STREAM"
	ErrCodeMissingBlock          Code = "MISSING_BLOCK"
	ErrCodeMissingAttribute      Code = "MISSING_ATTRIBUTE"
	ErrCodeStructuralMismatch    Code = "STRUCTURAL_MISMATCH"
	ErrCodeMissingRequiredColumn Code = "MISSING_REQUIRED_COLUMN"
	ErrCodeDanglingReference     Code = "DANGLING_REFERENCE"
	ErrCodeTypeMismatch          Code = "TYPE_MISMATCH"
	ErrCodeMalformedURL          Code = "MALFORMED_URL"
	ErrCodeDuplicateID           Code = "DUPLICATE_ID"
)

// Operational error codes.
const (
	ErrCodeInvalidInput       Code = "INVALID_INPUT"
	ErrCodeInvalidStructureID Code = "INVALID_STRUCTURE_ID"
	ErrCodeInvalidChain       Code = "INVALID_CHAIN"
	ErrCodeInvalidConfig      Code = "INVALID_CONFIG"

	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

var formatCodes = map[Code]bool{
	ErrCodeMalformedStream:       true,
	ErrCodeMissingBlock:          true,
	ErrCodeMissingAttribute:      true,
	ErrCodeStructuralMismatch:    true,
	ErrCodeMissingRequiredColumn: true,
	ErrCodeDanglingReference:     true,
	ErrCodeTypeMismatch:          true,
	ErrCodeMalformedURL:          true,
	ErrCodeDuplicateID:           true,
}

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Subject string // Offending id, attribute or element (optional)
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSubject records the offending construct and returns e.
func (e *Error) WithSubject(subject string) *Error {
	e.Subject = subject
	return e
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetSubject extracts the offending construct from an error, if available.
func GetSubject(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Subject
	}
	return ""
}

// IsFormatError reports whether err is a document format violation, as
// opposed to an I/O or operational failure.
func IsFormatError(err error) bool {
	return formatCodes[GetCode(err)]
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
