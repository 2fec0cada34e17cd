package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeTypeMismatch, "column %q is not numeric", "pdb_residue")

	if err.Code != ErrCodeTypeMismatch {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeTypeMismatch)
	}

	if err.Message != `column "pdb_residue" is not numeric` {
		t.Errorf("Message = %v", err.Message)
	}

	expected := `TYPE_MISMATCH: column "pdb_residue" is not numeric`
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := Wrap(ErrCodeMalformedStream, cause, "parse document")

	if err.Code != ErrCodeMalformedStream {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeMalformedStream)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	if err.Error() != "MALFORMED_STREAM: parse document: unexpected EOF" {
		t.Errorf("Error() = %v", err.Error())
	}
}

func TestWithSubject(t *testing.T) {
	err := New(ErrCodeDanglingReference, "no sequence with id %q", "seq9").WithSubject("seq9")

	if err.Subject != "seq9" {
		t.Errorf("Subject = %q, want %q", err.Subject, "seq9")
	}
	if got := GetSubject(err); got != "seq9" {
		t.Errorf("GetSubject() = %q, want %q", got, "seq9")
	}
	if got := GetSubject(errors.New("plain")); got != "" {
		t.Errorf("GetSubject(plain) = %q, want empty", got)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeMissingBlock, "test"),
			code:     ErrCodeMissingBlock,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeMissingBlock, "test"),
			code:     ErrCodeMissingAttribute,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeInternal, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeInternal,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeStructuralMismatch, "test"), ErrCodeStructuralMismatch},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsFormatError(t *testing.T) {
	format := []Code{
		ErrCodeMalformedStream,
		ErrCodeMissingBlock,
		ErrCodeMissingAttribute,
		ErrCodeStructuralMismatch,
		ErrCodeMissingRequiredColumn,
		ErrCodeDanglingReference,
		ErrCodeTypeMismatch,
		ErrCodeMalformedURL,
		ErrCodeDuplicateID,
	}
	for _, code := range format {
		if !IsFormatError(New(code, "x")) {
			t.Errorf("IsFormatError(%s) = false, want true", code)
		}
	}

	operational := []error{
		New(ErrCodeNotFound, "x"),
		New(ErrCodeInvalidInput, "x"),
		errors.New("disk full"),
		nil,
	}
	for _, err := range operational {
		if IsFormatError(err) {
			t.Errorf("IsFormatError(%v) = true, want false", err)
		}
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Error type", New(ErrCodeMissingAttribute, "column has no id"), "column has no id"},
		{"wrapped Error", Wrap(ErrCodeMalformedStream, errors.New("eof"), "bad xml"), "bad xml"},
		{"plain error", errors.New("plain error message"), "plain error message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}
