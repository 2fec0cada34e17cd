package errors

import (
	"strings"
	"testing"
)

func TestValidateStructureID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"pdb accession", "1crn", false},
		{"upper case", "1CRN", false},
		{"job id", "4b1e3f0a-7c2d-4c55-9d0e-2f5a1b6c7d8e", false},
		{"underscore", "custom_model.v2", false},

		{"empty", "", true},
		{"traversal", "../etc", true},
		{"double dot inside", "a..b", true},
		{"slash", "a/b", true},
		{"leading dash", "-x", true},
		{"control char", "ab\x00c", true},
		{"too long", strings.Repeat("a", 65), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStructureID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStructureID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidStructureID) {
				t.Errorf("ValidateStructureID(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateChainID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", false},
		{"letter", "A", false},
		{"digit", "1", false},

		{"two chars", "AB", true},
		{"space", " ", true},
		{"punct", "*", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChainID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateChainID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestIsPDBAccession(t *testing.T) {
	if !IsPDBAccession("101m") {
		t.Error("101m should be a PDB accession")
	}
	if IsPDBAccession("abcd") {
		t.Error("abcd should not be a PDB accession")
	}
	if IsPDBAccession("1crnA") {
		t.Error("1crnA should not be a PDB accession")
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://example.com/path", false},
		{"http", "http://example.com/path", false},

		{"empty", "", true},
		{"ftp", "ftp://example.com", true},
		{"file", "file:///etc/passwd", true},
		{"no scheme", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeMalformedStream,
		ErrCodeMissingBlock,
		ErrCodeMissingAttribute,
		ErrCodeStructuralMismatch,
		ErrCodeMissingRequiredColumn,
		ErrCodeDanglingReference,
		ErrCodeTypeMismatch,
		ErrCodeMalformedURL,
		ErrCodeDuplicateID,
		ErrCodeInvalidInput,
		ErrCodeInvalidStructureID,
		ErrCodeInvalidChain,
		ErrCodeInvalidConfig,
		ErrCodeNotFound,
		ErrCodeFileNotFound,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
