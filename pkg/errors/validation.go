package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// pdbAccessionRegex matches a four character PDB accession code (e.g. "1crn").
var pdbAccessionRegex = regexp.MustCompile(`^[0-9][0-9a-zA-Z]{3}$`)

// structureIDRegex matches identifiers of custom (uploaded) structures,
// which are job ids rather than PDB accessions.
var structureIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// IsPDBAccession reports whether id looks like a PDB accession code.
func IsPDBAccession(id string) bool {
	return pdbAccessionRegex.MatchString(id)
}

// ValidateStructureID validates a structure identifier used to key cached
// documents. It rejects identifiers that could escape a cache directory.
//
// Validation rules:
//   - Not empty, at most 64 characters
//   - No control characters
//   - Letters, digits, '.', '_' and '-' only, starting with a letter or digit
//   - No ".." sequences
func ValidateStructureID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidStructureID, "structure id cannot be empty")
	}

	if len(id) > 64 {
		return New(ErrCodeInvalidStructureID, "structure id too long (max 64 characters)").WithSubject(id)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidStructureID, "structure id contains invalid control characters").WithSubject(id)
		}
	}

	if strings.Contains(id, "..") {
		return New(ErrCodeInvalidStructureID, "structure id cannot contain %q", "..").WithSubject(id)
	}

	if !structureIDRegex.MatchString(id) {
		return New(ErrCodeInvalidStructureID, "invalid structure id: %q", id).WithSubject(id)
	}

	return nil
}

// ValidateChainID validates a PDB chain identifier. An empty chain is valid
// and means "the only chain".
func ValidateChainID(chain string) error {
	if chain == "" {
		return nil
	}
	if len(chain) != 1 {
		return New(ErrCodeInvalidChain, "chain id must be a single character: %q", chain).WithSubject(chain)
	}
	r := rune(chain[0])
	if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
		return New(ErrCodeInvalidChain, "chain id must be a letter or digit: %q", chain).WithSubject(chain)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme").WithSubject(rawURL)
	}

	return nil
}
