package document

import (
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/vase/pkg/errors"
)

// isXMLChar reports whether r is in the XML 1.0 Char production.
func isXMLChar(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF,
		r >= 0xE000 && r <= 0xFFFD,
		r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

// checkText fails with INVALID_INPUT when s is not valid UTF-8 or holds a
// character that an XML document cannot carry. what describes s in the
// message; subject names the offending construct.
func checkText(s, what, subject string) error {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return errors.New(errors.ErrCodeInvalidInput,
				"%s is not valid UTF-8 at byte %d", what, i).WithSubject(subject)
		}
		if !isXMLChar(r) {
			return errors.New(errors.ErrCodeInvalidInput,
				"%s contains character %U at byte %d, which XML cannot carry", what, r, i).WithSubject(subject)
		}
		i += size
	}
	return nil
}

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// normalizeNewlines rewrites CRLF and lone CR line ends to LF, as every
// XML parser does with character data.
func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	return newlines.Replace(s)
}
