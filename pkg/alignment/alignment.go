// Package alignment reads and writes multiple-sequence alignments in FASTA
// format.
//
// An [Alignment] is an ordered list of sequences with unique ids. Order is
// kept so that a document renders its alignment rows the way the producer
// emitted them, but lookups go through [Alignment.Lookup] and [Alignment.Has].
//
// [Parse] and [Render] are inverses: for any alignment with unique, non-empty
// ids that contain no line breaks, Parse(Render(a)) equals a. Residues are
// kept verbatim, including gap characters ('-' and '.').
package alignment

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrDuplicateID is returned by [Parse] when two records share an id.
	ErrDuplicateID = errors.New("duplicate sequence id")

	// ErrEmptyID is returned by [Parse] when a header line has no id.
	ErrEmptyID = errors.New("empty sequence id")

	// ErrNoHeader is returned by [Parse] when residues appear before the
	// first header line.
	ErrNoHeader = errors.New("residues before first header")
)

// Sequence is one aligned sequence.
type Sequence struct {
	ID       string
	Residues string
}

// Alignment is an ordered set of sequences keyed by id.
// The zero value is an empty alignment.
type Alignment []Sequence

// Len returns the number of sequences.
func (a Alignment) Len() int { return len(a) }

// IDs returns the sequence ids in order.
func (a Alignment) IDs() []string {
	ids := make([]string, len(a))
	for i, s := range a {
		ids[i] = s.ID
	}
	return ids
}

// Lookup returns the residues of the sequence with the given id.
func (a Alignment) Lookup(id string) (string, bool) {
	for _, s := range a {
		if s.ID == id {
			return s.Residues, true
		}
	}
	return "", false
}

// Has reports whether a sequence with the given id exists.
func (a Alignment) Has(id string) bool {
	_, ok := a.Lookup(id)
	return ok
}

// Map returns the alignment as an id → residues mapping.
func (a Alignment) Map() map[string]string {
	m := make(map[string]string, len(a))
	for _, s := range a {
		m[s.ID] = s.Residues
	}
	return m
}

// Equal reports whether a and b hold the same sequences in the same order.
func (a Alignment) Equal(b Alignment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of a that shares no backing array.
func (a Alignment) Clone() Alignment {
	if a == nil {
		return nil
	}
	out := make(Alignment, len(a))
	copy(out, a)
	return out
}

// Parse reads a FASTA alignment from r.
//
// Header lines start with '>'; the rest of the line, trimmed, is the id.
// Residue lines are concatenated with surrounding whitespace removed.
// Blank lines are ignored, and so is a ';' comment line. An empty input
// yields an empty alignment.
func Parse(r io.Reader) (Alignment, error) {
	var (
		aln     Alignment
		seen    = make(map[string]bool)
		current *strings.Builder
		lineNo  int
	)

	flush := func() {
		if current != nil {
			aln[len(aln)-1].Residues = current.String()
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "", strings.HasPrefix(line, ";"):
			continue
		case strings.HasPrefix(line, ">"):
			flush()
			id := strings.TrimSpace(line[1:])
			if id == "" {
				return nil, fmt.Errorf("line %d: %w", lineNo, ErrEmptyID)
			}
			if seen[id] {
				return nil, fmt.Errorf("line %d: %w: %s", lineNo, ErrDuplicateID, id)
			}
			seen[id] = true
			aln = append(aln, Sequence{ID: id})
			current = &strings.Builder{}
		default:
			if current == nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, ErrNoHeader)
			}
			current.WriteString(strings.Join(strings.Fields(line), ""))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read alignment: %w", err)
	}
	flush()
	return aln, nil
}

// ParseString is a convenience wrapper around [Parse].
func ParseString(s string) (Alignment, error) {
	return Parse(strings.NewReader(s))
}

// Render writes a in FASTA format, one header line and one residue line per
// sequence.
func Render(w io.Writer, a Alignment) error {
	bw := bufio.NewWriter(w)
	for _, s := range a {
		if _, err := fmt.Fprintf(bw, ">%s\n%s\n", s.ID, s.Residues); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// String returns a rendered as FASTA text.
func (a Alignment) String() string {
	var buf bytes.Buffer
	_ = Render(&buf, a)
	return buf.String()
}
