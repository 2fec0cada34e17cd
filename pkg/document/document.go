package document

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/matzehuels/vase/pkg/alignment"
	"github.com/matzehuels/vase/pkg/errors"
)

// Plot is a named 2-D scatter of two numeric table columns.
type Plot struct {
	Title string
	X     string // column id of the x axis
	Y     string // column id of the y axis
}

// Document bundles an alignment, the raw structure file, the per-residue
// table, plot declarations and external sequence references.
//
// A Document is built once, either by a producer or by the XML reader, and
// is read-only afterwards. The mutating methods (AddPlot, SetSequenceURL)
// validate their input against the rest of the document and are meant to
// be called before the document is published.
type Document struct {
	alignment alignment.Alignment
	structure string
	table     *Table
	plots     []Plot
	seqURLs   map[string]*url.URL
}

// New creates a document without plots or sequence references and takes
// ownership of table, which can no longer gain rows.
//
// Line ends in structure are normalized to LF. Text XML cannot carry
// (invalid UTF-8, control characters) fails with INVALID_INPUT, and so does
// a line break inside a sequence id or its residues.
func New(aln alignment.Alignment, structure string, table *Table) (*Document, error) {
	if table == nil {
		return nil, errors.New(errors.ErrCodeMissingBlock, "document requires a data table").WithSubject("data_table")
	}
	for _, seq := range aln {
		if err := checkSequence(seq); err != nil {
			return nil, err
		}
	}
	structure = normalizeNewlines(structure)
	if err := checkText(structure, "structure", "pdb"); err != nil {
		return nil, err
	}

	table.freeze()
	return &Document{
		alignment: aln.Clone(),
		structure: structure,
		table:     table,
		seqURLs:   make(map[string]*url.URL),
	}, nil
}

func checkSequence(seq alignment.Sequence) error {
	if err := checkText(seq.ID, "sequence id", "fasta"); err != nil {
		return err
	}
	if err := checkText(seq.Residues, fmt.Sprintf("residues of sequence %q", seq.ID), seq.ID); err != nil {
		return err
	}
	if strings.ContainsAny(seq.ID, "\r\n") {
		return errors.New(errors.ErrCodeInvalidInput, "sequence id %q spans more than one line", seq.ID).WithSubject("fasta")
	}
	if strings.ContainsAny(seq.Residues, "\r\n") {
		return errors.New(errors.ErrCodeInvalidInput, "residues of sequence %q span more than one line", seq.ID).WithSubject(seq.ID)
	}
	return nil
}

// Alignment returns the aligned sequences.
func (d *Document) Alignment() alignment.Alignment { return d.alignment.Clone() }

// Structure returns the raw structure file contents.
func (d *Document) Structure() string { return d.structure }

// Table returns the per-residue data table. It is frozen: AddRow fails.
func (d *Document) Table() *Table { return d.table }

// Plots returns the plot declarations in order.
func (d *Document) Plots() []Plot { return slices.Clone(d.plots) }

// AddPlot appends a plot after checking that its title is set and that both
// axes name existing numeric columns. The x axis is checked before the y
// axis, and existence before numeric-ness.
func (d *Document) AddPlot(p Plot) error {
	if p.Title == "" {
		return errors.New(errors.ErrCodeMissingAttribute, "every plot must have a title").WithSubject("title")
	}
	if err := checkText(p.Title, "plot title", "title"); err != nil {
		return err
	}
	for _, id := range []string{p.X, p.Y} {
		if _, ok := d.table.Column(id); !ok {
			return errors.New(errors.ErrCodeDanglingReference,
				"there's no column with id %q (specified in plot %q)", id, p.Title).WithSubject(id)
		}
		if !d.table.IsNumber(id) {
			return errors.New(errors.ErrCodeTypeMismatch,
				"column with id %q cannot be used in plot %q, since it's not numerical", id, p.Title).WithSubject(id)
		}
	}
	d.plots = append(d.plots, p)
	return nil
}

// SequenceURL returns the external reference of a sequence.
func (d *Document) SequenceURL(id string) (*url.URL, bool) {
	u, ok := d.seqURLs[id]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

// SequenceURLs returns a copy of the sequence id → URL mapping.
func (d *Document) SequenceURLs() map[string]*url.URL {
	out := make(map[string]*url.URL, len(d.seqURLs))
	for id, u := range d.seqURLs {
		cp := *u
		out[id] = &cp
	}
	return out
}

// SequenceURLIDs returns the ids that have a sequence reference, in
// alignment order.
func (d *Document) SequenceURLIDs() []string {
	var ids []string
	for _, s := range d.alignment {
		if _, ok := d.seqURLs[s.ID]; ok {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// SetSequenceURL records an external reference for the sequence id, which
// must be part of the alignment.
func (d *Document) SetSequenceURL(id string, u *url.URL) error {
	if !d.alignment.Has(id) {
		return errors.New(errors.ErrCodeDanglingReference, "no sequence with id %q in alignment", id).WithSubject(id)
	}
	if u == nil {
		return errors.New(errors.ErrCodeMalformedURL, "no url given for sequence %q", id).WithSubject(id)
	}
	if err := checkText(u.String(), fmt.Sprintf("url of sequence %q", id), id); err != nil {
		return err
	}
	cp := *u
	d.seqURLs[id] = &cp
	return nil
}

// Equal reports whether d and other are observably the same document.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.structure != other.structure ||
		!d.alignment.Equal(other.alignment) ||
		!d.table.Equal(other.table) ||
		!slices.Equal(d.plots, other.plots) ||
		len(d.seqURLs) != len(other.seqURLs) {
		return false
	}
	for id, u := range d.seqURLs {
		v, ok := other.seqURLs[id]
		if !ok || u.String() != v.String() {
			return false
		}
	}
	return true
}
