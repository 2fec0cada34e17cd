package io

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/matzehuels/vase/pkg/alignment"
	"github.com/matzehuels/vase/pkg/document"
	"github.com/matzehuels/vase/pkg/errors"
	"github.com/matzehuels/vase/pkg/observability"
)

// DefaultMaxBytes bounds the size of a document accepted by [ReadXML].
const DefaultMaxBytes int64 = 256 << 20

// Reader decodes documents with a configurable input bound.
// The zero value is ready to use.
type Reader struct {
	// MaxBytes is the largest accepted input. Zero means DefaultMaxBytes,
	// a negative value disables the bound.
	MaxBytes int64
}

func (rd Reader) maxBytes() int64 {
	switch {
	case rd.MaxBytes == 0:
		return DefaultMaxBytes
	case rd.MaxBytes < 0:
		return 0
	}
	return rd.MaxBytes
}

// ReadXML decodes and validates a document from r using the default bound.
func ReadXML(r io.Reader) (*document.Document, error) {
	return Reader{}.Read(r)
}

// Unmarshal decodes and validates a document from b.
func Unmarshal(b []byte) (*document.Document, error) {
	return ReadXML(bytes.NewReader(b))
}

// ImportXML reads the document file at path. A path ending in ".gz" is
// decompressed first.
func ImportXML(path string) (*document.Document, error) {
	return Reader{}.Import(path)
}

// Read decodes and validates a document from r.
//
// The checks run in a fixed order and the first violation aborts the call:
//
//  1. r must hold one well-formed XML element tree (MALFORMED_STREAM).
//  2. The fasta and pdb elements must be present; their content may be
//     empty (MISSING_BLOCK).
//  3. The fasta text must parse as FASTA (MALFORMED_STREAM).
//  4. The data_table element must be present (MISSING_BLOCK). Every column
//     needs an id (MISSING_ATTRIBUTE), the required columns must be declared
//     (MISSING_REQUIRED_COLUMN), ids must be unique (DUPLICATE_ID) and every
//     row must hold one value per column (STRUCTURAL_MISMATCH).
//  5. The document is assembled.
//  6. Every sequence-url needs an id (MISSING_ATTRIBUTE) naming an aligned
//     sequence (DANGLING_REFERENCE) and an absolute URL (MALFORMED_URL).
//  7. Every plot needs a title and x and y elements (MISSING_ATTRIBUTE)
//     naming existing (DANGLING_REFERENCE) numeric (TYPE_MISMATCH) columns.
//
// Errors from these checks are *errors.Error values whose Subject names the
// offending element, attribute or id. Errors reading r are returned wrapped
// but otherwise unchanged. Read never returns a partial document and does
// not close r.
func (rd Reader) Read(r io.Reader) (doc *document.Document, err error) {
	start := time.Now()
	defer func() { observability.Codec().OnDecode(time.Since(start), err) }()

	limit := rd.maxBytes()
	br := newBoundedReader(r, limit)
	root, err := parseTree(br)
	switch {
	case br.tooLarge:
		return nil, errors.New(errors.ErrCodeMalformedStream, "document exceeds %d bytes", limit)
	case br.err != nil:
		return nil, fmt.Errorf("read: %w", br.err)
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeMalformedStream, err, "document is not well-formed XML")
	}
	return decode(root)
}

// Import reads the document file at path. A path ending in ".gz" is
// decompressed first.
func (rd Reader) Import(path string) (*document.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "no document at %s", path).WithSubject(path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if !isGzip(path) {
		return rd.Read(f)
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedStream, err, "%s is not gzip-compressed", path)
	}
	defer zr.Close()
	return rd.Read(zr)
}

func decode(root *element) (*document.Document, error) {
	fastaEl := root.child("fasta", "alignment")
	if fastaEl == nil {
		return nil, errors.New(errors.ErrCodeMissingBlock, "document has no fasta element").WithSubject("fasta")
	}
	pdbEl := root.child("pdb", "structure")
	if pdbEl == nil {
		return nil, errors.New(errors.ErrCodeMissingBlock, "document has no pdb element").WithSubject("pdb")
	}

	aln, err := alignment.ParseString(fastaEl.text.String())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedStream, err, "invalid alignment").WithSubject(fastaEl.name)
	}

	tableEl := root.child("data_table")
	if tableEl == nil {
		return nil, errors.New(errors.ErrCodeMissingBlock, "document has no data_table element").WithSubject("data_table")
	}
	table, err := decodeTable(tableEl)
	if err != nil {
		return nil, err
	}

	doc, err := document.New(aln, pdbEl.text.String(), table)
	if err != nil {
		return nil, err
	}

	for _, el := range root.childrenNamed("sequence-url") {
		if err := decodeSequenceURL(doc, aln, el); err != nil {
			return nil, err
		}
	}

	for _, plots := range root.childrenNamed("plots") {
		for i, el := range plots.childrenNamed("plot") {
			if err := decodePlot(doc, i, el); err != nil {
				return nil, err
			}
		}
	}
	return doc, nil
}

func decodeTable(el *element) (*document.Table, error) {
	colEls := el.childrenNamed("column")
	columns := make([]document.ColumnInfo, 0, len(colEls))
	for i, c := range colEls {
		id, ok := c.attr("id")
		if !ok {
			return nil, errors.New(errors.ErrCodeMissingAttribute, "column %d has no id attribute", i).WithSubject("id")
		}
		title, _ := c.attr("title")
		columns = append(columns, document.ColumnInfo{
			ID:        id,
			Title:     title,
			Hidden:    boolAttr(c, "hidden"),
			MouseOver: boolAttr(c, "mouseover"),
		})
	}

	if err := document.CheckRequiredColumns(columns); err != nil {
		return nil, err
	}
	table, err := document.NewTable(columns)
	if err != nil {
		return nil, err
	}

	for _, row := range el.childrenNamed("row") {
		valueEls := row.childrenNamed("value")
		values := make([]string, len(valueEls))
		for i, v := range valueEls {
			values[i] = v.text.String()
		}
		if err := table.AddRow(values); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// boolAttr reports whether the attribute is "true" in any letter case.
// Absent or other values read as false.
func boolAttr(el *element, name string) bool {
	v, _ := el.attr(name)
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

func decodeSequenceURL(doc *document.Document, aln alignment.Alignment, el *element) error {
	id, ok := el.attr("id")
	if !ok {
		return errors.New(errors.ErrCodeMissingAttribute, "sequence-url has no id attribute").WithSubject("id")
	}
	if !aln.Has(id) {
		return errors.New(errors.ErrCodeDanglingReference, "sequence-url references unknown sequence %q", id).WithSubject(id)
	}

	raw := strings.TrimSpace(el.text.String())
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(errors.ErrCodeMalformedURL, err, "sequence-url for %q is not a valid URL", id).WithSubject(id)
	}
	if u.Scheme == "" {
		return errors.New(errors.ErrCodeMalformedURL, "sequence-url for %q is not absolute: %q", id, raw).WithSubject(id)
	}
	return doc.SetSequenceURL(id, u)
}

func decodePlot(doc *document.Document, i int, el *element) error {
	title, ok := el.attr("title")
	if !ok {
		return errors.New(errors.ErrCodeMissingAttribute, "plot %d has no title attribute", i).WithSubject("title")
	}
	x := el.child("x")
	if x == nil {
		return errors.New(errors.ErrCodeMissingAttribute, "plot %q has no x axis", title).WithSubject("x")
	}
	y := el.child("y")
	if y == nil {
		return errors.New(errors.ErrCodeMissingAttribute, "plot %q has no y axis", title).WithSubject("y")
	}
	return doc.AddPlot(document.Plot{Title: title, X: x.text.String(), Y: y.text.String()})
}
