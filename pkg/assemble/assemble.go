// Package assemble builds documents from local source files: a FASTA
// alignment, a structure file and a CSV table of per-residue annotations.
//
// The CSV header row holds the column ids. Column titles and presentation
// flags, and optionally plots, come from a TOML sidecar:
//
//	[columns.conservation]
//	title = "Conservation"
//	mouseover = true
//
//	[columns.residue_number]
//	hidden = true
//
//	[[plots]]
//	title = "Cons vs Pos"
//	x = "residue_number"
//	y = "conservation"
//
//	[sequence_urls]
//	P01542 = "https://www.uniprot.org/uniprot/P01542"
package assemble

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/vase/pkg/alignment"
	"github.com/matzehuels/vase/pkg/document"
	"github.com/matzehuels/vase/pkg/errors"
)

// ColumnMeta holds the presentation attributes of one column.
type ColumnMeta struct {
	Title     string `toml:"title"`
	Hidden    bool   `toml:"hidden"`
	MouseOver bool   `toml:"mouseover"`
}

// Sidecar is the optional TOML file accompanying a CSV table.
type Sidecar struct {
	Columns      map[string]ColumnMeta `toml:"columns"`
	Plots        []document.Plot       `toml:"plots"`
	SequenceURLs map[string]string     `toml:"sequence_urls"`
}

// Sources names the inputs of [Build]. FASTA, PDB and Table are required.
type Sources struct {
	FASTA   string
	PDB     string
	Table   string
	Sidecar string // optional

	// Plots and SequenceURLs are added after those from the sidecar.
	Plots        []document.Plot
	SequenceURLs map[string]*url.URL
}

// Build reads the source files and assembles a validated document.
func Build(src Sources) (*document.Document, error) {
	f, err := openSource(src.FASTA)
	if err != nil {
		return nil, err
	}
	aln, err := alignment.Parse(f)
	f.Close()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", src.FASTA).WithSubject(src.FASTA)
	}

	structure, err := os.ReadFile(src.PDB)
	if err != nil {
		return nil, sourceError(src.PDB, err)
	}

	var side Sidecar
	if src.Sidecar != "" {
		if side, err = ReadSidecar(src.Sidecar); err != nil {
			return nil, err
		}
	}

	f, err = openSource(src.Table)
	if err != nil {
		return nil, err
	}
	table, err := ReadTable(f, side.Columns)
	f.Close()
	if err != nil {
		return nil, err
	}

	doc, err := document.New(aln, string(structure), table)
	if err != nil {
		return nil, err
	}

	for _, p := range append(side.Plots, src.Plots...) {
		if err := doc.AddPlot(p); err != nil {
			return nil, err
		}
	}
	for _, id := range slices.Sorted(maps.Keys(side.SequenceURLs)) {
		u, err := parseURL(id, side.SequenceURLs[id])
		if err != nil {
			return nil, err
		}
		if err := doc.SetSequenceURL(id, u); err != nil {
			return nil, err
		}
	}
	for _, id := range slices.Sorted(maps.Keys(src.SequenceURLs)) {
		if err := doc.SetSequenceURL(id, src.SequenceURLs[id]); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// ReadTable reads a CSV table. The first record holds the column ids,
// every further record one row. meta may be nil.
func ReadTable(r io.Reader, meta map[string]ColumnMeta) (*document.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // arity is checked by the table
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeInvalidInput, "table has no header row")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read table header")
	}

	columns := make([]document.ColumnInfo, len(header))
	for i, id := range header {
		id = strings.TrimSpace(id)
		m := meta[id]
		columns[i] = document.ColumnInfo{ID: id, Title: m.Title, Hidden: m.Hidden, MouseOver: m.MouseOver}
	}
	for id := range meta {
		if !containsColumn(columns, id) {
			return nil, errors.New(errors.ErrCodeDanglingReference, "sidecar describes unknown column %q", id).WithSubject(id)
		}
	}

	table, err := document.NewTable(columns)
	if err != nil {
		return nil, err
	}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read table")
		}
		if err := table.AddRow(record); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func containsColumn(columns []document.ColumnInfo, id string) bool {
	for _, c := range columns {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ReadSidecar decodes the TOML sidecar at path.
func ReadSidecar(path string) (Sidecar, error) {
	var side Sidecar
	md, err := toml.DecodeFile(path, &side)
	if err != nil {
		if os.IsNotExist(err) {
			return Sidecar{}, sourceError(path, err)
		}
		return Sidecar{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path).WithSubject(path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Sidecar{}, errors.New(errors.ErrCodeInvalidInput, "unknown key %s in %s", undecoded[0], path).
			WithSubject(undecoded[0].String())
	}
	return side, nil
}

// ParsePlot parses a plot given as "Title:x:y". The title may itself
// contain colons; the last two fields are the axes.
func ParsePlot(spec string) (document.Plot, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 3 {
		return document.Plot{}, errors.New(errors.ErrCodeInvalidInput, "plot %q is not of the form Title:x:y", spec).WithSubject(spec)
	}
	n := len(parts)
	return document.Plot{
		Title: strings.Join(parts[:n-2], ":"),
		X:     strings.TrimSpace(parts[n-2]),
		Y:     strings.TrimSpace(parts[n-1]),
	}, nil
}

// ParseSequenceURL parses a sequence reference given as "id=URL".
func ParseSequenceURL(spec string) (string, *url.URL, error) {
	id, raw, ok := strings.Cut(spec, "=")
	if !ok || strings.TrimSpace(id) == "" {
		return "", nil, errors.New(errors.ErrCodeInvalidInput, "sequence url %q is not of the form id=URL", spec).WithSubject(spec)
	}
	id = strings.TrimSpace(id)
	u, err := parseURL(id, raw)
	return id, u, err
}

func parseURL(id, raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedURL, err, "sequence url for %q", id).WithSubject(id)
	}
	if u.Scheme == "" {
		return nil, errors.New(errors.ErrCodeMalformedURL, "sequence url for %q has no scheme", id).WithSubject(id)
	}
	return u, nil
}

func openSource(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, sourceError(path, err)
	}
	return f, nil
}

func sourceError(path string, err error) error {
	if os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "source file %s not found", path).WithSubject(path)
	}
	return fmt.Errorf("read %s: %w", path, err)
}
