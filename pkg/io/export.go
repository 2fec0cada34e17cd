package io

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/matzehuels/vase/pkg/document"
	"github.com/matzehuels/vase/pkg/observability"
)

type xmlDocument struct {
	XMLName xml.Name    `xml:"xml"`
	Fasta   cdata       `xml:"fasta"`
	PDB     cdata       `xml:"pdb"`
	Table   xmlTable    `xml:"data_table"`
	Plots   *xmlPlots   `xml:"plots,omitempty"`
	SeqURLs []xmlSeqURL `xml:"sequence-url"`
}

type cdata struct {
	Text string `xml:",cdata"`
}

type xmlTable struct {
	Columns []xmlColumn `xml:"column"`
	Rows    []xmlRow    `xml:"row"`
}

type xmlColumn struct {
	ID        string `xml:"id,attr"`
	Title     string `xml:"title,attr,omitempty"`
	Hidden    bool   `xml:"hidden,attr"`
	MouseOver bool   `xml:"mouseover,attr"`
}

type xmlRow struct {
	Values []string `xml:"value"`
}

type xmlPlots struct {
	Plots []xmlPlot `xml:"plot"`
}

type xmlPlot struct {
	Title string `xml:"title,attr"`
	X     string `xml:"x"`
	Y     string `xml:"y"`
}

type xmlSeqURL struct {
	ID  string `xml:"id,attr"`
	URL string `xml:",chardata"`
}

func toXML(doc *document.Document) xmlDocument {
	out := xmlDocument{
		Fasta: cdata{doc.Alignment().String()},
		PDB:   cdata{doc.Structure()},
	}

	t := doc.Table()
	for _, c := range t.Columns() {
		out.Table.Columns = append(out.Table.Columns, xmlColumn(c))
	}
	out.Table.Rows = make([]xmlRow, t.NumRows())
	for i := range out.Table.Rows {
		out.Table.Rows[i] = xmlRow{Values: t.Values(i)}
	}

	if plots := doc.Plots(); len(plots) > 0 {
		out.Plots = &xmlPlots{Plots: make([]xmlPlot, len(plots))}
		for i, p := range plots {
			out.Plots.Plots[i] = xmlPlot(p)
		}
	}

	for _, id := range doc.SequenceURLIDs() {
		u, _ := doc.SequenceURL(id)
		out.SeqURLs = append(out.SeqURLs, xmlSeqURL{ID: id, URL: u.String()})
	}
	return out
}

// WriteXML encodes doc and writes it to w.
//
// The alignment and structure text are written as CDATA sections, so they
// survive markup characters unchanged. Columns and row values are written in
// column order, plots in declaration order and sequence URLs in alignment
// order. The plots element is left out when the document has no plots.
//
// A document built through package document always encodes; the only
// errors WriteXML returns come from w. WriteXML does not close w.
func WriteXML(doc *document.Document, w io.Writer) (err error) {
	start := time.Now()
	defer func() { observability.Codec().OnEncode(time.Since(start), err) }()

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(toXML(doc)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Marshal returns the encoding of doc.
func Marshal(doc *document.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteXML(doc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportXML writes doc to the file at path. A path ending in ".gz" is
// written gzip-compressed.
func ExportXML(doc *document.Document, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if !isGzip(path) {
		return WriteXML(doc, f)
	}
	zw := gzip.NewWriter(f)
	if err := WriteXML(doc, zw); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress %s: %w", path, err)
	}
	return nil
}

func isGzip(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}
