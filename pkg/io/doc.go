// Package io provides XML import and export for vase documents.
//
// # Overview
//
// A document is persisted as a single XML tree. The shape is fixed by the
// cached documents already in circulation, so element and attribute names
// must not change:
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<xml>
//	  <fasta><![CDATA[>1crn_A
//	TTCCPSIVARSNFNVCRLPGTPEA...
//	]]></fasta>
//	  <pdb><![CDATA[ATOM      1  N   THR A   1 ...]]></pdb>
//	  <data_table>
//	    <column id="residue_number" hidden="false" mouseover="false"></column>
//	    <column id="pdb_residue" title="PDB residue" hidden="false" mouseover="false"></column>
//	    <column id="conservation" hidden="false" mouseover="true"></column>
//	    <row>
//	      <value>1</value>
//	      <value>A10</value>
//	      <value>0.5</value>
//	    </row>
//	  </data_table>
//	  <plots>
//	    <plot title="Cons vs Pos">
//	      <x>residue_number</x>
//	      <y>conservation</y>
//	    </plot>
//	  </plots>
//	  <sequence-url id="P01542">https://www.uniprot.org/uniprot/P01542</sequence-url>
//	</xml>
//
// Rows are positional: the n-th value belongs to the n-th column. The plots
// element is only written when the document has plots. The reader also
// accepts alignment and structure as names for the fasta and pdb elements.
//
// # Export
//
// Use [WriteXML] to write to any io.Writer, [Marshal] for a byte slice, or
// [ExportXML] for a file. Files ending in ".gz" are gzip-compressed.
//
//	if err := io.ExportXML(doc, "1crn_a.xml.gz"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Import
//
// Use [ReadXML], [Unmarshal] or [ImportXML]. Every read validates the
// whole document and either returns a complete [document.Document] or a
// coded error from pkg/errors naming the offending construct:
//
//	doc, err := io.ImportXML("1crn_a.xml.gz")
//	if errors.Is(err, errors.ErrCodeTypeMismatch) {
//	    fmt.Println("plot axis is not numeric:", errors.GetSubject(err))
//	}
//
// Input is bounded by [DefaultMaxBytes]; use a [Reader] with MaxBytes set
// to change the bound.
//
// # Concurrency
//
// The codec keeps no state between calls. Each read returns an independent
// document, so concurrent reads of the same bytes are safe. Serializing
// concurrently to the same destination is the caller's problem; pkg/job
// runs at most one writer per document key.
package io
