// Package document defines the composite document model shown by vase: a
// multiple-sequence alignment, the reference structure file, a per-residue
// annotation table and scatter plots over the table's numeric columns.
//
// # Overview
//
// A [Document] is assembled once by a producer (or by the XML reader in
// pkg/io) and is read-only from then on. Every invariant is enforced when
// the document is built, so a reader never has to defend against an
// inconsistent model:
//
//   - [NewTable] requires unique, non-empty column ids, a "residue_number"
//     column and at least one column whose id ends in "pdb_residue".
//   - [Table.AddRow] requires exactly one value per column, and fails once
//     the table belongs to a document.
//   - All text must be valid UTF-8 made of characters XML can carry; the
//     structure's line ends are rewritten to LF.
//   - [Document.AddPlot] requires a title and two existing numeric columns.
//   - [Document.SetSequenceURL] requires the id to be part of the alignment.
//
// Violations are returned as coded errors from pkg/errors.
//
// # Basic Usage
//
//	table, err := document.NewTable([]document.ColumnInfo{
//	    {ID: "residue_number"},
//	    {ID: "pdb_residue", Title: "PDB residue"},
//	    {ID: "conservation", MouseOver: true},
//	})
//	table.AddRow([]string{"1", "A10", "0.5"})
//	table.AddRow([]string{"2", "A11", "0.9"})
//
//	doc, err := document.New(aln, pdbText, table)
//	err = doc.AddPlot(document.Plot{Title: "Cons vs Pos", X: "residue_number", Y: "conservation"})
//
// # Numeric Columns
//
// Whether a column is numeric is derived from its values: every value must
// parse as a float. The answer is cached per column and only reset when a
// row is appended.
package document
