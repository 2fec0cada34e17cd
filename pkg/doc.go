// Package pkg provides the libraries behind vase, a store for composite
// alignment/structure documents.
//
// # Overview
//
// A vase document bundles a multiple sequence alignment, the raw text of a
// protein structure file, a per-residue data table, plot declarations over
// numeric table columns, and external references for individual sequences.
// The pkg directory is organized into three areas:
//
//  1. Model: [document], [alignment] and [errors]
//  2. Codec and storage: [io], [cache], [store] and [config]
//  3. Services: [job], [server], [assemble] and [observability]
//
// # Architecture
//
// The typical data flow:
//
//	FASTA + structure + CSV (+ TOML sidecar)
//	         ↓
//	    [assemble] (build and validate a document)
//	         ↓
//	    [io] (serialize to XML)
//	         ↓
//	    [store] over [cache] (file, memory, Redis, MongoDB, S3, SQLite, Postgres)
//	         ↓
//	    [server] (validate on every read, JSON view, raw XML, structure)
//
// Recomputation runs through [job], which admits one active job per
// document key and stores the result through [store].
//
// # Quick Start
//
//	doc, err := assemble.Build(assemble.Sources{
//	    FASTA: "1crn.fasta",
//	    PDB:   "1crn.pdb",
//	    Table: "1crn.csv",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := io.ExportXML(doc, "1crn_a.xml.gz"); err != nil {
//	    log.Fatal(err)
//	}
//
// Reading validates the whole document and reports the first violation as
// a coded error:
//
//	doc, err := io.ImportXML("1crn_a.xml.gz")
//	if errors.IsFormatError(err) {
//	    fmt.Println(errors.GetCode(err), errors.GetSubject(err))
//	}
//
// [document]: https://pkg.go.dev/github.com/matzehuels/vase/pkg/document
// [alignment]: https://pkg.go.dev/github.com/matzehuels/vase/pkg/alignment
// [errors]: https://pkg.go.dev/github.com/matzehuels/vase/pkg/errors
// [io]: https://pkg.go.dev/github.com/matzehuels/vase/pkg/io
// [cache]: https://pkg.go.dev/github.com/matzehuels/vase/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/vase/pkg/store
// [config]: https://pkg.go.dev/github.com/matzehuels/vase/pkg/config
// [job]: https://pkg.go.dev/github.com/matzehuels/vase/pkg/job
// [server]: https://pkg.go.dev/github.com/matzehuels/vase/pkg/server
// [assemble]: https://pkg.go.dev/github.com/matzehuels/vase/pkg/assemble
// [observability]: https://pkg.go.dev/github.com/matzehuels/vase/pkg/observability
package pkg
