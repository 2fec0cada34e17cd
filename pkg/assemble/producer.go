package assemble

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/vase/pkg/document"
	"github.com/matzehuels/vase/pkg/errors"
)

// DirProducer builds the document for one structure and chain from a
// directory of source files named after the structure:
//
//	<dir>/<id>[_<chain>].fasta
//	<dir>/<id>[_<chain>].pdb
//	<dir>/<id>[_<chain>].csv
//	<dir>/<id>[_<chain>].toml   (optional sidecar)
//
// Ids and chains are lower-cased.
type DirProducer struct {
	Dir         string
	StructureID string
	Chain       string
}

// Sources returns the source file paths for p.
func (p DirProducer) Sources() Sources {
	base := strings.ToLower(p.StructureID)
	if p.Chain != "" {
		base += "_" + strings.ToLower(p.Chain)
	}
	path := func(ext string) string { return filepath.Join(p.Dir, base+ext) }

	src := Sources{
		FASTA: path(".fasta"),
		PDB:   path(".pdb"),
		Table: path(".csv"),
	}
	if _, err := os.Stat(path(".toml")); err == nil {
		src.Sidecar = path(".toml")
	}
	return src
}

// Produce implements job.Producer.
func (p DirProducer) Produce(ctx context.Context) (*document.Document, error) {
	if err := errors.ValidateStructureID(p.StructureID); err != nil {
		return nil, err
	}
	if err := errors.ValidateChainID(p.Chain); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Build(p.Sources())
}
