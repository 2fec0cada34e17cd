package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/vase/pkg/assemble"
	"github.com/matzehuels/vase/pkg/cache"
	"github.com/matzehuels/vase/pkg/errors"
	vaseio "github.com/matzehuels/vase/pkg/io"
)

// encodeCommand creates the encode command.
func (c *CLI) encodeCommand() *cobra.Command {
	var (
		src     assemble.Sources
		plots   []string
		seqURLs []string
		output  string
		save    string
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Build a document from alignment, structure and table files",
		Long: `Build a document from a FASTA alignment, a structure file and a CSV table.

The first CSV row holds the column ids. Column titles and the hidden and
mouseover flags, plots and sequence URLs can come from a TOML sidecar.
The table must contain a "residue_number" column and a column whose id
ends in "pdb_residue".`,
		Example: `  # Write a compressed document
  vase encode --fasta 1crn.fasta --pdb 1crn.pdb --table 1crn.csv -o 1crn_a.xml.gz

  # Add a plot and a sequence reference, then store it in the cache
  vase encode --fasta 1crn.fasta --pdb 1crn.pdb --table 1crn.csv \
      --plot "Cons vs Pos:residue_number:conservation" \
      --seq-url P01542=https://www.uniprot.org/uniprot/P01542 \
      --save 1crn/A`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			for _, p := range plots {
				plot, err := assemble.ParsePlot(p)
				if err != nil {
					return err
				}
				src.Plots = append(src.Plots, plot)
			}
			for _, s := range seqURLs {
				id, u, err := assemble.ParseSequenceURL(s)
				if err != nil {
					return err
				}
				if src.SequenceURLs == nil {
					src.SequenceURLs = make(map[string]*url.URL)
				}
				src.SequenceURLs[id] = u
			}

			prog := newProgress(logger)
			doc, err := assemble.Build(src)
			if err != nil {
				return err
			}
			logger.Debug("assembled document", "fasta", src.FASTA, "pdb", src.PDB, "table", src.Table)

			if save != "" {
				id, chain, err := parseRef(save)
				if err != nil {
					return err
				}
				cfg, err := c.loadConfig()
				if err != nil {
					return err
				}
				st, closer, err := openStore(ctx, cfg, logger)
				if err != nil {
					return err
				}
				defer closer.Close()

				key := cache.NewKeyer(cfg).DocumentKey(id, chain)
				if err := st.Save(ctx, key, doc); err != nil {
					return fmt.Errorf("save %s: %w", key, err)
				}
				printSuccess("Stored %s", key)
			}

			switch {
			case output == "" && save == "":
				return vaseio.WriteXML(doc, cmd.OutOrStdout())
			case output != "":
				if err := vaseio.ExportXML(doc, output); err != nil {
					return err
				}
				prog.done("Encoded "+output, "rows", doc.Table().NumRows())
				printSuccess("Encoded document")
				printDocStats(doc)
				printFile(output)
				printNextStep("Validate it", "vase validate "+output)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&src.FASTA, "fasta", "", "FASTA alignment file")
	flags.StringVar(&src.PDB, "pdb", "", "structure file")
	flags.StringVar(&src.Table, "table", "", "CSV table of per-residue data")
	flags.StringVar(&src.Sidecar, "columns", "", "TOML sidecar with column metadata, plots and sequence urls")
	flags.StringArrayVar(&plots, "plot", nil, `plot as "Title:x:y" (repeatable)`)
	flags.StringArrayVar(&seqURLs, "seq-url", nil, "sequence reference as id=URL (repeatable)")
	flags.StringVarP(&output, "output", "o", "", "output file; .gz compresses (default stdout)")
	flags.StringVar(&save, "save", "", "also store the document as ID[/CHAIN]")
	_ = cmd.MarkFlagRequired("fasta")
	_ = cmd.MarkFlagRequired("pdb")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

// parseRef splits a document reference of the form ID[/CHAIN] and
// validates both parts.
func parseRef(ref string) (id, chain string, err error) {
	id, chain, _ = strings.Cut(ref, "/")
	if err := errors.ValidateStructureID(id); err != nil {
		return "", "", err
	}
	if err := errors.ValidateChainID(chain); err != nil {
		return "", "", err
	}
	return id, chain, nil
}
