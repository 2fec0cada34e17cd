package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/vase/pkg/document"
	vaseio "github.com/matzehuels/vase/pkg/io"
	"github.com/matzehuels/vase/pkg/server"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	var maxBytes int64

	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check that documents are complete and consistent",
		Long: `Read each document through the full validation of the XML reader and
report either a summary or the first violation, with its error code and the
offending column, attribute or sequence id.`,
		Example: `  vase validate 1crn_a.xml 4hhb_b.xml.gz`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			r := vaseio.Reader{MaxBytes: maxBytes}

			failed := 0
			for _, path := range args {
				doc, err := r.Import(path)
				if err != nil {
					failed++
					logger.Debug("validation failed", "file", path, "error", err)
					printFormatError(path, err)
					continue
				}
				printSuccess("%s", path)
				printDocStats(doc)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents invalid", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "reject documents larger than this (default 256 MiB, negative disables)")
	return cmd
}

// showCommand creates the show command.
func (c *CLI) showCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Summarize a document",
		Example: `  vase show 1crn_a.xml
  vase show 1crn_a.xml.gz --json | jq '.plots'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := vaseio.ImportXML(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(server.NewDocumentView(doc))
			}
			printDocument(args[0], doc)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the JSON view served by /rest/document")
	return cmd
}

// printDocument prints a human-readable summary of doc.
func printDocument(name string, doc *document.Document) {
	fmt.Fprintln(stdout, StyleTitle.Render(name))
	printDocStats(doc)
	printNewline()

	urls := doc.SequenceURLs()
	for _, s := range doc.Alignment() {
		line := fmt.Sprintf("%d residues", len(s.Residues))
		if u, ok := urls[s.ID]; ok {
			line += "  " + StyleLink.Render(u.String())
		}
		printKeyValue(s.ID, line)
	}
	printNewline()

	tbl := doc.Table()
	for _, col := range tbl.Columns() {
		var flags []string
		if tbl.IsNumber(col.ID) {
			flags = append(flags, "numeric")
		}
		if col.Hidden {
			flags = append(flags, "hidden")
		}
		if col.MouseOver {
			flags = append(flags, "mouseover")
		}
		line := col.DisplayTitle()
		if len(flags) > 0 {
			line += " " + StyleDim.Render("("+strings.Join(flags, ", ")+")")
		}
		printKeyValue(col.ID, line)
	}

	if plots := doc.Plots(); len(plots) > 0 {
		printNewline()
		for _, p := range plots {
			printInfo("%s %s", p.Title, StyleDim.Render(p.X+" "+iconArrow+" "+p.Y))
		}
	}
}

func printNewline() {
	fmt.Fprintln(stdout)
}
