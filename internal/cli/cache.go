package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/vase/pkg/cache"
	"github.com/matzehuels/vase/pkg/config"
	"github.com/matzehuels/vase/pkg/errors"
	vaseio "github.com/matzehuels/vase/pkg/io"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage stored documents",
		Long: `Manage the document cache selected by the configuration. Documents are
addressed by structure id and optional chain, e.g. "1crn/A".`,
	}

	cmd.AddCommand(c.cacheGetCommand())
	cmd.AddCommand(c.cachePutCommand())
	cmd.AddCommand(c.cacheDeleteCommand())
	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheGetCommand creates the "cache get" subcommand.
func (c *CLI) cacheGetCommand() *cobra.Command {
	var (
		output string
		raw    bool
	)
	cmd := &cobra.Command{
		Use:   "get ID[/CHAIN]",
		Short: "Print a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, chain, err := parseRef(args[0])
			if err != nil {
				return err
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			st, closer, err := openStore(ctx, cfg, loggerFromContext(ctx))
			if err != nil {
				return err
			}
			defer closer.Close()

			key := cache.NewKeyer(cfg).DocumentKey(id, chain)
			data, err := st.Raw(ctx, key)
			if err != nil {
				return err
			}
			if !raw {
				if _, err := vaseio.Unmarshal(data); err != nil {
					return err
				}
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			printSuccess("Wrote %s", key)
			printFile(output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&raw, "raw", false, "skip validation of the stored bytes")
	return cmd
}

// cachePutCommand creates the "cache put" subcommand.
func (c *CLI) cachePutCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "put ID[/CHAIN] FILE",
		Short:   "Validate a document file and store it",
		Example: `  vase cache put 1crn/A 1crn_a.xml.gz`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, chain, err := parseRef(args[0])
			if err != nil {
				return err
			}
			doc, err := vaseio.ImportXML(args[1])
			if err != nil {
				printFormatError(args[1], err)
				return err
			}

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			spin := newSpinner(ctx, "Storing document...")
			spin.Start()
			st, closer, err := openStore(ctx, cfg, loggerFromContext(ctx))
			if err != nil {
				spin.Stop()
				return err
			}
			defer closer.Close()

			key := cache.NewKeyer(cfg).DocumentKey(id, chain)
			if err := st.Save(ctx, key, doc); err != nil {
				spin.StopWithError("Could not store %s", key)
				return err
			}
			spin.StopWithSuccess("Stored %s", key)
			printDocStats(doc)
			return nil
		},
	}
}

// cacheDeleteCommand creates the "cache delete" subcommand.
func (c *CLI) cacheDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID[/CHAIN]",
		Short: "Remove a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, chain, err := parseRef(args[0])
			if err != nil {
				return err
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			st, closer, err := openStore(ctx, cfg, loggerFromContext(ctx))
			if err != nil {
				return err
			}
			defer closer.Close()

			key := cache.NewKeyer(cfg).DocumentKey(id, chain)
			if err := st.Delete(ctx, key); err != nil {
				return err
			}
			printSuccess("Deleted %s", key)
			return nil
		},
	}
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all documents from the file cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.fileCacheDir()
			if err != nil {
				return err
			}
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}

			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return err
			}
			count, err := fc.Clear()
			if err != nil {
				return err
			}
			printSuccess("Cleared %d cached documents", count)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.fileCacheDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

// fileCacheDir returns the directory of the configured file cache.
func (c *CLI) fileCacheDir() (string, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Cache.Driver != config.DriverFile {
		return "", errors.New(errors.ErrCodeUnsupported, "cache driver %q has no directory", cfg.Cache.Driver).
			WithSubject("cache.driver")
	}
	return cfg.Cache.Dir, nil
}
