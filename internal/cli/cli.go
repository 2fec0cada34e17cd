// Package cli implements the vase command-line interface.
//
// The CLI assembles documents from local source files, validates and
// inspects persisted documents, manages the document cache and runs the
// HTTP service. It is built on cobra and logs through charmbracelet/log.
//
// # Commands
//
//   - encode: Build a document from FASTA, structure and CSV files
//   - validate: Check persisted documents and report the first error of each
//   - show: Summarize a document, or print its JSON view
//   - cache: Inspect and manage stored documents
//   - serve: Run the HTTP service with the job queue and /metrics
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger
// travels to commands through context.Context.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/vase/pkg/buildinfo"
	"github.com/matzehuels/vase/pkg/cache"
	"github.com/matzehuels/vase/pkg/config"
	"github.com/matzehuels/vase/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "vase"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	noCache    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Vase bundles alignments, structures and residue data into one document",
		Long:         `Vase builds, validates and serves composite documents holding a sequence alignment, a protein structure and a per-residue data table with plot declarations.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "configuration file (TOML)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the document cache")

	// Register all subcommands
	root.AddCommand(c.encodeCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration and Store
// =============================================================================

// loadConfig reads the file named by --config. File and sqlite caches
// without a location use the user cache directory.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if c.noCache {
		cfg.Cache.Driver = config.DriverNone
	}
	needsDir := (cfg.Cache.Driver == config.DriverFile && cfg.Cache.Dir == "") ||
		(cfg.Cache.Driver == config.DriverSQLite && cfg.SQLite.Path == "")
	if needsDir {
		dir, err := cacheDir()
		if err != nil {
			return config.Config{}, fmt.Errorf("get cache dir: %w", err)
		}
		if cfg.Cache.Driver == config.DriverFile {
			cfg.Cache.Dir = dir
		} else {
			cfg.SQLite.Path = filepath.Join(dir, "documents.db")
		}
	}
	return cfg, nil
}

// openStore opens the configured cache and puts a store in front of it.
// The caller closes the returned cache.
func openStore(ctx context.Context, cfg config.Config, logger *log.Logger) (*store.Store, cache.Cache, error) {
	c, err := cache.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	st := store.New(c, store.Options{
		TTL:              cfg.Cache.TTL.Duration,
		MaxDocumentBytes: cfg.Limits.MaxDocumentBytes,
		Logger:           logger,
	})
	return st, c, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/vase/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
