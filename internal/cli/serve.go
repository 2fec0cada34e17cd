package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/vase/pkg/assemble"
	"github.com/matzehuels/vase/pkg/buildinfo"
	"github.com/matzehuels/vase/pkg/cache"
	"github.com/matzehuels/vase/pkg/config"
	"github.com/matzehuels/vase/pkg/job"
	"github.com/matzehuels/vase/pkg/observability"
	"github.com/matzehuels/vase/pkg/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr        string
		xmlOnly     bool
		sourcesDir  string
		printConfig bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored documents over HTTP",
		Long: `Serve stored documents over HTTP, run the job queue that recomputes them
from source files, and expose Prometheus metrics at /metrics.

Recomputation needs a sources directory holding <id>[_<chain>].fasta,
.pdb, .csv and optionally .toml files. In xml-only mode the server is a
read-only viewer of stored documents.`,
		Example: `  vase serve --config vase.toml
  VASE_CACHE_DRIVER=redis VASE_REDIS_ADDR=localhost:6379 vase serve --xml-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if xmlOnly {
				cfg.Server.XMLOnly = true
			}
			if sourcesDir != "" {
				cfg.Sources.Dir = sourcesDir
			}
			if printConfig {
				fmt.Fprint(cmd.OutOrStdout(), cfg.String())
				return nil
			}
			return serve(cmd, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	flags.BoolVar(&xmlOnly, "xml-only", false, "serve stored documents read-only")
	flags.StringVar(&sourcesDir, "sources", "", "directory of source files for recomputation")
	flags.BoolVar(&printConfig, "print-config", false, "print the effective configuration and exit")

	return cmd
}

func serve(cmd *cobra.Command, cfg config.Config) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	hooks := observability.NewPrometheusHooks(reg)
	observability.SetCodecHooks(hooks)
	observability.SetCacheHooks(hooks)
	observability.SetJobHooks(hooks)
	defer observability.Reset()

	st, closer, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	queue := job.NewQueue(st, job.Options{
		Workers:   cfg.Jobs.Threads,
		Retention: cfg.Jobs.Retention.Duration,
		Logger:    logger,
	})

	var producers server.ProducerFactory
	if cfg.Sources.Dir != "" && !cfg.Server.XMLOnly {
		producers = func(structureID, chain string) job.Producer {
			return assemble.DirProducer{Dir: cfg.Sources.Dir, StructureID: structureID, Chain: chain}
		}
	}

	srv := server.New(st, queue, server.Options{
		Keyer:        cache.NewKeyer(cfg),
		Producers:    producers,
		XMLOnly:      cfg.Server.XMLOnly,
		MaxBodyBytes: cfg.Limits.MaxDocumentBytes,
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:       logger,
	})

	logger.Info("starting server",
		"version", buildinfo.Version,
		"addr", cfg.Server.Addr,
		"cache", cfg.Cache.Driver,
		"workers", cfg.Jobs.Threads,
		"sources", cfg.Sources.Dir)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return queue.Run(ctx) })
	g.Go(func() error { return srv.ListenAndServe(ctx, cfg.Server.Addr) })
	return g.Wait()
}
