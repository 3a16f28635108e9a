// Command medctl searches, evaluates and feeds the medicine index from the
// command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/medir/amharic-medsearch/internal/document/source"
	"github.com/medir/amharic-medsearch/internal/indexer"
	"github.com/medir/amharic-medsearch/internal/searcher/executor"
	"github.com/medir/amharic-medsearch/internal/searcher/ranker"
	"github.com/medir/amharic-medsearch/pkg/config"
	"github.com/medir/amharic-medsearch/pkg/logger"
)

type options struct {
	configPath string
	sourceKind string
	csvPath    string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "medctl",
		Short:        "Amharic medicine search tools",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&opts.sourceKind, "source", "", "document source: sample, csv or postgres")
	root.PersistentFlags().StringVar(&opts.csvPath, "csv", "", "CSV file (implies --source csv)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at the configured level instead of warn")

	root.AddCommand(
		searchCmd(opts),
		evaluateCmd(opts),
		statsCmd(opts),
		publishCmd(opts),
	)
	return root
}

// load reads the config, applies flag overrides and sends logs to stderr so
// command output stays machine-readable.
func (o *options) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.csvPath != "" {
		cfg.Source.Kind = config.SourceCSV
		cfg.Source.CSVPath = o.csvPath
	} else if o.sourceKind != "" {
		cfg.Source.Kind = o.sourceKind
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level := "warn"
	if o.verbose {
		level = cfg.Logging.Level
	}
	logger.SetupWriter(cmd.ErrOrStderr(), level, "text")
	return cfg, nil
}

// buildEngine loads the configured source and indexes it.
func buildEngine(ctx context.Context, cfg *config.Config) (*indexer.Engine, *executor.Executor, error) {
	src, closeSource, err := source.FromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	defer closeSource()
	docs, err := src.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading documents: %w", err)
	}
	engine := indexer.NewEngine()
	if _, err := engine.Initialize(ctx, docs); err != nil {
		return nil, nil, err
	}
	weights, _ := ranker.FieldWeights(cfg.Search.FieldWeights)
	exec := executor.New(engine,
		executor.WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxResults),
		executor.WithBM25(cfg.Search.K1, cfg.Search.B),
		executor.WithFieldWeights(weights),
	)
	return engine, exec, nil
}
