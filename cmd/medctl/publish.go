package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medir/amharic-medsearch/internal/document/source"
	"github.com/medir/amharic-medsearch/internal/ingest"
	"github.com/medir/amharic-medsearch/pkg/kafka"
)

func publishCmd(opts *options) *cobra.Command {
	var (
		batchSize int
		persist   bool
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the configured document source to the ingest topic",
		Long: `Loads documents from the configured source (--csv, --source) and
publishes them to the Kafka ingest topic, where running searchers index them.
With --persist and a postgres source config, documents are also written to
the medicines table first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			src, closeSource, err := source.FromConfig(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeSource()
			docs, err := src.Load(ctx)
			if err != nil {
				return fmt.Errorf("loading documents: %w", err)
			}

			var persister ingest.Persister
			if persist {
				pg, ok := src.(*source.PostgresSource)
				if !ok {
					return fmt.Errorf("--persist needs a postgres source, got %q", cfg.Source.Kind)
				}
				persister = pg
			}

			producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.IngestTopic)
			defer producer.Close()
			origin := cfg.Source.Kind
			if cfg.Source.CSVPath != "" {
				origin = cfg.Source.CSVPath
			}
			report, err := ingest.NewPublisher(producer, persister, batchSize).Publish(ctx, origin, docs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d documents in %d events to %s\n",
				report.Documents, report.Events, cfg.Kafka.IngestTopic)
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", ingest.DefaultBatchSize, "documents per Kafka message")
	cmd.Flags().BoolVar(&persist, "persist", false, "save documents to PostgreSQL before publishing")
	return cmd
}
