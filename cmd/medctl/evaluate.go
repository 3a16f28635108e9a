package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/medir/amharic-medsearch/internal/evaluator"
)

func evaluateCmd(opts *options) *cobra.Command {
	var (
		topK          int
		judgmentsPath string
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Measure precision, recall, F1 and MAP",
		Long: `Runs every judgment's query and scores the top K hits. Without
--judgments the judgments are generated from the symptom and category values
of the loaded collection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			engine, exec, err := buildEngine(ctx, cfg)
			if err != nil {
				return err
			}

			var judgments []evaluator.Judgment
			if judgmentsPath != "" {
				f, err := os.Open(judgmentsPath)
				if err != nil {
					return fmt.Errorf("opening judgments: %w", err)
				}
				defer f.Close()
				if judgments, err = evaluator.LoadJudgments(f); err != nil {
					return err
				}
			} else {
				judgments = evaluator.GenerateTestQueries(engine.Documents())
			}

			if topK <= 0 {
				topK = cfg.Evaluation.TopK
			}
			m, err := evaluator.Evaluate(ctx, exec, judgments, evaluator.Options{
				TopK:        topK,
				Concurrency: cfg.Evaluation.Concurrency,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "QUERY\tFIELD\tRELEVANT\tRETRIEVED\tP\tR\tF1\tAP")
			for _, q := range m.PerQuery {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.3f\t%.3f\t%.3f\t%.3f\n",
					q.Query, q.Field, q.Relevant, q.Retrieved, q.Precision, q.Recall, q.F1, q.AveragePrecision)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nqueries=%d top_k=%d precision=%.4f recall=%.4f f1=%.4f map=%.4f\n",
				m.Queries, m.TopK, m.Precision, m.Recall, m.F1, m.MeanAveragePrecision)
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "hits per query to score (default from config)")
	cmd.Flags().StringVar(&judgmentsPath, "judgments", "", "JSON file of judgments")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output metrics as JSON")
	return cmd
}
