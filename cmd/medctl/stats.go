package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/medir/amharic-medsearch/internal/document"
)

func statsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print collection and index statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			engine, _, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			docs := engine.Documents()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"document_stats":        document.Statistics(docs),
				"index_stats":           engine.IndexStatistics(),
				"category_distribution": document.CategoryDistribution(docs),
			})
		},
	}
}
