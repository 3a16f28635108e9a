package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func searchCmd(opts *options) *cobra.Command {
	var (
		limit   int
		asJSON  bool
		snippet int
	)
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Rank documents for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			_, exec, err := buildEngine(ctx, cfg)
			if err != nil {
				return err
			}
			res, err := exec.Search(ctx, strings.Join(args, " "), limit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			if len(res.Results) == 0 {
				fmt.Fprintln(out, "No results found.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tID\tSCORE\tTITLE\tCONTENT")
			for _, h := range res.Results {
				fmt.Fprintf(tw, "%d\t%s\t%.4f\t%s\t%s\n", h.Rank, h.ID, h.Score, h.Title, truncate(h.Content, snippet))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d of %d matching documents\n", len(res.Results), res.TotalHits)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	cmd.Flags().IntVar(&snippet, "snippet", 60, "characters of content to show")
	return cmd
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
