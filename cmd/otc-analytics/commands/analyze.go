package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"otc-analytics/internal/pipeline"
	"otc-analytics/internal/source"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	analyzeSource   sourceFlags
	analyzeAnalysis analysisFlags
	analyzeOut      string
	analyzeSummary  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a batch and print the per-order table and summary as JSON",
	Example: `  otc-analytics analyze --date 2025-06-19
  otc-analytics analyze -f pedidos.xlsx --branch 1 --window 5 --summary`,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runAnalysis(cmd, &analyzeSource, &analyzeAnalysis)
		if err != nil {
			return err
		}

		var out io.Writer = cmd.OutOrStdout()
		if analyzeOut != "" {
			file, err := os.Create(analyzeOut)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer file.Close()
			out = file
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if analyzeSummary {
			return enc.Encode(res.Summary)
		}
		return enc.Encode(res)
	},
}

// runAnalysis loads the selected batch and runs the pipeline over it.
func runAnalysis(cmd *cobra.Command, src *sourceFlags, an *analysisFlags) (*pipeline.Result, error) {
	opts, err := an.options(cmd)
	if err != nil {
		return nil, err
	}
	loader, err := src.loader(opts.Location)
	if err != nil {
		return nil, err
	}

	res, err := source.NewDataset(loader, opts).Analyze(cmd.Context(), source.Query{})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("run", res.RunID).
		Int("orders", res.Summary.TotalOrders).
		Float64("completion", res.Summary.CompletionPct).
		Msg("Analysis complete")
	return res, nil
}

func init() {
	analyzeSource.register(analyzeCmd)
	analyzeAnalysis.register(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "write JSON to a file instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzeSummary, "summary", false, "print only the grouped summary")
	rootCmd.AddCommand(analyzeCmd)
}
