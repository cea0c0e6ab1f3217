package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"otc-analytics/internal/normalize"
	"otc-analytics/internal/senior"
	"otc-analytics/internal/snapshot"
	"otc-analytics/internal/source"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	fetchDate string
	fetchDays int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch webservice timelines into the snapshot cache",
	Example: `  otc-analytics fetch --date 2025-06-19
  otc-analytics fetch --days 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if fetchDays < 1 {
			return fmt.Errorf("days must be positive, got %d", fetchDays)
		}
		opts, err := cfg.PipelineOptions()
		if err != nil {
			return err
		}
		end, err := parseDate(fetchDate, opts.Location)
		if err != nil {
			return err
		}

		client := senior.NewClient(cfg.SeniorConfig())
		store := snapshot.NewStore(cfg.CacheDir)
		for i := fetchDays - 1; i >= 0; i-- {
			date := end.AddDate(0, 0, -i)
			rows, err := client.Timeline(cmd.Context(), date)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", date.Format("2006-01-02"), err)
			}

			key := snapshot.Key(source.WebserviceSource, date)
			added := store.Append(key, rows)
			if _, err := store.Save(key, source.WebserviceSource, normalize.Webservice); err != nil {
				return err
			}
			log.Info().Str("key", key).Int("rows", len(rows)).Int("added", added).Msg("Timeline fetched")
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", key, len(rows))
		}
		return nil
	},
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List cached snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		metas, err := snapshot.NewStore(cfg.CacheDir).List()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSCHEMA\tROWS\tFETCHED")
		for _, m := range metas {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", m.Key, m.Schema, m.Rows, m.FetchedAt.Local().Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchDate, "date", "d", "", "last date to fetch (YYYY-MM-DD or DD/MM/YYYY, default today)")
	fetchCmd.Flags().IntVar(&fetchDays, "days", 1, "number of consecutive days to fetch, ending at --date")
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(snapshotsCmd)
}
