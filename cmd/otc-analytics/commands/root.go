package commands

import (
	"otc-analytics/internal/config"
	"otc-analytics/internal/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "otc-analytics",
	Short: "Order-to-cash cycle analytics for ERP order timelines",
	Long: `Reconciles the milestone timestamps of sales orders (creation, shipment, item preparation,
invoice, title registration), derives their status and classifies every stage against a
rolling baseline of earlier orders. Data comes from the ERP webservice, saved snapshots or
spreadsheet extracts.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		// Load configuration
		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("OTC-Analytics starting")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}
