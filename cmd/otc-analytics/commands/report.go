package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"otc-analytics/internal/visuals"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	reportSource    sourceFlags
	reportAnalysis  analysisFlags
	reportFormat    string
	reportOut       string
	reportTitle     string
	reportMaxOrders int
	reportOpen      bool
)

var reportExtensions = map[string]string{
	"html":     ".html",
	"markdown": ".md",
	"xlsx":     ".xlsx",
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render an analysis as an HTML, Markdown or Excel report",
	Example: `  otc-analytics report --date 2025-06-19 --open
  otc-analytics report -f pedidos.xlsx --format xlsx -o ciclo.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ext, ok := reportExtensions[reportFormat]
		if !ok {
			return fmt.Errorf("unknown report format %q: use html, markdown or xlsx", reportFormat)
		}

		res, err := runAnalysis(cmd, &reportSource, &reportAnalysis)
		if err != nil {
			return err
		}

		// 1. Render
		opts := visuals.ReportOptions{Title: reportTitle, Charts: cfg.EnableMermaidCharts || reportFormat == "html", MaxOrders: reportMaxOrders}
		var body []byte
		switch reportFormat {
		case "markdown":
			body = []byte(visuals.Markdown(res, opts))
		case "xlsx":
			if body, err = visuals.Workbook(res); err != nil {
				return err
			}
		default:
			var buf bytes.Buffer
			if err := visuals.HTML(&buf, res, opts); err != nil {
				return err
			}
			body = buf.Bytes()
		}

		// 2. Write
		path := reportOut
		if path == "" {
			path = filepath.Join(cfg.DataPath, "reports", fmt.Sprintf("otc_%s%s", time.Now().Format("2006-01-02_150405"), ext))
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
		if err := os.WriteFile(path, body, 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		log.Info().Str("path", path).Str("format", reportFormat).Msg("Report written")
		fmt.Fprintln(cmd.OutOrStdout(), path)

		// 3. Open
		if reportOpen {
			if err := browser.OpenFile(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Failed to open report")
			}
		}
		return nil
	},
}

func init() {
	reportSource.register(reportCmd)
	reportAnalysis.register(reportCmd)
	reportCmd.Flags().StringVar(&reportFormat, "format", "html", "report format: html, markdown or xlsx")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "output path (default: <DATA_PATH>/reports/otc_<timestamp>.<ext>)")
	reportCmd.Flags().StringVar(&reportTitle, "title", "", "report title")
	reportCmd.Flags().IntVar(&reportMaxOrders, "max-orders", 500, "maximum orders listed in the report table (0 lists all)")
	reportCmd.Flags().BoolVar(&reportOpen, "open", false, "open the report with the default application")
	rootCmd.AddCommand(reportCmd)
}
