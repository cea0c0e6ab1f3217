package commands

import (
	"os"
	"os/signal"
	"syscall"

	"otc-analytics/internal/mcp"
	"otc-analytics/internal/source"

	"github.com/spf13/cobra"
)

var (
	mcpSource   sourceFlags
	mcpAnalysis analysisFlags
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP tool server over stdio",
	Long: `Exposes list_branches, get_overview, get_stage_analysis and get_order to an MCP client.
The batch is loaded on the first tool call; list_branches with refresh reloads it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := mcpAnalysis.options(cmd)
		if err != nil {
			return err
		}
		loader, err := mcpSource.loader(opts.Location)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := mcp.NewServer(source.NewDataset(loader, opts), cfg.EnableMermaidCharts, Version)
		return server.Serve(ctx)
	},
}

func init() {
	mcpSource.register(mcpCmd)
	mcpAnalysis.register(mcpCmd)
	rootCmd.AddCommand(mcpCmd)
}
