package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"otc-analytics/internal/api"
	"otc-analytics/internal/source"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	serveSource   sourceFlags
	serveAnalysis analysisFlags
	serveAddress  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve analyses over an HTTP JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := serveAnalysis.options(cmd)
		if err != nil {
			return err
		}
		loader, err := serveSource.loader(opts.Location)
		if err != nil {
			return err
		}
		data := source.NewDataset(loader, opts)

		addr := cfg.HTTP.Address
		if serveAddress != "" {
			addr = serveAddress
		}
		srv := &http.Server{
			Addr: addr,
			Handler: api.Routes(data, api.Options{
				CORSOrigins: cfg.HTTP.CORSOrigins,
				Timeout:     cfg.Webservice.Timeout,
				Charts:      cfg.EnableMermaidCharts,
			}),
			ReadTimeout:  cfg.HTTP.Timeout,
			WriteTimeout: cfg.Webservice.Timeout + cfg.HTTP.Timeout,
			IdleTimeout:  cfg.HTTP.IdleTimeout,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("address", addr).Msg("Server started")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("Server stopping")
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveSource.register(serveCmd)
	serveAnalysis.register(serveCmd)
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "listen address (default HTTP_ADDRESS)")
	rootCmd.AddCommand(serveCmd)
}
