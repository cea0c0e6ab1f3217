package api

import (
	"context"
	"time"

	"otc-analytics/internal/pipeline"
	"otc-analytics/internal/source"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// Analyzer is the data the API serves.
type Analyzer interface {
	Branches(ctx context.Context) ([]string, error)
	Analyze(ctx context.Context, q source.Query) (*pipeline.Result, error)
}

// Options configure the router.
type Options struct {
	CORSOrigins []string
	// Timeout bounds each analysis request.
	Timeout time.Duration
	// Charts attaches Mermaid charts to summary answers.
	Charts bool
}

// Routes builds the HTTP handler of the `serve` command.
func Routes(data Analyzer, opts Options) *chi.Mux {
	router := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})

	router.Use(corsHandler.Handler)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	router.Get("/api/health", Health())
	router.Get("/api/branches", GetBranches(data, timeout))
	router.Get("/api/summary", GetSummary(data, timeout, opts.Charts))
	router.Get("/api/stages/{stage}", GetStage(data, timeout))
	router.Get("/api/orders", GetOrders(data, timeout))
	router.Get("/api/orders/{branch}/{order}", GetOrder(data, timeout))
	router.Get("/api/report", GetReport(data, timeout))

	return router
}
