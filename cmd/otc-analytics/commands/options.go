package commands

import (
	"fmt"
	"strings"
	"time"

	"otc-analytics/internal/normalize"
	"otc-analytics/internal/orders"
	"otc-analytics/internal/pipeline"
	"otc-analytics/internal/senior"
	"otc-analytics/internal/snapshot"
	"otc-analytics/internal/source"
	"otc-analytics/internal/stats"

	"github.com/spf13/cobra"
)

// sourceFlags select where a batch comes from.
type sourceFlags struct {
	files    []string
	schema   string
	date     string
	snapshot string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.files, "file", "f", nil, "extract files (.xlsx, .xml); repeat or comma-separate")
	cmd.Flags().StringVar(&f.schema, "schema", "", "schema of the extract files: webservice, extract or extract_alt (default: by extension)")
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "reference date for the webservice (YYYY-MM-DD or DD/MM/YYYY, default today)")
	cmd.Flags().StringVar(&f.snapshot, "snapshot", "", "replay a cached snapshot by key instead of calling the webservice")
}

// loader picks files first, then a snapshot, then the webservice.
func (f *sourceFlags) loader(loc *time.Location) (source.Loader, error) {
	store := snapshot.NewStore(cfg.CacheDir)

	switch {
	case len(f.files) > 0:
		var schema normalize.Schema
		if f.schema != "" {
			s, err := normalize.ParseSchema(f.schema)
			if err != nil {
				return nil, err
			}
			schema = s
		}
		return source.Files{Paths: f.files, Schema: schema}, nil
	case f.snapshot != "":
		return source.Snapshot{Store: store, Key: f.snapshot}, nil
	default:
		date, err := parseDate(f.date, loc)
		if err != nil {
			return nil, err
		}
		return source.Webservice{Client: senior.NewClient(cfg.SeniorConfig()), Store: store, Date: date}, nil
	}
}

// analysisFlags override the configured run options.
type analysisFlags struct {
	branches   []string
	window     int
	minPeriods string
	policy     string
	order      string
	impute     bool
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.branches, "branch", "b", nil, "branch ids to keep ('all' keeps every branch)")
	cmd.Flags().IntVarP(&f.window, "window", "w", 0, "rolling baseline window (prior orders)")
	cmd.Flags().StringVar(&f.minPeriods, "min-periods", "", "baseline minimum: at_least_one or full")
	cmd.Flags().StringVar(&f.policy, "policy", "", "status policy: independent or sequential")
	cmd.Flags().StringVar(&f.order, "order", "", "baseline ordering: input or created")
	cmd.Flags().BoolVar(&f.impute, "impute-now", false, "measure open stages up to the current time (never feeds baselines)")
}

func (f *analysisFlags) options(cmd *cobra.Command) (pipeline.Options, error) {
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return opts, err
	}

	if cmd.Flags().Changed("branch") {
		opts.Branches = f.branches
	}
	if cmd.Flags().Changed("window") {
		if f.window < 1 {
			return opts, fmt.Errorf("window must be positive, got %d", f.window)
		}
		opts.Window = f.window
	}
	if f.minPeriods != "" {
		if opts.MinPeriods, err = stats.ParseMinPeriods(f.minPeriods); err != nil {
			return opts, err
		}
	}
	if f.policy != "" {
		if opts.StatusPolicy, err = orders.ParsePolicy(f.policy); err != nil {
			return opts, err
		}
	}
	if f.order != "" {
		if opts.Ordering, err = pipeline.ParseOrdering(f.order); err != nil {
			return opts, err
		}
	}
	if f.impute {
		opts.Impute = stats.ImputePolicy{Enabled: true}
	}
	return opts, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		now := time.Now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	for _, layout := range []string{"2006-01-02", senior.DateLayout} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or DD/MM/YYYY", s)
}
