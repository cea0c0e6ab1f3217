package source

import (
	"context"
	"sync"

	"otc-analytics/internal/orders"
	"otc-analytics/internal/pipeline"

	"github.com/rs/zerolog/log"
)

// Dataset loads and normalizes a batch once, then analyzes it per request.
// Safe for concurrent use.
type Dataset struct {
	loader Loader
	opts   pipeline.Options

	mu      sync.Mutex
	name    string
	records []orders.RawRecord
	loaded  bool
}

// NewDataset wraps a loader with the default run options.
func NewDataset(loader Loader, opts pipeline.Options) *Dataset {
	return &Dataset{loader: loader, opts: opts}
}

// Options returns the default run options.
func (d *Dataset) Options() pipeline.Options {
	return d.opts
}

// Records returns the canonical records of the batch, loading them on first use
// or when refresh is set.
func (d *Dataset) Records(ctx context.Context, refresh bool) ([]orders.RawRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loaded && !refresh {
		return d.records, nil
	}

	batch, err := d.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(d.opts)
	var records []orders.RawRecord
	for _, part := range batch.Parts {
		recs, err := p.Normalize(ctx, part.Schema, part.Rows)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}

	d.name = batch.Name
	d.records = records
	d.loaded = true
	log.Info().Str("batch", batch.Name).Int("records", len(records)).Msg("Dataset loaded")
	return records, nil
}

// Name identifies the loaded batch; empty before the first load.
func (d *Dataset) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

// Branches lists the branch ids present in the batch.
func (d *Dataset) Branches(ctx context.Context) ([]string, error) {
	records, err := d.Records(ctx, false)
	if err != nil {
		return nil, err
	}
	return pipeline.Branches(records), nil
}

// Query narrows one analysis of the batch. Zero fields keep the configured options.
type Query struct {
	Branch string
	Policy orders.StatusPolicy
}

// Analyze runs the pipeline over the batch. A non-empty branch replaces the
// configured branch filter and a non-empty policy the configured status policy.
func (d *Dataset) Analyze(ctx context.Context, q Query) (*pipeline.Result, error) {
	records, err := d.Records(ctx, false)
	if err != nil {
		return nil, err
	}
	opts := d.opts
	if q.Branch != "" {
		opts.Branches = []string{q.Branch}
	}
	if q.Policy != "" {
		opts.StatusPolicy = q.Policy
	}
	return pipeline.New(opts).Analyze(ctx, records)
}
