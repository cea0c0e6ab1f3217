package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"otc-analytics/internal/normalize"
	"otc-analytics/internal/orders"
	"otc-analytics/internal/reconcile"
	"otc-analytics/internal/stats"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one run, ready for presentation.
type Result struct {
	RunID   string     `json:"run_id"`
	Orders  []OrderRow `json:"orders"`
	Summary Summary    `json:"summary"`
}

// Pipeline reconciles and classifies raw batches. It holds no state between runs.
type Pipeline struct {
	opts       Options
	loc        *time.Location
	reconciler *reconcile.Reconciler
}

// New builds a pipeline from options.
func New(opts Options) *Pipeline {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Pipeline{
		opts:       opts,
		loc:        loc,
		reconciler: reconcile.Default().WithLocation(loc),
	}
}

// Options returns the options the pipeline was built with.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Run normalizes source rows of one schema and analyzes them.
func (p *Pipeline) Run(ctx context.Context, schema normalize.Schema, rows []normalize.Row) (*Result, error) {
	records, err := p.Normalize(ctx, schema, rows)
	if err != nil {
		return nil, err
	}
	return p.Analyze(ctx, records)
}

// Normalize maps rows onto canonical records in parallel, preserving row order.
func (p *Pipeline) Normalize(ctx context.Context, schema normalize.Schema, rows []normalize.Row) ([]orders.RawRecord, error) {
	if _, err := normalize.Headers(schema); err != nil {
		return nil, err
	}

	records := make([]orders.RawRecord, len(rows))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.workers())
	for i, row := range rows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := normalize.Normalize(schema, row)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// Analyze runs filter, deduplication, reconciliation, status derivation and
// the duration engine over canonical records.
func (p *Pipeline) Analyze(ctx context.Context, records []orders.RawRecord) (*Result, error) {
	runID := uuid.NewString()

	// 1. Branch filter
	filtered := p.filter(records)

	// 2. One order per (branch, order number), first occurrence wins
	list := orders.Deduplicate(filtered)

	// 3. Reconcile every order in parallel; each goroutine owns its order
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.workers())
	for _, o := range list {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o.Reconcile(p.reconciler)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	// 4. Statuses
	policy := p.opts.StatusPolicy
	if policy == "" {
		policy = orders.Independent
	}
	orders.DeriveStatuses(list, policy)

	// 5. Baselines walk a defined total order
	list = p.order(list)
	engine := stats.Engine{
		Window:     p.opts.Window,
		MinPeriods: p.opts.MinPeriods,
		Impute:     p.opts.imputePolicy(p.loc),
	}
	analysis := engine.Analyze(list)

	// 6. Presentation tables
	result := &Result{
		RunID:   runID,
		Orders:  buildRows(list, analysis),
		Summary: summarize(list, filtered, analysis, p.opts.topN()),
	}

	log.Info().
		Str("run", runID).
		Int("records", len(records)).
		Int("filtered", len(filtered)).
		Int("orders", len(list)).
		Str("policy", string(policy)).
		Str("ordering", string(p.ordering())).
		Msg("Batch analyzed")
	for _, s := range result.Summary.Stages {
		log.Debug().
			Str("run", runID).
			Str("stage", s.Stage.String()).
			Int("within", s.Counts[stats.WithinBaseline]).
			Int("exceeds", s.Counts[stats.ExceedsBaseline]).
			Int("insufficient", s.Counts[stats.InsufficientData]).
			Msg("Stage classified")
	}

	return result, nil
}

func (p *Pipeline) filter(records []orders.RawRecord) []orders.RawRecord {
	if p.opts.allBranches() {
		return records
	}
	keep := p.opts.branchSet()
	out := make([]orders.RawRecord, 0, len(records))
	for _, r := range records {
		if keep[r.Branch] {
			out = append(out, r)
		}
	}
	return out
}

func (p *Pipeline) ordering() Ordering {
	if p.opts.Ordering == "" {
		return OrderInput
	}
	return p.opts.Ordering
}

func (p *Pipeline) order(list []*orders.Order) []*orders.Order {
	if p.ordering() != OrderByCreation {
		return list
	}
	sorted := make([]*orders.Order, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Timestamp(orders.OrderCreated), sorted[j].Timestamp(orders.OrderCreated)
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return sorted
}

// Branches lists the distinct non-empty branch ids of a batch, sorted.
func Branches(records []orders.RawRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if r.Branch != "" && !seen[r.Branch] {
			seen[r.Branch] = true
			out = append(out, r.Branch)
		}
	}
	sort.Strings(out)
	return out
}
