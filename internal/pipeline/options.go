package pipeline

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"otc-analytics/internal/orders"
	"otc-analytics/internal/stats"
)

// AllBranches selects every branch, including records without a branch id.
const AllBranches = "all"

// Ordering is the total order the rolling baseline walks.
type Ordering string

const (
	// OrderInput keeps first-occurrence order of the ingested batch.
	OrderInput Ordering = "input"
	// OrderByCreation sorts by creation timestamp, stable, absent timestamps last.
	OrderByCreation Ordering = "created"
)

// ParseOrdering maps a configuration value onto an ordering. Empty selects OrderInput.
func ParseOrdering(s string) (Ordering, error) {
	switch Ordering(s) {
	case "", OrderInput:
		return OrderInput, nil
	case OrderByCreation:
		return OrderByCreation, nil
	default:
		return "", fmt.Errorf("unknown baseline ordering %q", s)
	}
}

// Options configure one run.
type Options struct {
	// Branches restricts the batch; empty or containing AllBranches keeps everything.
	Branches     []string
	Window       int
	MinPeriods   stats.MinPeriods
	StatusPolicy orders.StatusPolicy
	Ordering     Ordering
	// Impute with a zero Reference measures open stages up to Clock at the start of each run.
	Impute   stats.ImputePolicy
	Location *time.Location
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Workers bounds parallel normalization and reconciliation.
	Workers int
	// TopN bounds the ranked breakdowns of the summary.
	TopN int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Window:       stats.DefaultWindow,
		MinPeriods:   stats.AtLeastOne,
		StatusPolicy: orders.Independent,
		Ordering:     OrderInput,
		Location:     time.UTC,
		Workers:      runtime.NumCPU(),
		TopN:         10,
	}
}

func (o Options) allBranches() bool {
	if len(o.Branches) == 0 {
		return true
	}
	for _, b := range o.Branches {
		if strings.EqualFold(strings.TrimSpace(b), AllBranches) {
			return true
		}
	}
	return false
}

func (o Options) branchSet() map[string]bool {
	set := make(map[string]bool, len(o.Branches))
	for _, b := range o.Branches {
		set[strings.TrimSpace(b)] = true
	}
	return set
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}

func (o Options) topN() int {
	if o.TopN < 1 {
		return 10
	}
	return o.TopN
}

// imputePolicy resolves an open Reference against the clock of this run.
func (o Options) imputePolicy(loc *time.Location) stats.ImputePolicy {
	policy := o.Impute
	if !policy.Enabled || !policy.Reference.IsZero() {
		return policy
	}
	now := time.Now
	if o.Clock != nil {
		now = o.Clock
	}
	policy.Reference = now().In(loc)
	return policy
}
