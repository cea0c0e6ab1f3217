package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"otc-analytics/internal/codes"
	"otc-analytics/internal/orders"
	"otc-analytics/internal/reconcile"
	"otc-analytics/internal/stats"
)

// AlertLevel grades data quality for the presentation layer.
type AlertLevel string

const (
	AlertOK      AlertLevel = "ok"
	AlertInfo    AlertLevel = "info"
	AlertWarning AlertLevel = "warning"
)

// OthersLabel collects everything beyond the ranked entries of a breakdown.
const OthersLabel = "Outros"

// productSlices bounds the product donut before folding the rest into OthersLabel.
const productSlices = 3

// Count is one labelled bucket of a grouped count.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// MilestoneSummary counts completion of one milestone.
type MilestoneSummary struct {
	Milestone orders.Milestone `json:"milestone"`
	Completed int              `json:"completed"`
	Pending   int              `json:"pending"`
	Percent   float64          `json:"completed_pct"`
}

// StageSummary aggregates the classifications of one stage.
type StageSummary struct {
	Stage           orders.Stage                     `json:"stage"`
	Counts          map[stats.Classification]int     `json:"counts"`
	Reasons         map[stats.InsufficientReason]int `json:"reasons,omitempty"`
	Pending         int                              `json:"pending"`
	InsufficientPct float64                          `json:"insufficient_pct"`
	PendingPct      float64                          `json:"pending_pct"`
	MeanBaseline    *float64                         `json:"mean_baseline_hours"`
	BatchMean       *float64                         `json:"batch_mean_hours"`
	Median          *float64                         `json:"median_hours"`
	Alert           AlertLevel                       `json:"alert"`
}

// BranchSummary breaks completion and classification down for one branch.
type BranchSummary struct {
	Branch          string                                        `json:"branch"`
	Orders          int                                           `json:"orders"`
	Completed       map[orders.Milestone]int                      `json:"completed"`
	Classifications map[orders.Stage]map[stats.Classification]int `json:"classifications"`
}

// Summary holds the grouped counts of one run. It never carries rendered charts.
type Summary struct {
	Empty        bool               `json:"empty"`
	TotalOrders  int                `json:"total_orders"`
	TotalRecords int                `json:"total_records"`
	Milestones   []MilestoneSummary `json:"milestones"`
	Stages       []StageSummary     `json:"stages"`
	Branches     []BranchSummary    `json:"branches"`
	// Situations holds label distributions per code domain.
	Situations map[codes.Domain][]Count `json:"situations"`
	// Outcomes counts reconciliation outcomes per milestone.
	Outcomes            map[orders.Milestone]map[reconcile.Outcome]int `json:"outcomes"`
	CompletionPct       float64                                        `json:"completion_pct"`
	CompletionAlert     AlertLevel                                     `json:"completion_alert"`
	BlockedOrders       int                                            `json:"blocked_orders"`
	BlockedObservations []Count                                        `json:"blocked_observations,omitempty"`
	TopProducts         []Count                                        `json:"top_products,omitempty"`
	ProductsPerInvoice  []Count                                        `json:"products_per_invoice,omitempty"`
	PFABlocksByDate     []Count                                        `json:"pfa_blocks_by_date,omitempty"`
}

// Stage returns the summary of s.
func (s Summary) Stage(stage orders.Stage) StageSummary {
	return s.Stages[stage]
}

// Milestone returns the summary of m.
func (s Summary) Milestone(m orders.Milestone) MilestoneSummary {
	return s.Milestones[m]
}

func summarize(list []*orders.Order, records []orders.RawRecord, analysis stats.Analysis, topN int) Summary {
	total := len(list)
	sum := Summary{
		Empty:        total == 0,
		TotalOrders:  total,
		TotalRecords: len(records),
		Milestones:   make([]MilestoneSummary, orders.NumMilestones),
		Stages:       make([]StageSummary, orders.NumStages),
		Situations:   make(map[codes.Domain][]Count),
		Outcomes:     make(map[orders.Milestone]map[reconcile.Outcome]int),
	}

	// 1. Milestone completion and reconciliation outcomes
	for _, m := range orders.Milestones {
		ms := MilestoneSummary{Milestone: m}
		outcomes := make(map[reconcile.Outcome]int)
		for _, o := range list {
			if o.Statuses[m] == orders.Completed {
				ms.Completed++
			} else {
				ms.Pending++
			}
			outcomes[o.Outcomes[m]]++
		}
		ms.Percent = stats.Percentage(ms.Completed, total)
		sum.Milestones[m] = ms
		sum.Outcomes[m] = outcomes
	}
	sum.CompletionPct = sum.Milestones[orders.TitleRegistered].Percent
	sum.CompletionAlert = completionAlert(sum.CompletionPct, total)

	// 2. Stage classifications
	for _, s := range orders.Stages {
		sa := analysis.Stages[s]
		ss := StageSummary{
			Stage:     s,
			Counts:    make(map[stats.Classification]int, len(stats.Classifications)),
			Reasons:   sa.Reasons,
			Pending:   sum.Milestones[s.To()].Pending,
			BatchMean: sa.BatchMean,
			Median:    sa.Median,
		}
		for _, c := range stats.Classifications {
			ss.Counts[c] = sa.Counts[c]
		}
		var baselines []float64
		for _, r := range sa.Results {
			if r.Baseline != nil {
				baselines = append(baselines, *r.Baseline)
			}
		}
		if len(baselines) > 0 {
			mean := stats.CalculateMean(baselines)
			ss.MeanBaseline = &mean
		}
		ss.InsufficientPct = stats.Percentage(ss.Counts[stats.InsufficientData], total)
		ss.PendingPct = stats.Percentage(ss.Pending, total)
		ss.Alert = stageAlert(ss.InsufficientPct, ss.PendingPct, total)
		sum.Stages[s] = ss
	}

	// 3. Per-branch breakdown
	sum.Branches = branchSummaries(list, analysis)

	// 4. Situation label distributions
	for attr, domain := range situationDomains {
		labels := make(map[string]int)
		for _, o := range list {
			if code := o.Attribute(attr); code != "" {
				labels[codes.Lookup(domain, code)]++
			}
		}
		if len(labels) > 0 {
			sum.Situations[domain] = rank(labels, 0)
		}
	}

	// 5. Blocked orders and their observations
	observations := make(map[string]int)
	pfaBlocks := make(map[string]int)
	for _, o := range list {
		if isFlagSet(o.Attribute(orders.AttrOrderBlocked)) {
			sum.BlockedOrders++
			if obs := strings.TrimSpace(o.Attribute(orders.AttrObservation)); obs != "" {
				observations[obs]++
			}
		}
		if isFlagSet(o.Attribute(orders.AttrPFABlock)) {
			if ts := o.Timestamp(orders.ShipmentAssociated); ts != nil {
				pfaBlocks[ts.Format("2006-01-02")]++
			}
		}
	}
	sum.BlockedObservations = rank(observations, topN)
	sum.PFABlocksByDate = chronological(pfaBlocks)

	// 6. Products
	sum.TopProducts = topProducts(list)
	sum.ProductsPerInvoice = productsPerInvoice(records)

	return sum
}

func completionAlert(pct float64, total int) AlertLevel {
	switch {
	case total == 0:
		return AlertOK
	case pct < 30:
		return AlertWarning
	case pct < 70:
		return AlertInfo
	default:
		return AlertOK
	}
}

func stageAlert(insufficientPct, pendingPct float64, total int) AlertLevel {
	switch {
	case total == 0:
		return AlertOK
	case insufficientPct > 10:
		return AlertWarning
	case pendingPct > 50:
		return AlertInfo
	default:
		return AlertOK
	}
}

func branchSummaries(list []*orders.Order, analysis stats.Analysis) []BranchSummary {
	index := make(map[string]int)
	var out []BranchSummary
	for i, o := range list {
		pos, ok := index[o.Branch]
		if !ok {
			pos = len(out)
			index[o.Branch] = pos
			bs := BranchSummary{
				Branch:          o.Branch,
				Completed:       make(map[orders.Milestone]int),
				Classifications: make(map[orders.Stage]map[stats.Classification]int),
			}
			for _, s := range orders.Stages {
				bs.Classifications[s] = make(map[stats.Classification]int)
			}
			out = append(out, bs)
		}
		bs := &out[pos]
		bs.Orders++
		for _, m := range orders.Milestones {
			if o.Statuses[m] == orders.Completed {
				bs.Completed[m]++
			}
		}
		for _, s := range orders.Stages {
			bs.Classifications[s][analysis.Stages[s].Results[i].Classification]++
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Branch < out[j].Branch })
	return out
}

// topProducts ranks product codes by the number of orders touching them and
// folds everything past the leading slices into OthersLabel.
func topProducts(list []*orders.Order) []Count {
	counts := make(map[string]int)
	for _, o := range list {
		for _, p := range o.Collection(orders.AttrProductCode) {
			counts[p]++
		}
	}
	ranked := rank(counts, 0)
	if len(ranked) <= productSlices {
		return ranked
	}
	others := 0
	for _, c := range ranked[productSlices:] {
		others += c.Count
	}
	return append(ranked[:productSlices:productSlices], Count{Label: OthersLabel, Count: others})
}

// productsPerInvoice counts invoices by how many distinct products they carry.
func productsPerInvoice(records []orders.RawRecord) []Count {
	products := make(map[string]map[string]bool)
	for _, r := range records {
		invoice := strings.TrimSpace(r.Attributes[orders.AttrInvoiceNumber])
		product := strings.TrimSpace(r.Attributes[orders.AttrProductCode])
		if invoice == "" || product == "" {
			continue
		}
		key := r.Branch + "/" + invoice
		if products[key] == nil {
			products[key] = make(map[string]bool)
		}
		products[key][product] = true
	}

	histogram := make(map[int]int)
	for _, set := range products {
		histogram[len(set)]++
	}
	sizes := make([]int, 0, len(histogram))
	for n := range histogram {
		sizes = append(sizes, n)
	}
	sort.Ints(sizes)

	out := make([]Count, 0, len(sizes))
	for _, n := range sizes {
		out = append(out, Count{Label: fmt.Sprintf("%d", n), Count: histogram[n]})
	}
	return out
}

// rank sorts buckets by count descending then label; limit 0 keeps all.
func rank(counts map[string]int, limit int) []Count {
	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func chronological(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
