package pipeline

import (
	"strings"
	"time"

	"otc-analytics/internal/codes"
	"otc-analytics/internal/orders"
	"otc-analytics/internal/reconcile"
	"otc-analytics/internal/stats"
)

// MilestoneView is one (timestamp, status) pair of an order.
type MilestoneView struct {
	Milestone orders.Milestone       `json:"milestone"`
	Timestamp *time.Time             `json:"timestamp"`
	Status    orders.MilestoneStatus `json:"status"`
	Outcome   reconcile.Outcome      `json:"outcome"`
}

// StageView is one (duration, baseline, classification) triple of an order.
type StageView struct {
	Stage orders.Stage `json:"stage"`
	stats.StageResult
}

// OrderRow is the per-order table row handed to presentation.
type OrderRow struct {
	Branch      string          `json:"branch"`
	OrderNumber string          `json:"order_number"`
	Milestones  []MilestoneView `json:"milestones"`
	Stages      []StageView     `json:"stages"`
	// Situations holds resolved labels per code domain.
	Situations     map[codes.Domain]string     `json:"situations"`
	Attributes     map[orders.Attribute]string `json:"attributes,omitempty"`
	ProductCodes   []string                    `json:"product_codes,omitempty"`
	InvoiceNumbers []string                    `json:"invoice_numbers,omitempty"`
	TitleNumbers   []string                    `json:"title_numbers,omitempty"`
	Blocked        bool                        `json:"blocked"`
	Records        int                         `json:"records"`
}

// Milestone returns the view of m.
func (r OrderRow) Milestone(m orders.Milestone) MilestoneView {
	return r.Milestones[m]
}

// Stage returns the view of s.
func (r OrderRow) Stage(s orders.Stage) StageView {
	return r.Stages[s]
}

// situationDomains binds each situation attribute to its code table.
var situationDomains = map[orders.Attribute]codes.Domain{
	orders.AttrOrderSituation: codes.OrderSituation,
	orders.AttrPFASituation:   codes.ItemPrep,
	orders.AttrLoadSituation:  codes.Load,
	orders.AttrNFVSituation:   codes.Invoice,
	orders.AttrTitleSituation: codes.Title,
}

func buildRows(list []*orders.Order, analysis stats.Analysis) []OrderRow {
	rows := make([]OrderRow, len(list))
	for i, o := range list {
		row := OrderRow{
			Branch:         o.Branch,
			OrderNumber:    o.OrderNumber,
			Milestones:     make([]MilestoneView, orders.NumMilestones),
			Stages:         make([]StageView, orders.NumStages),
			Situations:     make(map[codes.Domain]string, len(situationDomains)),
			Attributes:     o.Attributes,
			ProductCodes:   o.Collection(orders.AttrProductCode),
			InvoiceNumbers: o.Collection(orders.AttrInvoiceNumber),
			TitleNumbers:   o.Collection(orders.AttrTitleNumber),
			Blocked:        isFlagSet(o.Attribute(orders.AttrOrderBlocked)),
			Records:        o.Records,
		}
		for _, m := range orders.Milestones {
			row.Milestones[m] = MilestoneView{
				Milestone: m,
				Timestamp: o.Timestamp(m),
				Status:    o.Statuses[m],
				Outcome:   o.Outcomes[m],
			}
		}
		for _, s := range orders.Stages {
			row.Stages[s] = StageView{Stage: s, StageResult: analysis.Stages[s].Results[i]}
		}
		for attr, domain := range situationDomains {
			row.Situations[domain] = codes.Lookup(domain, o.Attribute(attr))
		}
		rows[i] = row
	}
	return rows
}

// isFlagSet treats any non-empty block marker other than an explicit "no" as set.
func isFlagSet(v string) bool {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "", "0", "N", "NAO", "NÃO":
		return false
	default:
		return true
	}
}
