package orders

import (
	"time"

	"otc-analytics/internal/reconcile"
)

// MilestoneStatus is the completion state of one milestone of one order.
type MilestoneStatus string

const (
	Pending   MilestoneStatus = "pending"
	Completed MilestoneStatus = "completed"
)

// Order is the deduplicated entity for one (branch, order number).
type Order struct {
	Key
	Raw         [NumMilestones]RawDateTime
	Timestamps  [NumMilestones]*time.Time
	Outcomes    [NumMilestones]reconcile.Outcome
	Statuses    [NumMilestones]MilestoneStatus
	Attributes  map[Attribute]string
	Collections map[Attribute][]string
	// Records is how many raw rows were merged into this order.
	Records int
}

// Timestamp returns the canonical timestamp of m, or nil when absent.
func (o *Order) Timestamp(m Milestone) *time.Time {
	return o.Timestamps[m]
}

// Attribute returns a first-seen scalar attribute.
func (o *Order) Attribute(a Attribute) string {
	return o.Attributes[a]
}

// Collection returns the distinct values of a multi-valued attribute in first-seen order.
func (o *Order) Collection(a Attribute) []string {
	return o.Collections[a]
}

// Reconcile fills Timestamps and Outcomes from the raw milestone pairs.
func (o *Order) Reconcile(r *reconcile.Reconciler) {
	for _, m := range Milestones {
		o.Timestamps[m], o.Outcomes[m] = reconcileRaw(r, o.Raw[m])
	}
}

func reconcileRaw(r *reconcile.Reconciler, raw RawDateTime) (*time.Time, reconcile.Outcome) {
	ts, outcome := r.Reconcile(raw.Date, raw.Time)
	if ts == nil && raw.Fallback != nil {
		if fts, fOutcome := reconcileRaw(r, *raw.Fallback); fts != nil {
			return fts, fOutcome
		}
	}
	return ts, outcome
}
