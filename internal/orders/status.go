package orders

import "fmt"

// StatusPolicy decides how a milestone's status follows from the timestamps.
type StatusPolicy string

const (
	// Independent marks a milestone completed whenever its own timestamp is present.
	Independent StatusPolicy = "independent"
	// SequentialGated also requires the preceding milestone to be completed.
	SequentialGated StatusPolicy = "sequential"
)

// ParsePolicy maps a configuration value onto a policy. Empty selects Independent.
func ParsePolicy(s string) (StatusPolicy, error) {
	switch StatusPolicy(s) {
	case "", Independent:
		return Independent, nil
	case SequentialGated, "sequential_gated", "gated":
		return SequentialGated, nil
	default:
		return "", fmt.Errorf("unknown status policy %q", s)
	}
}

// DeriveStatuses sets Statuses on every order from its reconciled timestamps.
func DeriveStatuses(list []*Order, policy StatusPolicy) {
	for _, o := range list {
		o.DeriveStatuses(policy)
	}
}

// DeriveStatuses sets Statuses for a single order.
func (o *Order) DeriveStatuses(policy StatusPolicy) {
	for _, m := range Milestones {
		status := Pending
		if o.Timestamps[m] != nil {
			status = Completed
		}
		if policy == SequentialGated {
			if prev, ok := m.Previous(); ok && o.Statuses[prev] != Completed {
				status = Pending
			}
		}
		o.Statuses[m] = status
	}
}
