package stats

import (
	"fmt"
	"time"

	"otc-analytics/internal/orders"
)

// Classification compares an order's stage duration with its baseline.
type Classification string

const (
	WithinBaseline   Classification = "within_baseline"
	ExceedsBaseline  Classification = "exceeds_baseline"
	InsufficientData Classification = "insufficient_data"
)

// Classifications lists every classification in reporting order.
var Classifications = []Classification{WithinBaseline, ExceedsBaseline, InsufficientData}

// Label is the display name used by reports.
func (c Classification) Label() string {
	switch c {
	case WithinBaseline:
		return "Dentro da Média"
	case ExceedsBaseline:
		return "Acima da Média"
	default:
		return "Dados Insuficientes"
	}
}

// InsufficientReason explains an InsufficientData classification.
type InsufficientReason string

const (
	ReasonNone             InsufficientReason = ""
	ReasonMissingStart     InsufficientReason = "missing_start"
	ReasonMissingEnd       InsufficientReason = "missing_end"
	ReasonNegativeDuration InsufficientReason = "negative_duration"
	ReasonNoBaseline       InsufficientReason = "no_baseline"
)

// MinPeriods decides how many prior durations a baseline needs.
type MinPeriods string

const (
	// AtLeastOne averages whatever is available in the window, minimum one value.
	AtLeastOne MinPeriods = "at_least_one"
	// FullWindow requires the window to be filled.
	FullWindow MinPeriods = "full"
)

// ParseMinPeriods maps a configuration value onto a policy. Empty selects AtLeastOne.
func ParseMinPeriods(s string) (MinPeriods, error) {
	switch MinPeriods(s) {
	case "", AtLeastOne:
		return AtLeastOne, nil
	case FullWindow:
		return FullWindow, nil
	default:
		return "", fmt.Errorf("unknown min-periods policy %q", s)
	}
}

// ImputePolicy substitutes Reference for a missing end timestamp. Disabled by default;
// imputed durations are classified but never feed a baseline.
type ImputePolicy struct {
	Enabled   bool
	Reference time.Time
}

// StageResult is the outcome of one stage for one order.
type StageResult struct {
	Duration       *float64           `json:"duration_hours"`
	Baseline       *float64           `json:"baseline_hours"`
	BaselineFilled bool               `json:"baseline_filled,omitempty"`
	Imputed        bool               `json:"imputed,omitempty"`
	Classification Classification     `json:"classification"`
	Reason         InsufficientReason `json:"reason,omitempty"`
}

// StageAnalysis holds one result per order, aligned with the input slice.
type StageAnalysis struct {
	Stage   orders.Stage
	Results []StageResult
	// BatchMean is the mean of every valid duration, nil when there is none.
	BatchMean *float64
	// Median of every valid duration, nil when there is none.
	Median *float64
	Counts map[Classification]int
	// Reasons counts InsufficientData results by cause.
	Reasons map[InsufficientReason]int
	Valid   int
}

// Analysis covers every stage of one batch.
type Analysis struct {
	Stages [orders.NumStages]StageAnalysis
}
