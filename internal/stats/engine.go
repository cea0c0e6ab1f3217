package stats

import (
	"time"

	"otc-analytics/internal/orders"
)

// DefaultWindow is the number of prior durations a baseline averages.
const DefaultWindow = 3

// Engine computes stage durations, rolling baselines and classifications.
// The input order defines the rolling sequence; callers sort before calling.
type Engine struct {
	Window     int
	MinPeriods MinPeriods
	Impute     ImputePolicy
}

// NewEngine returns an engine with the default window and min-periods policy.
func NewEngine() Engine {
	return Engine{Window: DefaultWindow, MinPeriods: AtLeastOne}
}

// Analyze runs every stage over the ordered list. It never fails.
func (e Engine) Analyze(list []*orders.Order) Analysis {
	var a Analysis
	for _, s := range orders.Stages {
		a.Stages[s] = e.AnalyzeStage(list, s)
	}
	return a
}

// AnalyzeStage computes one stage for every order of the ordered list.
func (e Engine) AnalyzeStage(list []*orders.Order, stage orders.Stage) StageAnalysis {
	n := len(list)
	durations := make([]*float64, n)
	reasons := make([]InsufficientReason, n)
	imputed := make([]bool, n)

	// 1. Raw durations; only observed, non-negative spans feed the baselines
	valid := make([]*float64, n)
	for i, o := range list {
		start, end := o.Timestamp(stage.From()), o.Timestamp(stage.To())
		durations[i], reasons[i] = Duration(start, end)
		if durations[i] != nil {
			valid[i] = durations[i]
			continue
		}
		if e.Impute.Enabled && reasons[i] == ReasonMissingEnd {
			if d, r := Duration(start, &e.Impute.Reference); d != nil {
				durations[i], reasons[i], imputed[i] = d, r, true
			}
		}
	}

	// 2. Trailing baselines, then the batch-wide fill
	baselines := RollingBaselines(valid, e.window(), e.MinPeriods)
	batchMean := meanOf(valid)
	filled := FillBaselines(baselines, batchMean)

	// 3. Classify
	sa := StageAnalysis{
		Stage:     stage,
		Results:   make([]StageResult, n),
		BatchMean: batchMean,
		Counts:    make(map[Classification]int, len(Classifications)),
		Reasons:   make(map[InsufficientReason]int),
	}
	var observed []float64
	for i := range list {
		res := StageResult{
			Duration:       durations[i],
			Baseline:       baselines[i],
			BaselineFilled: filled[i],
			Imputed:        imputed[i],
			Classification: Classify(durations[i], baselines[i]),
		}
		if res.Classification == InsufficientData {
			res.Reason = reasons[i]
			if res.Reason == ReasonNone {
				res.Reason = ReasonNoBaseline
			}
			sa.Reasons[res.Reason]++
		}
		sa.Results[i] = res
		sa.Counts[res.Classification]++
		if valid[i] != nil {
			observed = append(observed, *valid[i])
		}
	}
	sa.Valid = len(observed)
	if len(observed) > 0 {
		median := CalculateMedianContinuous(observed)
		sa.Median = &median
	}

	return sa
}

func (e Engine) window() int {
	if e.Window < 1 {
		return DefaultWindow
	}
	return e.Window
}

// Duration returns the span from start to end in hours. It is nil when either
// endpoint is missing or the span is negative; the reason says which.
func Duration(start, end *time.Time) (*float64, InsufficientReason) {
	switch {
	case start == nil:
		return nil, ReasonMissingStart
	case end == nil:
		return nil, ReasonMissingEnd
	}
	span := end.Sub(*start)
	if span < 0 {
		return nil, ReasonNegativeDuration
	}
	hours := span.Hours()
	return &hours, ReasonNone
}

// RollingBaselines returns, for each position, the mean of the last window
// defined values strictly before it. Undefined entries are skipped, not zeroed.
func RollingBaselines(durations []*float64, window int, minPeriods MinPeriods) []*float64 {
	required := 1
	if minPeriods == FullWindow {
		required = window
	}

	out := make([]*float64, len(durations))
	trailing := make([]float64, 0, window)
	for i, d := range durations {
		if len(trailing) >= required {
			mean := CalculateMean(trailing)
			out[i] = &mean
		}
		if d == nil {
			continue
		}
		if len(trailing) == window {
			trailing = trailing[1:]
		}
		trailing = append(trailing, *d)
	}
	return out
}

// FillBaselines replaces undefined baselines with fill in place and reports
// which positions were filled. A nil fill leaves them undefined.
func FillBaselines(baselines []*float64, fill *float64) []bool {
	filled := make([]bool, len(baselines))
	if fill == nil {
		return filled
	}
	for i, b := range baselines {
		if b == nil {
			v := *fill
			baselines[i] = &v
			filled[i] = true
		}
	}
	return filled
}

// Classify compares a duration with its baseline. Ties count as within.
func Classify(duration, baseline *float64) Classification {
	if duration == nil || baseline == nil {
		return InsufficientData
	}
	if *duration <= *baseline {
		return WithinBaseline
	}
	return ExceedsBaseline
}

func meanOf(values []*float64) *float64 {
	var defined []float64
	for _, v := range values {
		if v != nil {
			defined = append(defined, *v)
		}
	}
	if len(defined) == 0 {
		return nil
	}
	mean := CalculateMean(defined)
	return &mean
}
