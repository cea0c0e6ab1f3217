package stats

import (
	"testing"
	"time"

	"otc-analytics/internal/orders"
)

var base = time.Date(2025, 6, 19, 8, 0, 0, 0, time.UTC)

// order builds an order whose created-to-shipment stage lasts the given hours.
// A nil value leaves the shipment timestamp absent.
func order(hours *float64) *orders.Order {
	o := &orders.Order{}
	start := base
	o.Timestamps[orders.OrderCreated] = &start
	if hours != nil {
		end := base.Add(time.Duration(*hours * float64(time.Hour)))
		o.Timestamps[orders.ShipmentAssociated] = &end
	}
	return o
}

func h(v float64) *float64 { return &v }

func equalPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func fmtPtr(v *float64) any {
	if v == nil {
		return "undefined"
	}
	return *v
}

func TestDuration(t *testing.T) {
	later := base.Add(90 * time.Minute)
	earlier := base.Add(-time.Hour)

	tests := []struct {
		name   string
		start  *time.Time
		end    *time.Time
		want   *float64
		reason InsufficientReason
	}{
		{"Positive", &base, &later, h(1.5), ReasonNone},
		{"Zero", &base, &base, h(0), ReasonNone},
		{"Negative", &base, &earlier, nil, ReasonNegativeDuration},
		{"MissingStart", nil, &later, nil, ReasonMissingStart},
		{"MissingEnd", &base, nil, nil, ReasonMissingEnd},
		{"MissingBoth", nil, nil, nil, ReasonMissingStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := Duration(tt.start, tt.end)
			if !equalPtr(got, tt.want) || reason != tt.reason {
				t.Errorf("Duration() = %v, %q; want %v, %q", fmtPtr(got), reason, fmtPtr(tt.want), tt.reason)
			}
		})
	}
}

func TestRollingBaselines(t *testing.T) {
	tests := []struct {
		name       string
		durations  []*float64
		window     int
		minPeriods MinPeriods
		want       []*float64
	}{
		{
			name:       "SkipsUndefined",
			durations:  []*float64{h(2), h(4), nil},
			window:     3,
			minPeriods: AtLeastOne,
			want:       []*float64{nil, h(2), h(3)},
		},
		{
			name:       "SlidesWindow",
			durations:  []*float64{h(1), h(2), h(3), h(10), h(5)},
			window:     3,
			minPeriods: AtLeastOne,
			want:       []*float64{nil, h(1), h(1.5), h(2), h(5)},
		},
		{
			name:       "FullWindowRequired",
			durations:  []*float64{h(1), h(2), nil, h(3), h(4), h(5)},
			window:     3,
			minPeriods: FullWindow,
			want:       []*float64{nil, nil, nil, nil, h(2), h(3)},
		},
		{
			name:       "AllUndefined",
			durations:  []*float64{nil, nil},
			window:     3,
			minPeriods: AtLeastOne,
			want:       []*float64{nil, nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RollingBaselines(tt.durations, tt.window, tt.minPeriods)
			if len(got) != len(tt.want) {
				t.Fatalf("RollingBaselines() len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !equalPtr(got[i], tt.want[i]) {
					t.Errorf("RollingBaselines()[%d] = %v, want %v", i, fmtPtr(got[i]), fmtPtr(tt.want[i]))
				}
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		duration *float64
		baseline *float64
		want     Classification
	}{
		{"Below", h(1), h(2), WithinBaseline},
		{"Tie", h(2), h(2), WithinBaseline},
		{"Above", h(3), h(2), ExceedsBaseline},
		{"NoDuration", nil, h(2), InsufficientData},
		{"NoBaseline", h(1), nil, InsufficientData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.duration, tt.baseline); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Three orders lasting 2h, 4h and an absent span: the third baseline is the
// mean of the first two and the third order itself has insufficient data.
func TestAnalyzeStageSkipsAbsentDuration(t *testing.T) {
	list := []*orders.Order{order(h(2)), order(h(4)), order(nil)}

	sa := NewEngine().AnalyzeStage(list, orders.CreatedToShipment)

	third := sa.Results[2]
	if !equalPtr(third.Baseline, h(3)) {
		t.Errorf("baseline[2] = %v, want 3", fmtPtr(third.Baseline))
	}
	if third.Classification != InsufficientData || third.Reason != ReasonMissingEnd {
		t.Errorf("result[2] = %v/%q, want insufficient_data/missing_end", third.Classification, third.Reason)
	}

	// The first order has no predecessor, so the batch mean fills in.
	first := sa.Results[0]
	if !first.BaselineFilled || !equalPtr(first.Baseline, h(3)) {
		t.Errorf("baseline[0] = %v filled=%v, want 3 filled", fmtPtr(first.Baseline), first.BaselineFilled)
	}
	if first.Classification != WithinBaseline {
		t.Errorf("result[0] = %v, want within_baseline", first.Classification)
	}
	if second := sa.Results[1]; second.Classification != ExceedsBaseline || !equalPtr(second.Baseline, h(2)) {
		t.Errorf("result[1] = %v with baseline %v, want exceeds_baseline over 2", second.Classification, fmtPtr(second.Baseline))
	}
	if !equalPtr(sa.BatchMean, h(3)) || !equalPtr(sa.Median, h(3)) || sa.Valid != 2 {
		t.Errorf("batch mean/median/valid = %v/%v/%d", fmtPtr(sa.BatchMean), fmtPtr(sa.Median), sa.Valid)
	}
}

func TestAnalyzeStageNegativeDurationExcluded(t *testing.T) {
	list := []*orders.Order{order(h(-1)), order(h(2)), order(h(5))}

	sa := NewEngine().AnalyzeStage(list, orders.CreatedToShipment)

	neg := sa.Results[0]
	if neg.Duration != nil || neg.Classification != InsufficientData || neg.Reason != ReasonNegativeDuration {
		t.Errorf("result[0] = %+v, want undefined negative duration", neg)
	}
	// The negative span never reaches the window.
	if !equalPtr(sa.Results[2].Baseline, h(2)) {
		t.Errorf("baseline[2] = %v, want 2", fmtPtr(sa.Results[2].Baseline))
	}
	if !equalPtr(sa.BatchMean, h(3.5)) {
		t.Errorf("batch mean = %v, want 3.5", fmtPtr(sa.BatchMean))
	}
}

func TestAnalyzeStageNoValidDurations(t *testing.T) {
	list := []*orders.Order{order(nil), order(h(-2))}

	sa := NewEngine().AnalyzeStage(list, orders.CreatedToShipment)

	for i, r := range sa.Results {
		if r.Baseline != nil || r.Classification != InsufficientData {
			t.Errorf("result[%d] = %+v, want undefined baseline and insufficient data", i, r)
		}
	}
	if sa.BatchMean != nil || sa.Median != nil {
		t.Error("batch statistics should be undefined")
	}
	if sa.Counts[InsufficientData] != 2 {
		t.Errorf("insufficient count = %d, want 2", sa.Counts[InsufficientData])
	}
}

func TestAnalyzeCoverage(t *testing.T) {
	list := []*orders.Order{order(h(1)), order(nil), order(h(-3)), order(h(7)), order(h(0.5)), {}}

	a := NewEngine().Analyze(list)

	for _, s := range orders.Stages {
		sa := a.Stages[s]
		if sa.Stage != s {
			t.Errorf("stage[%d] = %v", s, sa.Stage)
		}
		if len(sa.Results) != len(list) {
			t.Fatalf("%v: %d results, want %d", s, len(sa.Results), len(list))
		}
		total := 0
		for _, c := range Classifications {
			total += sa.Counts[c]
		}
		if total != len(list) {
			t.Errorf("%v: counts sum to %d, want %d", s, total, len(list))
		}
		for i, r := range sa.Results {
			if r.Duration != nil && *r.Duration < 0 {
				t.Errorf("%v[%d]: negative duration %v", s, i, *r.Duration)
			}
			insufficient := r.Duration == nil || r.Baseline == nil
			if insufficient != (r.Classification == InsufficientData) {
				t.Errorf("%v[%d]: classification %v with duration %v baseline %v", s, i, r.Classification, fmtPtr(r.Duration), fmtPtr(r.Baseline))
			}
		}
	}
}

func TestAnalyzeStageImputation(t *testing.T) {
	list := []*orders.Order{order(h(2)), order(h(2)), order(nil)}

	plain := NewEngine().AnalyzeStage(list, orders.CreatedToShipment)
	if plain.Results[2].Classification != InsufficientData {
		t.Fatalf("without imputation result[2] = %v", plain.Results[2].Classification)
	}

	e := NewEngine()
	e.Impute = ImputePolicy{Enabled: true, Reference: base.Add(10 * time.Hour)}
	sa := e.AnalyzeStage(list, orders.CreatedToShipment)

	r := sa.Results[2]
	if !r.Imputed || !equalPtr(r.Duration, h(10)) {
		t.Errorf("result[2] = %+v, want imputed 10h", r)
	}
	if r.Classification != ExceedsBaseline {
		t.Errorf("result[2] = %v, want exceeds_baseline", r.Classification)
	}
	if !equalPtr(sa.BatchMean, h(2)) || sa.Valid != 2 {
		t.Errorf("imputed duration leaked into batch statistics: mean %v valid %d", fmtPtr(sa.BatchMean), sa.Valid)
	}

	// A reference before the start cannot produce a span.
	e.Impute.Reference = base.Add(-time.Hour)
	if got := e.AnalyzeStage(list, orders.CreatedToShipment).Results[2]; got.Imputed || got.Reason != ReasonMissingEnd {
		t.Errorf("result[2] = %+v, want missing_end without imputation", got)
	}
}

func TestAnalyzeIsRepeatable(t *testing.T) {
	list := []*orders.Order{order(h(3)), order(h(1)), order(nil), order(h(8))}
	e := NewEngine()

	first := e.Analyze(list)
	second := e.Analyze(list)

	for _, s := range orders.Stages {
		for i := range list {
			a, b := first.Stages[s].Results[i], second.Stages[s].Results[i]
			if a.Classification != b.Classification || !equalPtr(a.Duration, b.Duration) || !equalPtr(a.Baseline, b.Baseline) {
				t.Errorf("%v[%d]: %+v != %+v", s, i, a, b)
			}
		}
	}
}

func TestParseMinPeriods(t *testing.T) {
	if got, err := ParseMinPeriods(""); err != nil || got != AtLeastOne {
		t.Errorf("ParseMinPeriods(\"\") = %v, %v", got, err)
	}
	if got, err := ParseMinPeriods("full"); err != nil || got != FullWindow {
		t.Errorf("ParseMinPeriods(full) = %v, %v", got, err)
	}
	if _, err := ParseMinPeriods("two"); err == nil {
		t.Error("ParseMinPeriods(two) should fail")
	}
}
