package stats

import (
	"testing"
)

func TestCalculateMedianContinuous(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"Empty", []float64{}, 0},
		{"SingleItem", []float64{5.5}, 5.5},
		{"OddCount", []float64{1.1, 3.3, 2.2, 4.4, 5.5}, 3.3},
		{"EvenCount", []float64{1.1, 2.2, 3.3, 4.4}, 2.75},
		{"Unsorted", []float64{10.5, 2.5, 8.5, 4.5, 6.5}, 6.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateMedianContinuous(tt.values); got != tt.expected {
				t.Errorf("CalculateMedianContinuous() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCalculateMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"Empty", nil, 0},
		{"SingleItem", []float64{4}, 4},
		{"Hours", []float64{2, 1, 4, 1}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateMean(tt.values); got != tt.expected {
				t.Errorf("CalculateMean() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		part, total int
		expected    float64
	}{
		{0, 0, 0},
		{1, 4, 25},
		{3, 3, 100},
	}

	for _, tt := range tests {
		if got := Percentage(tt.part, tt.total); got != tt.expected {
			t.Errorf("Percentage(%d, %d) = %v, want %v", tt.part, tt.total, got, tt.expected)
		}
	}
}
