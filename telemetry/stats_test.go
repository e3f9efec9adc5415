package telemetry

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	values := []float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}
	d := Describe(values)

	if math.Abs(d.Mean-5.5) > 1e-9 {
		t.Errorf("mean = %v, want 5.5", d.Mean)
	}
	if math.Abs(d.Std-3.0277) > 0.001 {
		t.Errorf("std = %v, want ~3.0277", d.Std)
	}
	if math.Abs(d.P50-5.5) > 1e-9 || math.Abs(d.P90-9.1) > 1e-9 || d.Max != 10 {
		t.Errorf("p50/p90/max = %v/%v/%v", d.P50, d.P90, d.Max)
	}
	if values[0] != 10 {
		t.Error("Describe must not reorder its input")
	}
}

func TestDescribeSmall(t *testing.T) {
	if d := Describe(nil); d != (Distribution{}) {
		t.Errorf("Describe(nil) = %+v, want zero", d)
	}
	d := Describe([]float64{0.4})
	if d.Mean != 0.4 || d.Std != 0 || d.Max != 0.4 {
		t.Errorf("Describe single = %+v", d)
	}
}
