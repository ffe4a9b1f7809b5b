package outlier

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestQuartiles(t *testing.T) {
	tests := []struct {
		name                string
		values              []float64
		median, lower, upper float64
	}{
		{"empty", nil, 0, 0, 0},
		{"single", []float64{7}, 7, 7, 7},
		{"pair", []float64{4, 2}, 3, 2, 4},
		{"three", []float64{1000, 100, 110}, 110, 110, 110},
		{"five", []float64{5, 1, 4, 2, 3}, 3, 2, 4},
		{"six", []float64{6, 5, 4, 3, 2, 1}, 3.5, 2, 5},
		{"seven", []float64{1, 2, 3, 4, 5, 6, 7}, 4, 2, 6},
		{"eight", []float64{1, 2, 3, 4, 5, 6, 7, 8}, 4.5, 2.5, 6.5},
		{"invalid dropped", []float64{-1, 0, math.NaN(), math.Inf(1), 3}, 3, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, l, u := Quartiles(tt.values)
			got := []float64{m, l, u}
			want := []float64{tt.median, tt.lower, tt.upper}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Quartiles(%v) mismatch (-want +got):\n%s", tt.values, diff)
			}
		})
	}
}

func TestBounds(t *testing.T) {
	r := Bounds([]float64{100, 110, 1000}, DefaultTolerance)
	if r.Lower != 55 || r.Upper != 220 {
		t.Errorf("Bounds: got %+v, expected [55, 220]", r)
	}
	if r.Contains(1000) {
		t.Errorf("1000 should be an outlier")
	}
	if !r.Contains(100) || !r.Contains(110) {
		t.Errorf("100 and 110 should not be outliers")
	}
	// Limits themselves are accepted
	if !r.Contains(55) || !r.Contains(220) {
		t.Errorf("limits should be inside the range")
	}

	empty := Bounds(nil, DefaultTolerance)
	if empty.Contains(1) {
		t.Errorf("empty bounds should not contain anything")
	}
}

func TestFilterAndRobustMedian(t *testing.T) {
	got := Filter([]float64{100, 1000, 0, 110}, DefaultTolerance)
	if diff := cmp.Diff([]float64{100, 110}, got); diff != "" {
		t.Errorf("Filter mismatch (-want +got):\n%s", diff)
	}
	if m := RobustMedian([]float64{100, 110, 1000}, DefaultTolerance); m != 105 {
		t.Errorf("RobustMedian: got %f, expected 105", m)
	}
	if m := Median(nil); m != 0 {
		t.Errorf("Median of nothing: got %f, expected 0", m)
	}
}

func TestRatioToMedianSymmetry(t *testing.T) {
	opt := cmpopts.EquateApprox(1e-12, 0)
	medians := []float64{1, 3.5, 105, 1e6}
	values := []float64{0.01, 0.5, 1, 2, 77, 105, 2e7}
	for _, m := range medians {
		for _, v := range values {
			a := RatioToMedian(v, m)
			b := RatioToMedian(m*m/v, m)
			if !cmp.Equal(a, b, opt) {
				t.Errorf("RatioToMedian(%g,%g)=%g, mirror gives %g", v, m, a, b)
			}
			if a < 1 {
				t.Errorf("RatioToMedian(%g,%g)=%g < 1", v, m, a)
			}
		}
	}
	if RatioToMedian(50, 100) != 2 || RatioToMedian(200, 100) != 2 {
		t.Errorf("half and double the median should both score 2")
	}
	if !math.IsInf(RatioToMedian(0, 100), 1) || !math.IsInf(RatioToMedian(1, 0), 1) {
		t.Errorf("degenerate input should score +Inf")
	}
}

func TestClosest(t *testing.T) {
	if i := Closest([]float64{100, 110, 1000}, 105); i != 1 {
		t.Errorf("Closest: got %d, expected 1", i)
	}
	// First seen wins ties
	if i := Closest([]float64{50, 200}, 100); i != 0 {
		t.Errorf("Closest tie: got %d, expected 0", i)
	}
	if i := Closest([]float64{math.NaN(), 0}, 100); i != -1 {
		t.Errorf("Closest without usable values: got %d, expected -1", i)
	}
}
