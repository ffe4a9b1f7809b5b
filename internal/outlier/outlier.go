// Package outlier computes median/quartile based outlier limits and
// ratio-to-median scores. All functions are pure, callers may invoke them
// concurrently for different classes.
package outlier

import (
	"math"
	"sort"
)

// DefaultTolerance is the factor applied to the quartile proxies to obtain
// the outlier limits
const DefaultTolerance = float64(2.0)

// Range is an inclusive [Lower, Upper] interval of accepted values
type Range struct {
	Lower float64
	Upper float64
}

// Contains reports whether v lies within the range. Values strictly outside
// the range are outliers.
func (r Range) Contains(v float64) bool {
	return v >= r.Lower && v <= r.Upper
}

// Positive returns the values that are > 0 and finite, in their original order
func Positive(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if valid(v) {
			out = append(out, v)
		}
	}
	return out
}

func valid(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// sortedPositive returns a sorted copy of the usable values
func sortedPositive(values []float64) []float64 {
	s := Positive(values)
	sort.Float64s(s)
	return s
}

// Median returns the median of the usable values, or 0 if there are none
func Median(values []float64) float64 {
	return medianSorted(sortedPositive(values))
}

func medianSorted(s []float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	return (s[(n-1)/2] + s[n/2]) / 2
}

// Quartiles returns the median and the lower/upper quartile proxies of the
// usable values.
//
// For 6 or more values the proxies are the medians of the lower and upper
// half (odd counts rounded down). For 3 to 5 values the value one position
// from each extreme is used, for 1 or 2 values the extremes themselves.
func Quartiles(values []float64) (median, lower, upper float64) {
	s := sortedPositive(values)
	n := len(s)
	if n == 0 {
		return 0, 0, 0
	}
	median = medianSorted(s)
	var q1i1, q1i2 int
	switch {
	case n < 3:
		q1i1, q1i2 = 0, 0
	case n < 6:
		q1i1, q1i2 = 1, 1
	default:
		nq1 := n / 2        // count of samples that Q1 is based on
		q1i1 = (nq1 - 1) / 2 // index 1 of the median of the lower half
		q1i2 = nq1 / 2       // index 2, equal to index 1 for odd half sizes
	}
	lower = (s[q1i1] + s[q1i2]) / 2
	upper = (s[n-q1i1-1] + s[n-q1i2-1]) / 2
	return median, lower, upper
}

// Bounds returns the outlier limits of the values for tolerance t.
// With no usable values the range is empty (Lower > Upper).
func Bounds(values []float64, t float64) Range {
	_, lower, upper := Quartiles(values)
	if lower == 0 && upper == 0 {
		return Range{Lower: math.Inf(1), Upper: math.Inf(-1)}
	}
	if t <= 0 {
		t = DefaultTolerance
	}
	return Range{Lower: lower / t, Upper: upper * t}
}

// Filter returns the usable values that are not outliers, in their
// original order
func Filter(values []float64, t float64) []float64 {
	r := Bounds(values, t)
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if valid(v) && r.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// RobustMedian is the median of the values after outlier removal
func RobustMedian(values []float64, t float64) float64 {
	return Median(Filter(values, t))
}

// RatioToMedian scores the distance of v from median m symmetrically:
// half and double the median both score 2. Non-usable input scores +Inf.
func RatioToMedian(v, m float64) float64 {
	if !valid(v) || !valid(m) {
		return math.Inf(1)
	}
	ratio := v / m
	if ratio < 1 {
		ratio = 1 / ratio
	}
	return ratio
}

// Closest returns the index of the value with the smallest RatioToMedian
// score; the first one wins ties. It returns -1 if no value is usable.
func Closest(values []float64, m float64) int {
	best := -1
	bestScore := math.Inf(1)
	for i, v := range values {
		score := RatioToMedian(v, m)
		if score < bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}
