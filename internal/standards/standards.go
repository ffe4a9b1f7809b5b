// Package standards finds internal and external standards, computes their
// statistics over all experiments and orders them by reliability.
package standards

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/524D/lipidnorm/internal/outlier"
)

// Role tells whether an analyte is a standard, and of which kind
type Role int

const (
	RoleNone Role = iota
	RoleInternal
	RoleExternal
)

func (r Role) String() string {
	switch r {
	case RoleInternal:
		return `IS`
	case RoleExternal:
		return `ES`
	}
	return `none`
}

// Defaults of the ranking parameters
const (
	DefaultFoundThreshold = float64(0.9)
	DefaultCVWindow       = float64(0.05)
)

// Params controls statistics and ranking
type Params struct {
	Tolerance      float64 // outlier tolerance factor
	FoundThreshold float64 // fraction of the most often found count to be "often found"
	CVWindow       float64 // CV distance that ties standards together
}

// DefaultParams returns the documented default parameters
func DefaultParams() Params {
	return Params{
		Tolerance:      outlier.DefaultTolerance,
		FoundThreshold: DefaultFoundThreshold,
		CVWindow:       DefaultCVWindow,
	}
}

// Classify returns the role of an analyte by its name prefix. An empty
// prefix never matches.
func Classify(name, isPrefix, esPrefix string) Role {
	if isPrefix != `` && strings.HasPrefix(name, isPrefix) {
		return RoleInternal
	}
	if esPrefix != `` && strings.HasPrefix(name, esPrefix) {
		return RoleExternal
	}
	return RoleNone
}

// Statistics of one standard over all experiments. Found counts the
// usable areas before outlier removal, the other values are computed
// after outlier removal.
type Statistics struct {
	Name   string
	Found  int
	Depth  int // isotope depth common to all experiments that found it
	Mean   float64
	Median float64
	StdDev float64
	CV     float64
	Bounds outlier.Range
}

// Compute calculates the statistics of a standard from its area in every
// experiment. Missing areas are NaN or <= 0.
func Compute(name string, areas []float64, t float64) Statistics {
	s := Statistics{Name: name}
	usable := outlier.Positive(areas)
	s.Found = len(usable)
	s.Bounds = outlier.Bounds(usable, t)
	kept := outlier.Filter(usable, t)
	if len(kept) == 0 {
		s.CV = math.Inf(1)
		return s
	}
	s.Mean = stat.Mean(kept, nil)
	s.Median = outlier.Median(kept)
	if len(kept) > 1 {
		s.StdDev = stat.StdDev(kept, nil)
	}
	if s.Mean > 0 {
		s.CV = s.StdDev / s.Mean
	}
	return s
}

// Rank orders standards from most to least reliable and returns indices
// into stats.
//
// Standards found in at least round(FoundThreshold * most found) experiments
// are sorted by ascending CV. Starting at each group head, all following
// standards with a CV within CVWindow of the head are grouped and the group
// is sorted by descending median. Rarely found standards follow, by
// descending found count.
func Rank(stats []Statistics, p Params) []int {
	if len(stats) == 0 {
		return nil
	}
	mostOftenFound := 0
	for _, s := range stats {
		if s.Found > mostOftenFound {
			mostOftenFound = s.Found
		}
	}
	threshold := int(math.Round(p.FoundThreshold * float64(mostOftenFound)))

	var often, rarely []int
	for i, s := range stats {
		if s.Found >= threshold && s.Found > 0 {
			often = append(often, i)
		} else {
			rarely = append(rarely, i)
		}
	}

	sort.SliceStable(often, func(a, b int) bool {
		sa, sb := stats[often[a]], stats[often[b]]
		if sa.CV != sb.CV {
			return sa.CV < sb.CV
		}
		return sa.Name < sb.Name
	})

	order := make([]int, 0, len(stats))
	for i := 0; i < len(often); {
		head := stats[often[i]].CV
		j := i + 1
		for j < len(often) && stats[often[j]].CV <= head+p.CVWindow {
			j++
		}
		group := append([]int(nil), often[i:j]...)
		sort.SliceStable(group, func(a, b int) bool {
			ma, mb := stats[group[a]].Median, stats[group[b]].Median
			if ma != mb {
				return ma > mb
			}
			return stats[group[a]].Name < stats[group[b]].Name
		})
		order = append(order, group...)
		i = j
	}

	sort.SliceStable(rarely, func(a, b int) bool {
		sa, sb := stats[rarely[a]], stats[rarely[b]]
		if sa.Found != sb.Found {
			return sa.Found > sb.Found
		}
		return sa.Name < sb.Name
	})
	return append(order, rarely...)
}

// CorrectionFactors turns the amounts (volume * concentration) of a
// standard in each experiment into loading correction factors relative to
// the median amount. Experiments without a declared amount get 1.
func CorrectionFactors(amounts []float64) []float64 {
	f := make([]float64, len(amounts))
	med := outlier.Median(amounts)
	for i, a := range amounts {
		if med > 0 && a > 0 && !math.IsInf(a, 0) {
			f[i] = med / a
		} else {
			f[i] = 1
		}
	}
	return f
}

// MedianAmount is the cross experiment median amount of a standard, the
// amount that corrected standard areas correspond to
func MedianAmount(amounts []float64) float64 {
	return outlier.Median(amounts)
}

// Scale multiplies the areas with the factors element wise, into a new slice
func Scale(areas, factors []float64) []float64 {
	out := append([]float64(nil), areas...)
	floats.Mul(out, factors)
	return out
}
