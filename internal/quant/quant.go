// Package quant holds the per-experiment quantification results that are
// the input of the normalization engine.
package quant

import (
	"math"
	"sort"
)

// ModResult holds the areas found for one chemical modification (adduct)
// of an analyte. Index 0 of Areas is the monoisotopic peak.
type ModResult struct {
	Name      string
	Areas     []float64
	MultiPeak []bool // more than one peak contributed to the isotope area
}

// Observation is one analyte as reported by a single experiment
type Observation struct {
	Name        string
	DoubleBonds int
	Mass        float64 // neutral mass
	Formula     string
	RT          string // retention time, empty if not available
	Mods        []ModResult
	Combined    bool // merged from more than one raw hit
}

// Experiment is the result set of one experiment file
type Experiment struct {
	Name       string
	ClassOrder []string
	Classes    map[string][]Observation
}

// Depth returns the number of isotopes available in the observation
func (o *Observation) Depth() int {
	d := 0
	for _, m := range o.Mods {
		if len(m.Areas) > d {
			d = len(m.Areas)
		}
	}
	return d
}

// IsotopeArea returns the summed area over all modifications of isotope i
func (o *Observation) IsotopeArea(i int) float64 {
	a := float64(0)
	for _, m := range o.Mods {
		if i < len(m.Areas) {
			a += m.Areas[i]
		}
	}
	return a
}

// Area returns the summed area of the first n isotopes over all
// modifications. It returns NaN if fewer than n isotopes were measured.
func (o *Observation) Area(n int) float64 {
	if n < 1 {
		n = 1
	}
	if o.Depth() < n {
		return math.NaN()
	}
	a := float64(0)
	for i := 0; i < n; i++ {
		a += o.IsotopeArea(i)
	}
	return a
}

// MultiPeak reports whether any of the first n isotopes of any modification
// was built from more than one peak
func (o *Observation) MultiPeak(n int) bool {
	for _, m := range o.Mods {
		for i := 0; i < n && i < len(m.MultiPeak); i++ {
			if m.MultiPeak[i] {
				return true
			}
		}
	}
	return false
}

// IsNull reports whether the observation carries no positive area at all
func (o *Observation) IsNull() bool {
	for _, m := range o.Mods {
		for _, a := range m.Areas {
			if a > 0 {
				return false
			}
		}
	}
	return true
}

// ModNames returns the sorted names of the modifications with a positive
// monoisotopic area
func (o *Observation) ModNames() []string {
	names := make([]string, 0, len(o.Mods))
	for _, m := range o.Mods {
		if len(m.Areas) > 0 && m.Areas[0] > 0 {
			names = append(names, m.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy, so that merging does not modify the input
func (o *Observation) Clone() *Observation {
	c := *o
	c.Mods = make([]ModResult, len(o.Mods))
	for i, m := range o.Mods {
		c.Mods[i] = ModResult{
			Name:      m.Name,
			Areas:     append([]float64(nil), m.Areas...),
			MultiPeak: append([]bool(nil), m.MultiPeak...),
		}
	}
	return &c
}

// Merge adds the isotope areas of other to o, per modification. Multi-peak
// flags are or-ed and o is marked as combined.
func (o *Observation) Merge(other *Observation) {
	for _, om := range other.Mods {
		k := -1
		for i := range o.Mods {
			if o.Mods[i].Name == om.Name {
				k = i
				break
			}
		}
		if k < 0 {
			o.Mods = append(o.Mods, ModResult{Name: om.Name})
			k = len(o.Mods) - 1
		}
		m := &o.Mods[k]
		for len(m.Areas) < len(om.Areas) {
			m.Areas = append(m.Areas, 0)
		}
		for len(m.MultiPeak) < len(om.MultiPeak) {
			m.MultiPeak = append(m.MultiPeak, false)
		}
		for i, a := range om.Areas {
			m.Areas[i] += a
		}
		for i, mp := range om.MultiPeak {
			m.MultiPeak[i] = m.MultiPeak[i] || mp
		}
	}
	o.Combined = true
}
