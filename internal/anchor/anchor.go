// Package anchor selects the reference experiment of each standard and
// derives a reference factor for every experiment, propagating through a
// partner experiment where the anchor cannot be compared directly.
package anchor

import (
	"math"

	"github.com/524D/lipidnorm/internal/logger"
	"github.com/524D/lipidnorm/internal/outlier"
	"github.com/524D/lipidnorm/internal/standards"
)

// DefaultApplicableFraction is the fraction of the highest number of
// applicable standards an experiment needs to be an anchor candidate
const DefaultApplicableFraction = float64(0.8)

// Mode selects how the reference factor of an experiment is derived
type Mode int

const (
	// ModeBest uses the most reliable standard directly where possible
	ModeBest Mode = iota
	// ModeMedian uses the median of the ratios of all shared standards
	ModeMedian
)

// Params of anchor selection and propagation
type Params struct {
	Tolerance          float64
	ApplicableFraction float64
}

// DefaultParams returns the documented defaults
func DefaultParams() Params {
	return Params{
		Tolerance:          outlier.DefaultTolerance,
		ApplicableFraction: DefaultApplicableFraction,
	}
}

// Table holds the (corrected) areas of the standards of one class and role.
// Areas[s][e] is NaN or <= 0 when standard s was not found in experiment e.
// Order is the reliability order of the standards.
type Table struct {
	Stats []standards.Statistics
	Areas [][]float64
	Order []int
}

// NumExperiments returns the number of experiments in the table
func (t *Table) NumExperiments() int {
	if len(t.Areas) == 0 {
		return 0
	}
	return len(t.Areas[0])
}

func usable(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Applicability returns app[s][e]: whether the area of standard s in
// experiment e lies within the outlier limits of s. An experiment that has
// no applicable standard at all gets every standard it found marked
// applicable, so that it is never excluded from all comparisons.
func Applicability(t *Table) [][]bool {
	nExp := t.NumExperiments()
	app := make([][]bool, len(t.Areas))
	for s := range t.Areas {
		app[s] = make([]bool, nExp)
		for e, a := range t.Areas[s] {
			app[s][e] = usable(a) && t.Stats[s].Bounds.Contains(a)
		}
	}
	for e := 0; e < nExp; e++ {
		found := false
		for s := range app {
			if app[s][e] {
				found = true
				break
			}
		}
		if !found {
			for s := range app {
				app[s][e] = usable(t.Areas[s][e])
			}
		}
	}
	return app
}

// SelectAnchor returns the anchor experiment of standard s: among the
// experiments where s is applicable and which have at least fraction times
// the highest count of applicable standards, the one whose area is closest
// to the median of s. It returns -1 if s is applicable nowhere.
func SelectAnchor(t *Table, app [][]bool, s int, fraction float64) int {
	nExp := t.NumExperiments()
	counts := make([]int, nExp)
	maxCount := 0
	for e := 0; e < nExp; e++ {
		for k := range app {
			if app[k][e] {
				counts[e]++
			}
		}
		if counts[e] > maxCount {
			maxCount = counts[e]
		}
	}
	median := t.Stats[s].Median
	if median <= 0 {
		median = outlier.Median(t.Areas[s])
	}
	candidates := make([]float64, nExp)
	for e := 0; e < nExp; e++ {
		candidates[e] = math.NaN()
		if app[s][e] && float64(counts[e]) >= fraction*float64(maxCount) {
			candidates[e] = t.Areas[s][e]
		}
	}
	return outlier.Closest(candidates, median)
}

// Graph derives reference factors of all experiments relative to the
// primary anchor, the anchor of the most reliable standard
type Graph struct {
	t       *Table
	p       Params
	app     [][]bool
	anchors []int
	primary int
	best    int
	sf      map[[2]int]float64
	log     *logger.Logger
}

// NewGraph computes applicability and anchors for the table
func NewGraph(t *Table, p Params, log *logger.Logger) *Graph {
	g := &Graph{
		t:       t,
		p:       p,
		app:     Applicability(t),
		anchors: make([]int, len(t.Areas)),
		primary: -1,
		best:    -1,
		sf:      make(map[[2]int]float64),
		log:     logger.OrNop(log),
	}
	for s := range t.Areas {
		g.anchors[s] = SelectAnchor(t, g.app, s, p.ApplicableFraction)
	}
	for _, s := range t.Order {
		if g.anchors[s] >= 0 {
			g.primary = g.anchors[s]
			g.best = s
			break
		}
	}
	return g
}

// Anchor returns the primary anchor experiment, or -1 if no standard is
// applicable anywhere
func (g *Graph) Anchor() int { return g.primary }

// AnchorOf returns the anchor experiment of standard s
func (g *Graph) AnchorOf(s int) int { return g.anchors[s] }

// Applicable reports whether standard s is applicable in experiment e
func (g *Graph) Applicable(s, e int) bool { return g.app[s][e] }

// Best returns the most reliable standard that has an anchor, or -1.
// Its anchor is the primary anchor.
func (g *Graph) Best() int { return g.best }

// ScaleFactor is the outlier robust median of the area ratios a/b over all
// standards applicable in both experiments. It is NaN if the experiments
// share no applicable standard, and 1 for a == b.
func (g *Graph) ScaleFactor(a, b int) float64 {
	if a == b {
		return 1
	}
	key := [2]int{a, b}
	if f, ok := g.sf[key]; ok {
		return f
	}
	var ratios []float64
	for s := range g.t.Areas {
		if g.app[s][a] && g.app[s][b] {
			va, vb := g.t.Areas[s][a], g.t.Areas[s][b]
			if usable(va) && usable(vb) {
				ratios = append(ratios, va/vb)
			}
		}
	}
	f := math.NaN()
	if len(ratios) > 0 {
		f = outlier.RobustMedian(ratios, g.p.Tolerance)
		if f <= 0 {
			f = math.NaN()
		}
	}
	g.sf[key] = f
	return f
}

// Partner searches, in reliability order of the standards, a partner
// experiment p through which e can be compared with the primary anchor.
// p is the anchor itself when e and the anchor share an applicable
// standard. Only one intermediate hop is tried.
func (g *Graph) Partner(e int) (p int, ok bool) {
	anchor := g.primary
	if anchor < 0 {
		return -1, false
	}
	if e == anchor {
		return anchor, true
	}
	nExp := g.t.NumExperiments()
	for _, s := range g.t.Order {
		if !g.app[s][e] {
			continue
		}
		if g.app[s][anchor] && !math.IsNaN(g.ScaleFactor(e, anchor)) {
			return anchor, true
		}
		for p := 0; p < nExp; p++ {
			if p == e || p == anchor || !g.app[s][p] {
				continue
			}
			if !math.IsNaN(g.ScaleFactor(e, p)) && !math.IsNaN(g.ScaleFactor(p, anchor)) {
				return p, true
			}
		}
	}
	return -1, false
}

// Factor returns the reference value of experiment e relative to the
// reference value of the primary anchor, i.e. ref(e) / ref(anchor).
// It is NaN if e cannot be compared with the anchor.
func (g *Graph) Factor(e int, mode Mode) float64 {
	anchor := g.primary
	if anchor < 0 {
		return math.NaN()
	}
	if e == anchor {
		return 1
	}
	if mode == ModeBest {
		best := g.Best()
		if best >= 0 && g.app[best][e] && g.app[best][anchor] {
			return g.t.Areas[best][e] / g.t.Areas[best][anchor]
		}
	}
	p, ok := g.Partner(e)
	if !ok {
		g.log.Warn("experiment cannot be compared with any partner",
			"experiment", e, "anchor", anchor)
		return math.NaN()
	}
	if p == anchor {
		return g.ScaleFactor(e, anchor)
	}
	return g.ScaleFactor(e, p) * g.ScaleFactor(p, anchor)
}

// Reference returns the reference value of every experiment: the value of
// the primary anchor scaled by the experiment's factor. The anchor value
// is the area of the most reliable standard in the anchor experiment.
func (g *Graph) Reference(mode Mode) []float64 {
	nExp := g.t.NumExperiments()
	ref := make([]float64, nExp)
	anchorValue := math.NaN()
	if best := g.Best(); best >= 0 && g.primary >= 0 {
		anchorValue = g.t.Areas[best][g.primary]
	}
	for e := 0; e < nExp; e++ {
		ref[e] = anchorValue * g.Factor(e, mode)
	}
	return ref
}
