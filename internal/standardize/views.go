package standardize

import (
	"errors"
	"math"
	"strings"
	"sync"

	"github.com/524D/lipidnorm/internal/standards"
)

// View of a standardized area relative to an aggregate
type View int

const (
	ViewArea View = iota
	ViewRelativeToHighest
	ViewRelativeToTotal
	ViewRelativeToGrandTotal
)

func (v View) String() string {
	switch v {
	case ViewRelativeToHighest:
		return `relToHighest`
	case ViewRelativeToTotal:
		return `relToTotal`
	case ViewRelativeToGrandTotal:
		return `relToGrandTotal`
	}
	return `area`
}

type aggKey struct {
	regime   Regime
	exp      int
	isotopes int
}

type aggregate struct {
	highest float64
	total   float64
}

// aggregate sums over the analytes of the class; standards are excluded
func (c *ClassTable) aggregate(e, n int, r Regime) aggregate {
	key := aggKey{regime: r, exp: e, isotopes: n}
	c.mu.Lock()
	a, ok := c.aggs[key]
	c.mu.Unlock()
	if ok {
		return a
	}
	for m := range c.Molecules {
		if c.roles[m] != standards.RoleNone {
			continue
		}
		v := c.Value(m, e, n, r)
		if math.IsNaN(v) || v <= 0 {
			continue
		}
		a.total += v
		if v > a.highest {
			a.highest = v
		}
	}
	c.mu.Lock()
	c.aggs[key] = a
	c.mu.Unlock()
	return a
}

// Highest returns the highest standardized analyte area of experiment e
func (c *ClassTable) Highest(e, n int, r Regime) float64 {
	return c.aggregate(e, n, r).highest
}

// Total returns the summed standardized analyte area of experiment e
func (c *ClassTable) Total(e, n int, r Regime) float64 {
	return c.aggregate(e, n, r).total
}

func ratio(v, d float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	if d <= 0 {
		return math.NaN()
	}
	return v / d
}

// Set holds the class tables of one analysis run
type Set struct {
	Classes []string
	Tables  map[string]*ClassTable

	mu    sync.Mutex
	grand map[aggKey]float64
}

// NewSet creates an empty set
func NewSet() *Set {
	return &Set{
		Tables: make(map[string]*ClassTable),
		grand:  make(map[aggKey]float64),
	}
}

// Add appends a class table. Classes keep the order in which they are added.
func (s *Set) Add(t *ClassTable) {
	if _, ok := s.Tables[t.Name]; !ok {
		s.Classes = append(s.Classes, t.Name)
	}
	s.Tables[t.Name] = t
}

// GrandTotal is the summed standardized analyte area of experiment e over
// all classes. Each class applies the regime to its own standards.
func (s *Set) GrandTotal(e, n int, r Regime) float64 {
	key := aggKey{regime: r, exp: e, isotopes: n}
	s.mu.Lock()
	g, ok := s.grand[key]
	s.mu.Unlock()
	if ok {
		return g
	}
	for _, name := range s.Classes {
		g += s.Tables[name].Total(e, n, r)
	}
	s.mu.Lock()
	s.grand[key] = g
	s.mu.Unlock()
	return g
}

// View returns the standardized area of a molecule in the requested view.
// Molecules that were not found give 0, molecules that cannot be
// standardized give NaN.
func (s *Set) View(class string, mol, e, n int, r Regime, v View) float64 {
	t := s.Tables[class]
	val := t.Value(mol, e, n, r)
	if val == 0 {
		return 0
	}
	switch v {
	case ViewRelativeToHighest:
		return ratio(val, t.Highest(e, n, r))
	case ViewRelativeToTotal:
		return ratio(val, t.Total(e, n, r))
	case ViewRelativeToGrandTotal:
		return ratio(val, s.GrandTotal(e, n, r))
	}
	return val
}

// Release drops all tables of the run
func (s *Set) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Classes = nil
	s.Tables = nil
	s.grand = nil
}

// AbsoluteView is an absolute quantity derived from standardized areas
type AbsoluteView int

const (
	AmountEndVolume AbsoluteView = iota
	ConcEndVolume
	ConcSampleVolume
	WeightEndVolume
	PerProtein
	PerNeutralLipid
	PerSampleWeight
)

func (v AbsoluteView) String() string {
	return [...]string{
		`amountEndVolume`,
		`concEndVolume`,
		`concSampleVolume`,
		`weightEndVolume`,
		`perProtein`,
		`perNeutralLipid`,
		`perSampleWeight`,
	}[v]
}

// AbsoluteViews lists all absolute views
var AbsoluteViews = []AbsoluteView{
	AmountEndVolume, ConcEndVolume, ConcSampleVolume, WeightEndVolume,
	PerProtein, PerNeutralLipid, PerSampleWeight,
}

// ErrCalculationNotPossible is matched by every CalculationNotPossibleError
var ErrCalculationNotPossible = errors.New("calculation not possible")

// CalculationNotPossibleError names the metadata an absolute quantity
// would need but that was not supplied
type CalculationNotPossibleError struct {
	Missing []string
}

func (e *CalculationNotPossibleError) Error() string {
	return "calculation not possible, missing " + strings.Join(e.Missing, ", ")
}

func (e *CalculationNotPossibleError) Is(target error) bool {
	return target == ErrCalculationNotPossible
}

// basis returns the role, reference and standard molecule that absolute
// values of the regime relate to. The internal standard wins when both
// roles are corrected.
func (c *ClassTable) basis(n int, r Regime) (*Reference, int, error) {
	role, corr, ctx := standards.RoleInternal, r.IS, Correction{}
	if r.IS.Method == MethodNone {
		role, corr, ctx = standards.RoleExternal, r.ES, r.IS
	}
	if corr.Method == MethodNone {
		return nil, -1, &CalculationNotPossibleError{Missing: []string{"standard correction"}}
	}
	ref := c.Reference(role, corr, ctx, n)
	if ref.Graph == nil || ref.Graph.Anchor() < 0 {
		return nil, -1, &CalculationNotPossibleError{Missing: []string{role.String() + " standard"}}
	}
	return ref, ref.Graph.Best(), nil
}

// Absolute returns an absolute quantity of molecule mol in experiment e.
// The standardized area is related to the amount of the basis standard
// that its corrected areas correspond to, the median declared amount.
// Missing metadata gives a CalculationNotPossibleError, never 0.
func (c *ClassTable) Absolute(mol, e, n int, r Regime, view AbsoluteView) (float64, error) {
	ref, s, err := c.basis(n, r)
	if err != nil {
		return math.NaN(), err
	}
	stdID := ref.Standards[s]
	stdName := stdID
	for _, m := range c.std[ref.Role] {
		if c.Molecules[m].ID == stdID {
			stdName = c.Molecules[m].Name
		}
	}
	var missing []string
	amount := standards.MedianAmount(c.opt.Settings.amounts(c.Name, stdName, c.Experiments))
	if amount <= 0 {
		missing = append(missing, "amount of "+stdName)
	}
	es, _ := c.opt.Settings.experiment(c.Experiments[e])
	need := func(v float64, what string) {
		if v <= 0 {
			missing = append(missing, what)
		}
	}
	switch view {
	case ConcEndVolume:
		need(es.EndVolume, "end volume")
	case ConcSampleVolume:
		need(es.ProbeVolume, "probe volume")
	case WeightEndVolume:
		need(c.Molecules[mol].Mass, "mass of "+c.Molecules[mol].Name)
	case PerProtein:
		need(es.ProteinConc, "protein concentration")
		need(es.ProbeVolume, "probe volume")
	case PerNeutralLipid:
		need(es.NeutralLipidConc, "neutral lipid concentration")
		need(es.ProbeVolume, "probe volume")
	case PerSampleWeight:
		need(es.SampleWeight, "sample weight")
	}
	if len(missing) > 0 {
		return math.NaN(), &CalculationNotPossibleError{Missing: missing}
	}

	v := c.Value(mol, e, n, r)
	if v == 0 || math.IsNaN(v) {
		return v, nil
	}
	a := v / ref.Values[ref.Graph.Anchor()] * amount
	switch view {
	case ConcEndVolume:
		a /= es.EndVolume
	case ConcSampleVolume:
		a /= es.ProbeVolume
	case WeightEndVolume:
		a *= c.Molecules[mol].Mass
	case PerProtein:
		a /= es.ProteinConc * es.ProbeVolume
	case PerNeutralLipid:
		a /= es.NeutralLipidConc * es.ProbeVolume
	case PerSampleWeight:
		a /= es.SampleWeight
	}
	return a, nil
}
