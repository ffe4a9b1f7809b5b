package standardize

import (
	"math"
	"sort"
	"sync"

	"github.com/524D/lipidnorm/internal/anchor"
	"github.com/524D/lipidnorm/internal/isotope"
	"github.com/524D/lipidnorm/internal/logger"
	"github.com/524D/lipidnorm/internal/rtcluster"
	"github.com/524D/lipidnorm/internal/standards"
)

// Options of the standardization of one class
type Options struct {
	ISPrefix    string
	ESPrefix    string
	Standards   standards.Params
	Anchor      anchor.Params
	Calc        isotope.Calculator
	Settings    *Settings
	Experiments []string // experiment names, index = experiment
	ISSingle    string   // single internal standard, empty for the first by ID
	ESSingle    string   // single external standard, empty for the first by ID
}

// ClassTable holds the canonical molecules of one class together with the
// reference values derived from its standards. Reference tables are
// computed on first use and memoized.
type ClassTable struct {
	Name        string
	Molecules   []rtcluster.Molecule
	Experiments []string

	roles []standards.Role
	std   map[standards.Role][]int // molecule indices, ordered by ID
	corr  map[int][]float64        // loading correction per standard, per experiment
	opt   Options
	log   *logger.Logger

	mu     sync.Mutex
	refs   map[refKey]*Reference
	aggs   map[aggKey]aggregate
	warned map[string]bool
}

type refKey struct {
	role     standards.Role
	corr     Correction
	ctx      Correction
	isotopes int
}

// Reference is the reference table of one role and correction
type Reference struct {
	Role       standards.Role
	Correction Correction
	Standards  []string // molecule IDs, index s of Table
	Table      *anchor.Table
	Graph      *anchor.Graph
	Values     []float64 // reference value per experiment
	Factors    []float64 // value(anchor) / value(e), 1 without standards
}

// NewClassTable classifies the molecules of a class and prepares the
// loading correction factors of its standards
func NewClassTable(name string, mols []rtcluster.Molecule, opt Options, log *logger.Logger) *ClassTable {
	if opt.Standards.Tolerance <= 0 {
		opt.Standards = standards.DefaultParams()
	}
	if opt.Anchor.Tolerance <= 0 {
		opt.Anchor = anchor.DefaultParams()
	}
	c := &ClassTable{
		Name:        name,
		Molecules:   mols,
		Experiments: opt.Experiments,
		roles:       make([]standards.Role, len(mols)),
		std:         make(map[standards.Role][]int),
		corr:        make(map[int][]float64),
		opt:         opt,
		log:         logger.OrNop(log).With("class", name),
		refs:        make(map[refKey]*Reference),
		aggs:        make(map[aggKey]aggregate),
		warned:      make(map[string]bool),
	}
	if len(c.Experiments) == 0 && len(mols) > 0 {
		c.Experiments = make([]string, len(mols[0].Obs))
	}
	for i, m := range mols {
		role := standards.Classify(m.Name, opt.ISPrefix, opt.ESPrefix)
		c.roles[i] = role
		if role == standards.RoleNone {
			continue
		}
		c.std[role] = append(c.std[role], i)
		c.corr[i] = standards.CorrectionFactors(opt.Settings.amounts(name, m.Name, c.Experiments))
	}
	for _, idx := range c.std {
		sort.SliceStable(idx, func(a, b int) bool {
			return mols[idx[a]].ID < mols[idx[b]].ID
		})
	}
	return c
}

// Role returns the standard role of molecule mol
func (c *ClassTable) Role(mol int) standards.Role { return c.roles[mol] }

// StandardIDs returns the IDs of the standards of a role in name order
func (c *ClassTable) StandardIDs(role standards.Role) []string {
	ids := make([]string, 0, len(c.std[role]))
	for _, m := range c.std[role] {
		ids = append(ids, c.Molecules[m].ID)
	}
	return ids
}

// resolveStandard finds a standard by ID or by name
func (c *ClassTable) resolveStandard(role standards.Role, name string) (string, bool) {
	for _, m := range c.std[role] {
		if c.Molecules[m].ID == name {
			return name, true
		}
	}
	for _, m := range c.std[role] {
		if c.Molecules[m].Name == name {
			return c.Molecules[m].ID, true
		}
	}
	return ``, false
}

func (c *ClassTable) warnOnce(key, msg string, keysAndValues ...interface{}) {
	c.mu.Lock()
	seen := c.warned[key]
	c.warned[key] = true
	c.mu.Unlock()
	if !seen {
		c.log.Warn(msg, keysAndValues...)
	}
}

// Reference returns the reference table of a role and correction for the
// summed area of the first n isotopes. For external standards ctx is the
// internal standard correction applied to the standard areas first.
// Single corrections are resolved to the standards of this class.
func (c *ClassTable) Reference(role standards.Role, corr Correction, ctx Correction, n int) *Reference {
	corr = c.resolve(role, corr)
	if role != standards.RoleExternal {
		ctx = Correction{}
	} else {
		ctx = c.resolve(standards.RoleInternal, ctx)
	}
	if n < 1 {
		n = 1
	}
	key := refKey{role: role, corr: corr, ctx: ctx, isotopes: n}
	c.mu.Lock()
	r, ok := c.refs[key]
	c.mu.Unlock()
	if ok {
		return r
	}
	r = c.computeReference(role, corr, ctx, n)
	c.mu.Lock()
	c.refs[key] = r
	c.mu.Unlock()
	return r
}

func (c *ClassTable) computeReference(role standards.Role, corr Correction, ctx Correction, n int) *Reference {
	nExp := len(c.Experiments)
	r := &Reference{Role: role, Correction: corr, Factors: make([]float64, nExp)}
	for e := range r.Factors {
		r.Factors[e] = 1
	}

	var ids []int
	switch corr.Method {
	case MethodNone:
		return r
	case MethodSingle:
		for _, m := range c.std[role] {
			if c.Molecules[m].ID == corr.Standard {
				ids = []int{m}
			}
		}
		if len(ids) == 0 {
			c.warnOnce("single:"+role.String()+corr.Standard, "standard not found in class",
				"role", role.String(), "standard", corr.Standard)
			return r
		}
	default:
		ids = c.std[role]
	}
	if len(ids) == 0 {
		return r
	}

	var isFactors []float64
	if role == standards.RoleExternal && ctx.Method != MethodNone {
		isFactors = c.Reference(standards.RoleInternal, ctx, Correction{}, n).Factors
	}

	tab := &anchor.Table{}
	for _, m := range ids {
		mol := c.Molecules[m]
		areas := make([]float64, nExp)
		depth := 0
		for e, obs := range mol.Obs {
			a, err := anchor.StandardArea(obs, mol.Formula, n, c.opt.Calc)
			if err != nil {
				c.warnOnce("extrapolate:"+mol.ID, "cannot extrapolate standard area",
					"standard", mol.ID, "isotopes", n, "error", err)
				a = math.NaN()
			}
			a *= c.corr[m][e]
			if isFactors != nil {
				a *= isFactors[e]
			}
			areas[e] = a
			if obs != nil {
				if d := obs.Depth(); d > 0 && (depth == 0 || d < depth) {
					depth = d
				}
			}
		}
		st := standards.Compute(mol.ID, areas, c.opt.Standards.Tolerance)
		st.Depth = depth
		tab.Stats = append(tab.Stats, st)
		tab.Areas = append(tab.Areas, areas)
		r.Standards = append(r.Standards, mol.ID)
	}
	tab.Order = standards.Rank(tab.Stats, c.opt.Standards)
	r.Table = tab
	r.Graph = anchor.NewGraph(tab, c.opt.Anchor,
		c.log.With("role", role.String(), "correction", corr.String()))

	mode := anchor.ModeBest
	if corr.Method == MethodMedian {
		mode = anchor.ModeMedian
	}
	r.Values = r.Graph.Reference(mode)
	a := r.Graph.Anchor()
	if a < 0 {
		// no usable standard, degrade to no correction
		return r
	}
	for e := range r.Factors {
		r.Factors[e] = r.Values[a] / r.Values[e]
		if math.IsNaN(r.Factors[e]) || math.IsInf(r.Factors[e], 0) {
			r.Factors[e] = math.NaN()
			c.warnOnce("nofactor:"+role.String()+corr.String()+c.Experiments[e],
				"analytes of experiment cannot be corrected",
				"role", role.String(), "correction", corr.String(), "experiment", c.Experiments[e])
		}
	}
	return r
}

// Factor returns the correction factor of experiment e
func (c *ClassTable) Factor(role standards.Role, corr, ctx Correction, n, e int) float64 {
	return c.Reference(role, corr, ctx, n).Factors[e]
}

// Dilution returns the declared dilution factor of experiment e, or 1
func (c *ClassTable) Dilution(e int) float64 {
	if es, ok := c.opt.Settings.experiment(c.Experiments[e]); ok && es.Dilution > 0 {
		return es.Dilution
	}
	return 1
}

// Value returns the standardized area of molecule mol in experiment e for
// the first n isotopes. It is 0 when the molecule was not found in e and
// NaN when it cannot be standardized.
func (c *ClassTable) Value(mol, e, n int, r Regime) float64 {
	obs := c.Molecules[mol].Obs[e]
	if obs == nil {
		return 0
	}
	v := obs.Area(n)
	if r.IS.Method != MethodNone {
		v *= c.Factor(standards.RoleInternal, r.IS, Correction{}, n, e)
	}
	if r.ES.Method != MethodNone {
		v *= c.Factor(standards.RoleExternal, r.ES, r.IS, n, e)
	}
	if r.Dilution {
		v *= c.Dilution(e)
	}
	return v
}

// HasStandards reports whether the class has a standard of the role that
// was found in at least one experiment
func (c *ClassTable) HasStandards(role standards.Role) bool {
	for _, m := range c.std[role] {
		for _, obs := range c.Molecules[m].Obs {
			if obs != nil && obs.IsotopeArea(0) > 0 {
				return true
			}
		}
	}
	return false
}
