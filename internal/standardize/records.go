package standardize

import (
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/524D/lipidnorm/internal/standards"
)

// ComparativeRecord describes one molecule in one experiment
type ComparativeRecord struct {
	Molecule     string    `json:"molecule"`
	Experiment   string    `json:"experiment"`
	Exists       bool      `json:"exists"`
	Null         bool      `json:"null,omitempty"`
	Combined     bool      `json:"combined,omitempty"`
	MultiPeak    bool      `json:"multiPeak,omitempty"`
	AllModsFound bool      `json:"allModsFound"`
	Areas        []float64 `json:"areas,omitempty"` // raw area per isotope
}

// Record returns the flags and raw per isotope areas of molecule mol in
// experiment e
func (c *ClassTable) Record(mol, e int) ComparativeRecord {
	m := c.Molecules[mol]
	rec := ComparativeRecord{Molecule: m.ID, Experiment: c.Experiments[e]}
	obs := m.Obs[e]
	if obs == nil {
		return rec
	}
	rec.Exists = true
	rec.Null = obs.IsNull()
	rec.Combined = obs.Combined
	rec.MultiPeak = obs.MultiPeak(obs.Depth())
	for i := 0; i < obs.Depth(); i++ {
		rec.Areas = append(rec.Areas, obs.IsotopeArea(i))
	}
	found := make(map[string]bool)
	for _, name := range obs.ModNames() {
		found[name] = true
	}
	rec.AllModsFound = true
	for _, name := range c.classMods() {
		if !found[name] {
			rec.AllModsFound = false
			break
		}
	}
	return rec
}

// classMods returns the modifications found for any molecule of the class
func (c *ClassTable) classMods() []string {
	set := make(map[string]bool)
	for _, m := range c.Molecules {
		for _, obs := range m.Obs {
			if obs == nil {
				continue
			}
			for _, name := range obs.ModNames() {
				set[name] = true
			}
		}
	}
	mods := make([]string, 0, len(set))
	for name := range set {
		mods = append(mods, name)
	}
	sort.Strings(mods)
	return mods
}

// Analytes returns the indices of the molecules that are not standards
func (c *ClassTable) Analytes() []int {
	var out []int
	for m, role := range c.roles {
		if role == standards.RoleNone {
			out = append(out, m)
		}
	}
	return out
}

// Cutoff keeps the molecules of mols whose standardized area in experiment
// e is at least fraction times the highest area among them. A fraction
// <= 0 keeps all molecules.
func (c *ClassTable) Cutoff(mols []int, e, n int, r Regime, fraction float64) []int {
	if fraction <= 0 {
		return append([]int(nil), mols...)
	}
	values := make([]float64, len(mols))
	highest := float64(0)
	for i, m := range mols {
		values[i] = c.Value(m, e, n, r)
		if values[i] > highest {
			highest = values[i]
		}
	}
	limit := fraction * highest
	var out []int
	for i, m := range mols {
		if !math.IsNaN(values[i]) && values[i] > 0 && values[i] >= limit {
			out = append(out, m)
		}
	}
	return out
}

var chainRe = regexp.MustCompile(`(\d+):(\d+)`)

// chain parses "34:1" style chain length and double bonds from a name
func chain(name string) (carbons, dbs int, ok bool) {
	sm := chainRe.FindStringSubmatch(name)
	if sm == nil {
		return 0, 0, false
	}
	carbons, _ = strconv.Atoi(sm[1])
	dbs, _ = strconv.Atoi(sm[2])
	return carbons, dbs, true
}

// DisplayOrder returns the molecule indices in display order. Molecules
// named (by ID or name) in explicit come first, in that order. The others
// follow sorted by chain length, double bonds, retention time and name.
func (c *ClassTable) DisplayOrder(explicit []string) []int {
	order := make([]int, 0, len(c.Molecules))
	placed := make(map[int]bool)
	for _, want := range explicit {
		for m, mol := range c.Molecules {
			if !placed[m] && (mol.ID == want || mol.Name == want) {
				order = append(order, m)
				placed[m] = true
			}
		}
	}
	var rest []int
	for m := range c.Molecules {
		if !placed[m] {
			rest = append(rest, m)
		}
	}
	sort.SliceStable(rest, func(a, b int) bool {
		ma, mb := c.Molecules[rest[a]], c.Molecules[rest[b]]
		ca, da, oka := chain(ma.Name)
		cb, db, okb := chain(mb.Name)
		if !oka {
			da = ma.DoubleBonds
		}
		if !okb {
			db = mb.DoubleBonds
		}
		if ca != cb {
			return ca < cb
		}
		if da != db {
			return da < db
		}
		if ma.HasRT != mb.HasRT {
			return !ma.HasRT
		}
		if ma.RT != mb.RT {
			return ma.RT < mb.RT
		}
		return ma.ID < mb.ID
	})
	return append(order, rest...)
}
