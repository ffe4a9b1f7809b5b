package analysis

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"

	"github.com/524D/lipidnorm/internal/standardize"
	"github.com/524D/lipidnorm/internal/standards"
)

// Number is a float that encodes NaN and infinities as JSON null
type Number float64

// MarshalJSON implements json.Marshaler
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte(`null`), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler, null decodes to NaN
func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == `null` {
		*n = Number(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Report is the exported result of an analysis
type Report struct {
	Experiments []string      `json:"experiments"`
	Isotopes    int           `json:"isotopes"`
	Regimes     []string      `json:"regimes"`
	Classes     []ClassReport `json:"classes"`
}

// ClassReport holds the standards and molecules of one class
type ClassReport struct {
	Name            string              `json:"name"`
	HasIS           bool                `json:"hasIS"`
	HasES           bool                `json:"hasES"`
	SingleIS        string              `json:"singleIS,omitempty"` // standard of the IS:single regimes
	SingleES        string              `json:"singleES,omitempty"` // standard of the ES:single regimes
	Standards       []StandardReport    `json:"standards,omitempty"`
	Molecules       []MoleculeReport    `json:"molecules"`
	AbsoluteMissing map[string][]string `json:"absoluteMissing,omitempty"`
}

// StandardReport is one standard in reliability order of its role
type StandardReport struct {
	Role   string `json:"role"`
	ID     string `json:"id"`
	Rank   int    `json:"rank"`
	Code   int    `json:"code"` // type code of its single correction
	Found  int    `json:"found"`
	Median Number `json:"median"`
	CV     Number `json:"cv"`
	Anchor string `json:"anchor,omitempty"`
}

// MoleculeReport holds all values of one canonical molecule
type MoleculeReport struct {
	ID       string                          `json:"id"`
	Name     string                          `json:"name"`
	RT       *float64                        `json:"rt,omitempty"`
	Role     string                          `json:"role,omitempty"`
	Records  []standardize.ComparativeRecord `json:"records"`
	Values   map[string]ViewValues           `json:"values"`
	Absolute map[string][]Number             `json:"absolute,omitempty"`
}

// ViewValues are the values of one regime per experiment
type ViewValues struct {
	Area            []Number `json:"area"`
	RelToHighest    []Number `json:"relToHighest"`
	RelToTotal      []Number `json:"relToTotal"`
	RelToGrandTotal []Number `json:"relToGrandTotal"`
}

// exportRegimes returns the base regimes, followed by their dilution
// corrected variants when requested
func exportRegimes(dilution bool) []standardize.Regime {
	regimes := standardize.BaseRegimes(false)
	if dilution {
		regimes = append(regimes, standardize.BaseRegimes(true)...)
	}
	return regimes
}

// Export builds the report of the base regimes for the configured number
// of isotopes. Analytes below the cutoff of their class report 0.
func (r *Result) Export() *Report {
	n := r.cfg.Isotopes
	rep := &Report{Experiments: r.Experiments, Isotopes: n}
	regimes := exportRegimes(r.cfg.Dilution)
	for _, rg := range regimes {
		rep.Regimes = append(rep.Regimes, rg.String())
	}
	if r.Set == nil {
		return rep
	}
	for _, class := range r.Set.Classes {
		rep.Classes = append(rep.Classes, r.exportClass(r.Set.Tables[class], regimes, n))
	}
	return rep
}

func (r *Result) exportClass(t *standardize.ClassTable, regimes []standardize.Regime, n int) ClassReport {
	cr := ClassReport{
		Name:  t.Name,
		HasIS: t.HasStandards(standards.RoleInternal),
		HasES: t.HasStandards(standards.RoleExternal),
	}
	if cr.HasIS {
		cr.SingleIS = t.SingleStandard(standards.RoleInternal)
	}
	if cr.HasES {
		cr.SingleES = t.SingleStandard(standards.RoleExternal)
	}
	for _, role := range []standards.Role{standards.RoleInternal, standards.RoleExternal} {
		cr.Standards = append(cr.Standards, standardReports(t, role, n)...)
	}

	// survivors of the cutoff per experiment
	cut := r.cfg.Cutoffs[t.Name]
	analytes := t.Analytes()
	survives := make([]map[int]bool, len(r.Experiments))
	for e := range r.Experiments {
		survives[e] = make(map[int]bool)
		for _, m := range t.Cutoff(analytes, e, n, standardize.None, cut) {
			survives[e][m] = true
		}
	}

	absRegime, absolute := r.absoluteRegime(t)
	for _, m := range t.DisplayOrder(r.cfg.DisplayOrder[t.Name]) {
		mol := t.Molecules[m]
		role := t.Role(m)
		mr := MoleculeReport{
			ID:     mol.ID,
			Name:   mol.Name,
			Values: make(map[string]ViewValues, len(regimes)),
		}
		if mol.HasRT {
			rt := mol.RT
			mr.RT = &rt
		}
		if role != standards.RoleNone {
			mr.Role = role.String()
		}
		filtered := func(e int) bool {
			return role == standards.RoleNone && !survives[e][m]
		}
		for e := range r.Experiments {
			mr.Records = append(mr.Records, t.Record(m, e))
		}
		for _, rg := range regimes {
			var vv ViewValues
			for e := range r.Experiments {
				if filtered(e) {
					vv.Area = append(vv.Area, 0)
					vv.RelToHighest = append(vv.RelToHighest, 0)
					vv.RelToTotal = append(vv.RelToTotal, 0)
					vv.RelToGrandTotal = append(vv.RelToGrandTotal, 0)
					continue
				}
				vv.Area = append(vv.Area, Number(r.Set.View(t.Name, m, e, n, rg, standardize.ViewArea)))
				vv.RelToHighest = append(vv.RelToHighest, Number(r.Set.View(t.Name, m, e, n, rg, standardize.ViewRelativeToHighest)))
				vv.RelToTotal = append(vv.RelToTotal, Number(r.Set.View(t.Name, m, e, n, rg, standardize.ViewRelativeToTotal)))
				vv.RelToGrandTotal = append(vv.RelToGrandTotal, Number(r.Set.View(t.Name, m, e, n, rg, standardize.ViewRelativeToGrandTotal)))
			}
			mr.Values[rg.String()] = vv
		}
		if absolute && role == standards.RoleNone {
			mr.Absolute = make(map[string][]Number)
			for _, view := range standardize.AbsoluteViews {
				vals := make([]Number, len(r.Experiments))
				for e := range r.Experiments {
					if filtered(e) {
						continue
					}
					v, err := t.Absolute(m, e, n, absRegime, view)
					var cnp *standardize.CalculationNotPossibleError
					if errors.As(err, &cnp) {
						cr.AbsoluteMissing = addMissing(cr.AbsoluteMissing, view.String(), cnp.Missing)
					}
					vals[e] = Number(v)
				}
				mr.Absolute[view.String()] = vals
			}
		}
		cr.Molecules = append(cr.Molecules, mr)
	}
	return cr
}

// absoluteRegime picks the regime of the absolute views: internal standard
// correction when available, else external
func (r *Result) absoluteRegime(t *standardize.ClassTable) (standardize.Regime, bool) {
	if r.cfg.Absolute == nil {
		return standardize.None, false
	}
	internal := standardize.Correction{Method: standardize.MethodInternal}
	if t.HasStandards(standards.RoleInternal) {
		return standardize.Regime{IS: internal, Dilution: r.cfg.Dilution}, true
	}
	return standardize.Regime{ES: internal, Dilution: r.cfg.Dilution}, true
}

func addMissing(m map[string][]string, view string, missing []string) map[string][]string {
	if m == nil {
		m = make(map[string][]string)
	}
	for _, what := range missing {
		i := sort.SearchStrings(m[view], what)
		if i < len(m[view]) && m[view][i] == what {
			continue
		}
		m[view] = append(m[view], ``)
		copy(m[view][i+1:], m[view][i:])
		m[view][i] = what
	}
	return m
}

func standardReports(t *standardize.ClassTable, role standards.Role, n int) []StandardReport {
	ref := t.Reference(role, standardize.Correction{Method: standardize.MethodInternal}, standardize.Correction{}, n)
	if ref.Table == nil {
		return nil
	}
	var out []StandardReport
	for rank, s := range ref.Table.Order {
		st := ref.Table.Stats[s]
		sr := StandardReport{
			Role:   role.String(),
			ID:     ref.Standards[s],
			Rank:   rank + 1,
			Found:  st.Found,
			Median: Number(st.Median),
			CV:     Number(st.CV),
		}
		if a := ref.Graph.AnchorOf(s); a >= 0 {
			sr.Anchor = t.Experiments[a]
		}
		single := standardize.Correction{Method: standardize.MethodSingle, Standard: sr.ID}
		if code, ok := t.Code(role, single); ok {
			sr.Code = code
		}
		out = append(out, sr)
	}
	return out
}
