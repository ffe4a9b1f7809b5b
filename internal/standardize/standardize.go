// Package standardize turns the raw areas of a class into standardized
// areas under every combination of internal and external standard
// correction, and derives the class relative and absolute views.
package standardize

import (
	"fmt"

	"github.com/524D/lipidnorm/internal/standards"
)

// Method of standard correction for one standard role
type Method int

const (
	// MethodNone leaves the areas uncorrected
	MethodNone Method = iota
	// MethodInternal corrects against the most reliable standard
	MethodInternal
	// MethodMedian corrects against the median of ratios of all standards
	MethodMedian
	// MethodSingle corrects against one named standard
	MethodSingle
)

func (m Method) String() string {
	switch m {
	case MethodInternal:
		return `internal`
	case MethodMedian:
		return `median`
	case MethodSingle:
		return `single`
	}
	return `none`
}

// Correction selects the method, and for MethodSingle the ID of the
// standard molecule. A single correction without a standard stands for the
// configured single standard of each class.
type Correction struct {
	Method   Method
	Standard string
}

func (c Correction) String() string {
	if c.Method == MethodSingle && c.Standard != `` {
		return fmt.Sprintf("single(%s)", c.Standard)
	}
	return c.Method.String()
}

// Regime is one combination of internal and external standard correction
type Regime struct {
	IS       Correction
	ES       Correction
	Dilution bool
}

func (r Regime) String() string {
	s := "IS:" + r.IS.String() + "/ES:" + r.ES.String()
	if r.Dilution {
		s += "/dilution"
	}
	return s
}

// None is the regime that leaves areas untouched
var None = Regime{}

var baseMethods = []Method{MethodNone, MethodInternal, MethodMedian, MethodSingle}

// BaseRegimes returns the 16 combinations of {none, internal, median,
// single} for both roles. The single corrections name no standard, so the
// regimes apply to every class.
func BaseRegimes(dilution bool) []Regime {
	out := make([]Regime, 0, len(baseMethods)*len(baseMethods))
	for _, is := range baseMethods {
		for _, es := range baseMethods {
			out = append(out, Regime{
				IS:       Correction{Method: is},
				ES:       Correction{Method: es},
				Dilution: dilution,
			})
		}
	}
	return out
}

// Codes returns the corrections available for a role of the class. The
// index of a correction is its type code: 0 none, 1 internal, 2 median and
// 3+k single for the k-th standard in name order.
func (c *ClassTable) Codes(role standards.Role) []Correction {
	codes := []Correction{
		{Method: MethodNone},
		{Method: MethodInternal},
		{Method: MethodMedian},
	}
	for _, m := range c.std[role] {
		codes = append(codes, Correction{Method: MethodSingle, Standard: c.Molecules[m].ID})
	}
	return codes
}

// Code returns the type code of a correction
func (c *ClassTable) Code(role standards.Role, corr Correction) (int, bool) {
	corr = c.resolve(role, corr)
	for i, cc := range c.Codes(role) {
		if cc == corr {
			return i, true
		}
	}
	return -1, false
}

// SingleStandard returns the ID of the single standard of a role: the
// configured one, else the first standard in name order. A configured
// name that is not a standard of the class is returned unchanged.
func (c *ClassTable) SingleStandard(role standards.Role) string {
	name := c.opt.ISSingle
	if role == standards.RoleExternal {
		name = c.opt.ESSingle
	}
	if name != `` {
		if id, ok := c.resolveStandard(role, name); ok {
			return id
		}
		return name
	}
	if ids := c.StandardIDs(role); len(ids) > 0 {
		return ids[0]
	}
	return ``
}

func (c *ClassTable) resolve(role standards.Role, corr Correction) Correction {
	if corr.Method != MethodSingle {
		return corr
	}
	if corr.Standard != `` {
		if id, ok := c.resolveStandard(role, corr.Standard); ok {
			corr.Standard = id
			return corr
		}
	}
	// standards of other classes map to the single standard of this class
	corr.Standard = c.SingleStandard(role)
	return corr
}

// Resolve maps a regime to this class: single corrections get the ID of
// the single standard of the class unless they name one of its standards
func (c *ClassTable) Resolve(r Regime) Regime {
	r.IS = c.resolve(standards.RoleInternal, r.IS)
	r.ES = c.resolve(standards.RoleExternal, r.ES)
	return r
}
