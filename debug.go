// This file contains code to help debugging, and is
// separated in from the rest in order not to litter
// the main code with debugging stuff

package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/524D/lipidnorm/internal/analysis"
	"github.com/524D/lipidnorm/internal/standardize"
	"github.com/524D/lipidnorm/internal/standards"
)

var debugClass *string // Print debug output for given class

func init() {
	debugClass = flag.String("debug", "",
		"Print standard ranking, anchors and reference values of `class`")
}

// debugDumpClass prints, for each standard role and correction method, the
// reliability order of the standards, their anchors and the reference
// values and correction factors of all experiments
func debugDumpClass(w io.Writer, res *analysis.Result, class string, n int) {
	t, ok := res.Table(class)
	if !ok {
		fmt.Fprintf(w, "Class %s not found\n", class)
		return
	}
	fmt.Fprintf(w, "Class:%s molecules:%d isotopes:%d\n", class, len(t.Molecules), n)
	for _, role := range []standards.Role{standards.RoleInternal, standards.RoleExternal} {
		if !t.HasStandards(role) {
			fmt.Fprintf(w, "%s: no standards\n", role)
			continue
		}
		for _, corr := range t.Codes(role)[1:] {
			ref := t.Reference(role, corr, standardize.Correction{}, n)
			if ref.Graph == nil {
				continue
			}
			fmt.Fprintf(w, "%s %s\n", role, corr)
			for rank, s := range ref.Table.Order {
				st := ref.Table.Stats[s]
				anchor := `-`
				if a := ref.Graph.AnchorOf(s); a >= 0 {
					anchor = t.Experiments[a]
				}
				fmt.Fprintf(w, "  %d %s found:%d depth:%d median:%g cv:%0.4f bounds:[%g,%g] anchor:%s\n",
					rank+1, st.Name, st.Found, st.Depth, st.Median, st.CV,
					st.Bounds.Lower, st.Bounds.Upper, anchor)
			}
			for e, name := range t.Experiments {
				partner := `-`
				if p, ok := ref.Graph.Partner(e); ok {
					partner = t.Experiments[p]
				}
				fmt.Fprintf(w, "  %s ref:%g factor:%g partner:%s\n",
					name, ref.Values[e], ref.Factors[e], partner)
			}
		}
	}
}
