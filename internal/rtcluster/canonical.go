package rtcluster

import (
	"strconv"

	"github.com/524D/lipidnorm/internal/logger"
	"github.com/524D/lipidnorm/internal/quant"
)

// Molecule is a canonical analyte of a class: a name plus, when retention
// times are available, the consensus retention time of its cluster.
// Obs has one entry per experiment, nil where the analyte was not found.
type Molecule struct {
	ID          string // unique within the class
	Name        string
	RT          float64
	HasRT       bool
	DoubleBonds int
	Formula     string
	Mass        float64
	Obs         []*quant.Observation
}

// Canonicalize builds the canonical molecules of one class.
// classObs[e] holds the observations of experiment e. Molecules are
// returned in order of first appearance of their name, clusters of the
// same name by ascending retention time.
func Canonicalize(classObs [][]quant.Observation, tol float64, log *logger.Logger) []Molecule {
	var names []string
	hitsByName := make(map[string][]Hit)
	for e, obs := range classObs {
		for i := range obs {
			o := &obs[i]
			if _, ok := hitsByName[o.Name]; !ok {
				names = append(names, o.Name)
			}
			hitsByName[o.Name] = append(hitsByName[o.Name], Hit{Experiment: e, RT: o.RT, Obs: o})
		}
	}

	seen := make(map[string]int)
	var mols []Molecule
	for _, name := range names {
		for _, c := range Group(hitsByName[name], tol, log) {
			m := Molecule{
				Name:  name,
				RT:    c.RT,
				HasRT: c.HasRT,
				Obs:   make([]*quant.Observation, len(classObs)),
			}
			for e, o := range c.Members {
				m.Obs[e] = o
			}
			for _, o := range m.Obs {
				if o != nil {
					m.Formula = o.Formula
					m.Mass = o.Mass
					m.DoubleBonds = o.DoubleBonds
					break
				}
			}
			m.ID = name
			if m.HasRT {
				m.ID = name + "_" + FormatRT(m.RT)
			}
			// Clusters closer than the display precision
			seen[m.ID]++
			if n := seen[m.ID]; n > 1 {
				m.ID = m.ID + "#" + strconv.Itoa(n)
			}
			mols = append(mols, m)
		}
	}
	return mols
}
