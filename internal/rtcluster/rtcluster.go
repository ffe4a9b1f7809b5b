// Package rtcluster unifies analytes with the same name that were found at
// slightly different retention times in different experiments.
package rtcluster

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/524D/lipidnorm/internal/logger"
	"github.com/524D/lipidnorm/internal/quant"
)

// Hit is one raw observation of an analyte in an experiment
type Hit struct {
	Experiment int
	RT         string
	Obs        *quant.Observation
}

// Cluster is a group of hits that represent the same peak. Members holds
// one (merged) observation per experiment.
type Cluster struct {
	RT      float64
	HasRT   bool
	Members map[int]*quant.Observation
}

// node is a hit with a parsed retention time, and the cluster it belongs to
type node struct {
	hit     int
	exp     int
	rt      float64
	cluster int
}

// Group clusters the hits of one analyte name. A tolerance <= 0 disables
// retention time grouping: every distinct retention time string forms
// its own cluster.
func Group(hits []Hit, tol float64, log *logger.Logger) []Cluster {
	log = logger.OrNop(log)
	var untimed []int
	var timed []node
	for i, h := range hits {
		rtStr := strings.TrimSpace(h.RT)
		if rtStr == `` {
			untimed = append(untimed, i)
			continue
		}
		rt, err := strconv.ParseFloat(rtStr, 64)
		if err != nil || math.IsNaN(rt) || math.IsInf(rt, 0) {
			log.Warn("unparseable retention time, treating analyte as un-timed",
				"analyte", h.Obs.Name, "rt", h.RT, "experiment", h.Experiment)
			untimed = append(untimed, i)
			continue
		}
		timed = append(timed, node{hit: i, exp: h.Experiment, rt: rt, cluster: -1})
	}

	var clusters [][]node
	if tol <= 0 {
		clusters = groupByString(hits, timed)
	} else {
		clusters = groupByTolerance(timed, tol)
	}

	out := make([]Cluster, 0, len(clusters)+1)
	if len(untimed) > 0 {
		out = append(out, mergeUntimed(hits, untimed))
	}
	timedOut := make([]Cluster, 0, len(clusters))
	for _, c := range clusters {
		timedOut = append(timedOut, mergeCluster(hits, c))
	}
	sort.SliceStable(timedOut, func(i, j int) bool { return timedOut[i].RT < timedOut[j].RT })
	return append(out, timedOut...)
}

// groupByString puts hits with identical retention time strings together
func groupByString(hits []Hit, timed []node) [][]node {
	idx := make(map[string]int)
	var clusters [][]node
	for _, n := range timed {
		key := strings.TrimSpace(hits[n.hit].RT)
		k, ok := idx[key]
		if !ok {
			k = len(clusters)
			idx[key] = k
			clusters = append(clusters, nil)
		}
		clusters[k] = append(clusters[k], n)
	}
	return clusters
}

// groupByTolerance implements the cross experiment matching. Experiments
// are processed in ascending order; every hit that has not been claimed yet
// claims the closest unclaimed hit within the tolerance in each later
// experiment. Matching uses the original retention times, not the cluster
// means. Hits that only came close to hits already claimed by another
// cluster join the nearest of those; otherwise they form a singleton.
func groupByTolerance(timed []node, tol float64) [][]node {
	byExp := make(map[int][]int) // experiment -> node indices sorted by rt
	var exps []int
	for i, n := range timed {
		if _, ok := byExp[n.exp]; !ok {
			exps = append(exps, n.exp)
		}
		byExp[n.exp] = append(byExp[n.exp], i)
	}
	sort.Ints(exps)
	for _, e := range exps {
		l := byExp[e]
		sort.SliceStable(l, func(i, j int) bool { return timed[l[i]].rt < timed[l[j]].rt })
	}

	var clusters [][]int
	assign := func(ni, c int) {
		if c < 0 {
			c = len(clusters)
			clusters = append(clusters, nil)
		}
		timed[ni].cluster = c
		clusters[c] = append(clusters[c], ni)
	}

	for _, e := range exps {
		for _, ni := range byExp[e] {
			if timed[ni].cluster >= 0 {
				continue
			}
			r1 := timed[ni].rt
			side := -1
			sideDist := math.Inf(1)
			for _, f := range exps {
				if f == e {
					continue
				}
				best := closestInWindow(timed, byExp[f], r1, tol)
				if best < 0 {
					continue
				}
				dist := math.Abs(timed[best].rt - r1)
				switch {
				case f > e && timed[best].cluster < 0:
					if timed[ni].cluster < 0 {
						assign(ni, -1)
					}
					assign(best, timed[ni].cluster)
				case timed[best].cluster >= 0 && timed[best].cluster != timed[ni].cluster:
					if dist < sideDist {
						side = timed[best].cluster
						sideDist = dist
					}
				}
			}
			if timed[ni].cluster < 0 {
				assign(ni, side)
			}
		}
	}

	out := make([][]node, len(clusters))
	for c, members := range clusters {
		for _, ni := range members {
			out[c] = append(out[c], timed[ni])
		}
	}
	return out
}

// closestInWindow returns the node of l (sorted by rt) that is closest to
// rt and within tol, or -1
func closestInWindow(timed []node, l []int, rt, tol float64) int {
	i1 := sort.Search(len(l), func(i int) bool { return timed[l[i]].rt >= rt-tol })
	i2 := sort.Search(len(l), func(i int) bool { return timed[l[i]].rt > rt+tol })
	best := -1
	bestDist := math.Inf(1)
	for i := i1; i < i2; i++ {
		d := math.Abs(timed[l[i]].rt - rt)
		if d <= tol && d < bestDist {
			best = l[i]
			bestDist = d
		}
	}
	return best
}

// mergeCluster combines the hits of a cluster into one observation per
// experiment. Areas of duplicate hits from the same experiment are added,
// and their retention time becomes the mean of the originals.
func mergeCluster(hits []Hit, members []node) Cluster {
	c := Cluster{HasRT: true, Members: make(map[int]*quant.Observation)}
	rtSum := make(map[int]float64)
	rtCount := make(map[int]int)
	total := float64(0)
	for _, n := range members {
		obs := hits[n.hit].Obs
		total += n.rt
		rtSum[n.exp] += n.rt
		rtCount[n.exp]++
		if m, ok := c.Members[n.exp]; ok {
			m.Merge(obs)
		} else {
			c.Members[n.exp] = obs.Clone()
		}
	}
	for e, m := range c.Members {
		if rtCount[e] > 1 {
			m.RT = FormatRT(rtSum[e] / float64(rtCount[e]))
		}
	}
	c.RT = total / float64(len(members))
	return c
}

func mergeUntimed(hits []Hit, idx []int) Cluster {
	c := Cluster{Members: make(map[int]*quant.Observation)}
	for _, i := range idx {
		h := hits[i]
		if m, ok := c.Members[h.Experiment]; ok {
			m.Merge(h.Obs)
		} else {
			c.Members[h.Experiment] = h.Obs.Clone()
		}
	}
	return c
}

// FormatRT formats a retention time for display and identification
func FormatRT(rt float64) string {
	return strconv.FormatFloat(rt, 'f', 2, 64)
}
