// Package analysis runs a complete normalization: it groups the experiment
// results per class, aligns retention times, and builds the standardized
// class tables.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/524D/lipidnorm/internal/config"
	"github.com/524D/lipidnorm/internal/isotope"
	"github.com/524D/lipidnorm/internal/logger"
	"github.com/524D/lipidnorm/internal/quant"
	"github.com/524D/lipidnorm/internal/rtcluster"
	"github.com/524D/lipidnorm/internal/standardize"
)

var (
	ErrNoExperiments       = errors.New("analysis: no experiments")
	ErrDuplicateExperiment = errors.New("analysis: duplicate experiment name")
)

// Analyzer runs normalizations with one configuration
type Analyzer struct {
	cfg  config.Config
	log  *logger.Logger
	calc isotope.Calculator
}

// New creates an analyzer. calc may be nil when no isotope extrapolation
// is needed.
func New(cfg config.Config, log *logger.Logger, calc isotope.Calculator) *Analyzer {
	return &Analyzer{cfg: cfg, log: logger.OrNop(log), calc: calc}
}

// Result of one analysis run. It is read only and owned by the caller.
type Result struct {
	Experiments []string
	Set         *standardize.Set
	cfg         config.Config
}

// Release drops all tables of the result
func (r *Result) Release() {
	if r.Set != nil {
		r.Set.Release()
	}
	r.Set = nil
	r.Experiments = nil
}

// Table returns the class table of a class
func (r *Result) Table(class string) (*standardize.ClassTable, bool) {
	if r.Set == nil {
		return nil, false
	}
	t, ok := r.Set.Tables[class]
	return t, ok
}

// Run analyzes the experiments. Classes are processed in parallel, each
// worker owns one class table; the tables are merged in class order of
// first appearance.
func (a *Analyzer) Run(ctx context.Context, exps []quant.Experiment) (*Result, error) {
	if len(exps) == 0 {
		return nil, ErrNoExperiments
	}
	names := make([]string, len(exps))
	seen := make(map[string]bool, len(exps))
	for e, exp := range exps {
		if seen[exp.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateExperiment, exp.Name)
		}
		seen[exp.Name] = true
		names[e] = exp.Name
	}

	var classes []string
	known := make(map[string]bool)
	for _, exp := range exps {
		for _, class := range classOrder(exp) {
			if !known[class] {
				known[class] = true
				classes = append(classes, class)
			}
		}
	}
	a.log.Info("analysis started", "experiments", len(exps), "classes", len(classes))

	tables := make([]*standardize.ClassTable, len(classes))
	g, gctx := errgroup.WithContext(ctx)
	workers := a.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, class := range classes {
		i, class := i, class
		g.Go(func() error {
			t, err := a.buildClass(gctx, class, exps, names)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := standardize.NewSet()
	for _, t := range tables {
		set.Add(t)
	}
	return &Result{Experiments: names, Set: set, cfg: a.cfg}, nil
}

// classOrder returns the classes of an experiment, in file order when known
func classOrder(exp quant.Experiment) []string {
	if len(exp.ClassOrder) > 0 {
		return exp.ClassOrder
	}
	out := make([]string, 0, len(exp.Classes))
	for class := range exp.Classes {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}

func (a *Analyzer) buildClass(ctx context.Context, class string, exps []quant.Experiment, names []string) (*standardize.ClassTable, error) {
	log := a.log.With("class", class)
	classObs := make([][]quant.Observation, len(exps))
	for e, exp := range exps {
		classObs[e] = exp.Classes[class]
	}
	mols := rtcluster.Canonicalize(classObs, a.cfg.RTTolerance, log)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := standardize.NewClassTable(class, mols, standardize.Options{
		ISPrefix:    a.cfg.ISPrefix,
		ESPrefix:    a.cfg.ESPrefix,
		Standards:   a.cfg.StandardParams(),
		Anchor:      a.cfg.AnchorParams(),
		Calc:        a.calc,
		Settings:    a.cfg.Absolute,
		Experiments: names,
		ISSingle:    a.cfg.SingleStandards[class].IS,
		ESSingle:    a.cfg.SingleStandards[class].ES,
	}, a.log)

	// Compute the reference tables and aggregates of the exported regimes
	// here, so that they are built by the worker that owns the class
	for _, r := range exportRegimes(a.cfg.Dilution) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for e := range names {
			t.Total(e, a.cfg.Isotopes, r)
		}
	}
	log.Debug("class done", "molecules", len(mols))
	return t, nil
}
