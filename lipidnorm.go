// Copyright 2018 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/524D/lipidnorm/internal/analysis"
	"github.com/524D/lipidnorm/internal/config"
	"github.com/524D/lipidnorm/internal/isotope"
	"github.com/524D/lipidnorm/internal/logger"
	"github.com/524D/lipidnorm/internal/quant"
	"github.com/524D/lipidnorm/internal/quantxml"
)

// Program name and version, stored in the JSON output
const progName = "lipidNorm"

var progVersion = `Unknown`

// Format of output, if it ever changes we should still be able to parse
// output from old versions
const outputFormatVersion = "1.0"

const defaultOutput = "lipidnorm.json"

const (
	infoDefault = iota
	infoSilent
	infoVerbose
)

// Command line parameters
type params struct {
	configFilename *string
	outFilename    *string
	rtTolerance    *string // overrides rt_tolerance of the configuration when not empty
	isotopes       *int    // overrides isotopes of the configuration when > 0
	dilution       *bool   // also correct for the declared dilution of each experiment
	readers        *int    // number of input files read in parallel
	verbosity      int     // Verbosity of progress messages (infoDefault...)
	args           []string
	debugClass     string // Print diagnostics for this class
}

// normResult is the content of the output file
type normResult struct {
	LipidNormVersion string
	FormatVersion    string
	Report           *analysis.Report
}

var ErrNoInput = errors.New("no input files")

// loadConfig reads the configuration file, if any, and applies the
// command line overrides
func loadConfig(par params) (config.Config, error) {
	cfg := config.Default()
	var err error
	if *par.configFilename != `` {
		cfg, err = config.Load(*par.configFilename)
		if err != nil {
			return cfg, err
		}
	}
	if *par.rtTolerance != `` {
		cfg.RTTolerance, err = strconv.ParseFloat(*par.rtTolerance, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid rttol %q: %w", *par.rtTolerance, err)
		}
	}
	if *par.isotopes > 0 {
		cfg.Isotopes = *par.isotopes
	}
	if *par.dilution {
		cfg.Dilution = true
	}
	return cfg, cfg.Validate()
}

// readExperiments reads all input files in parallel. The experiments are
// returned in command line order.
func readExperiments(ctx context.Context, files []string, readers int) ([]quant.Experiment, error) {
	if len(files) == 0 {
		return nil, ErrNoInput
	}
	exps := make([]quant.Experiment, len(files))
	g, _ := errgroup.WithContext(ctx)
	if readers < 1 {
		readers = 1
	}
	g.SetLimit(readers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			exp, err := quantxml.ReadFile(f)
			if err != nil {
				return err
			}
			exps[i] = exp
			return nil
		})
	}
	return exps, g.Wait()
}

func writeResult(res normResult, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	e := json.NewEncoder(f)
	e.SetIndent(``, `  `) // Make output easier to read for humans
	return e.Encode(res)
}

// run performs the complete normalization and writes the result file
func run(ctx context.Context, par params, lg *logger.Logger) error {
	cfg, err := loadConfig(par)
	if err != nil {
		return err
	}
	t := time.Now()
	exps, err := readExperiments(ctx, par.args, *par.readers)
	if err != nil {
		return err
	}
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "Read %d experiments in %v\n", len(exps), time.Since(t))
	}

	res, err := analysis.New(cfg, lg, isotope.Natural{}).Run(ctx, exps)
	if err != nil {
		return err
	}
	defer res.Release()
	if par.debugClass != `` {
		debugDumpClass(os.Stdout, res, par.debugClass, cfg.Isotopes)
	}

	out := normResult{
		LipidNormVersion: progVersion,
		FormatVersion:    outputFormatVersion,
		Report:           res.Export(),
	}
	if err := writeResult(out, *par.outFilename); err != nil {
		return err
	}
	if par.verbosity != infoSilent {
		fmt.Fprintf(os.Stderr, "Normalized %d classes of %d experiments in %v, written to %s\n",
			len(out.Report.Classes), len(exps), time.Since(t), *par.outFilename)
	}
	return nil
}

// runLogged runs the normalization and flushes the log, also when run
// fails, since log.Fatalf skips deferred calls
func runLogged(ctx context.Context, par params, lg *logger.Logger) error {
	defer lg.Sync()
	return run(ctx, par, lg)
}

// sanatizeParams does some checks on parameters, and fills missing
// filenames if possible
func sanatizeParams(par *params) {
	exeName := filepath.Base(os.Args[0])
	if len(par.args) == 0 {
		fmt.Fprintf(os.Stderr, `At least one quantification result file must be given.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}
	if *par.outFilename == "" {
		*par.outFilename = defaultOutput
	}
}

func usage() {
	exeName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr,
		`USAGE:
  %s [options] <quantfile>...

  This program makes lipid quantification results of several experiments
  comparable. Areas are standardized with the internal and external
  standards found in each lipid class, in all combinations of correction
  methods.

OPTIONS:
`, exeName)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr,
		`
CONFIGURATION:
  Settings that are not available as option, like class cutoffs, the display
  order of molecules and the amounts of standards that were added to each
  experiment, are read from a YAML file given with -config.

USAGE EXAMPLES:
  %s E1.xml E2.xml E3.xml
    Normalize three experiments with default settings, write the result
    to %s.

  %s -config pc.yaml -rttol 0 -o shotgun.json S*.xml
    Idem, with settings from pc.yaml and without retention time grouping,
    as needed for shotgun data.
`, exeName, defaultOutput, exeName)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	var par params

	par.configFilename = flag.String("config", "",
		"YAML configuration `filename`")
	par.outFilename = flag.String("o", "",
		"output `filename` (default "+defaultOutput+")")
	par.rtTolerance = flag.String("rttol", "",
		"retention time grouping `tolerance`"+` in minutes. 0 disables grouping.
Default is the value from the configuration (0.1).`)
	par.isotopes = flag.Int("isotopes", 0,
		`number of isotopes to sum for each area. Default is the value from
the configuration (1).`)
	par.dilution = flag.Bool("dilution", false,
		`correct for the dilution factor declared for each experiment`)
	par.readers = flag.Int("readers", 4,
		`number of input files to read in parallel`)
	version := flag.Bool("version", false,
		`Show software version`)
	verbose := flag.Bool("verbose", false,
		`Print more verbose progress information`)
	quiet := flag.Bool("quiet", false,
		`Don't print any output except for errors`)
	flag.Usage = usage
	flag.Parse()
	if *version {
		if progVersion == `Unknown` {
			progVersion = `Unknown
Please build this program with -ldflags "-X main.progVersion=<version>" so that the version is shown here.`
		}
		fmt.Fprintf(os.Stderr, "%s version %s\n", progName, progVersion)
		return
	}
	level := `warn`
	if *verbose {
		par.verbosity = infoVerbose
		level = `debug`
	}
	if *quiet {
		par.verbosity = infoSilent
		level = `error`
	}
	par.args = flag.Args()
	par.debugClass = *debugClass

	sanatizeParams(&par)
	lg, err := logger.New(`dev`, level)
	if err != nil {
		log.Fatalf("logger.New: error return %v", err)
	}

	if err := runLogged(context.Background(), par, lg); err != nil {
		log.Fatalf("%s: %v", progName, err)
	}
}
