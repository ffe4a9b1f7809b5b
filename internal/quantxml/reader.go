package quantxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/524D/lipidnorm/internal/quant"
)

// Read reads quantification results from io.reader
func Read(reader io.Reader) (QuantXML, error) {
	var q QuantXML
	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel
	err := d.Decode(&q.content)
	if err != nil {
		return q, err
	}
	err = q.checkClasses()
	return q, err
}

// checkClasses rejects files that list a class twice
func (q *QuantXML) checkClasses() error {
	seen := make(map[string]bool, len(q.content.Class))
	for _, c := range q.content.Class {
		if seen[c.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateClass, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// ExperimentName returns the experiment name stored in the file, which may
// be empty
func (q *QuantXML) ExperimentName() string {
	return q.content.Experiment
}

// NumClasses returns the number of classes in the file
func (q *QuantXML) NumClasses() int {
	return len(q.content.Class)
}

// ClassName returns the name of class i. The index runs from 0 to
// NumClasses()-1, in file order.
func (q *QuantXML) ClassName(i int) (string, error) {
	if i < 0 || i >= len(q.content.Class) {
		return ``, ErrInvalidClassIndex
	}
	return q.content.Class[i].Name, nil
}

// Observations returns the analytes of class i
func (q *QuantXML) Observations(i int) ([]quant.Observation, error) {
	if i < 0 || i >= len(q.content.Class) {
		return nil, ErrInvalidClassIndex
	}
	c := q.content.Class[i]
	obs := make([]quant.Observation, 0, len(c.Analyte))
	for _, a := range c.Analyte {
		o := quant.Observation{
			Name:        a.Name,
			DoubleBonds: a.DBs,
			Mass:        a.Mass,
			Formula:     a.Formula,
			RT:          strings.TrimSpace(a.RT),
		}
		for _, m := range a.Mod {
			mr := quant.ModResult{Name: m.Name}
			for _, iso := range m.Isotope {
				area, err := parseArea(iso.Area)
				if err != nil {
					return nil, fmt.Errorf("class %s, analyte %s, mod %s: %w", c.Name, a.Name, m.Name, err)
				}
				mr.Areas = append(mr.Areas, area)
				mr.MultiPeak = append(mr.MultiPeak, iso.MultiPeak)
			}
			o.Mods = append(o.Mods, mr)
		}
		obs = append(obs, o)
	}
	return obs, nil
}

// parseArea accepts an empty area as 0, "not found"
func parseArea(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == `` {
		return 0, nil
	}
	a, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidArea, s)
	}
	return a, nil
}

// Experiment converts the file content to an experiment
func (q *QuantXML) Experiment() (quant.Experiment, error) {
	exp := quant.Experiment{
		Name:    q.content.Experiment,
		Classes: make(map[string][]quant.Observation, len(q.content.Class)),
	}
	for i := 0; i < q.NumClasses(); i++ {
		name, err := q.ClassName(i)
		if err != nil {
			return exp, err
		}
		obs, err := q.Observations(i)
		if err != nil {
			return exp, err
		}
		exp.ClassOrder = append(exp.ClassOrder, name)
		exp.Classes[name] = obs
	}
	return exp, nil
}

// ReadFile reads one experiment from a file. Without an experiment name in
// the file, the file name without extension is used.
func ReadFile(path string) (quant.Experiment, error) {
	f, err := os.Open(path)
	if err != nil {
		return quant.Experiment{}, err
	}
	defer f.Close()
	q, err := Read(f)
	if err != nil {
		return quant.Experiment{}, fmt.Errorf("%s: %w", path, err)
	}
	exp, err := q.Experiment()
	if err != nil {
		return exp, fmt.Errorf("%s: %w", path, err)
	}
	if exp.Name == `` {
		base := filepath.Base(path)
		exp.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if exp.Name == `` {
		return exp, fmt.Errorf("%s: %w", path, ErrNoExperimentName)
	}
	return exp, nil
}
