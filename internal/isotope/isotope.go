// Package isotope computes theoretical isotope intensity distributions
// from chemical formulas
package isotope

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Abundances of the stable isotopes, indexed by the nominal mass offset
// from the lightest isotope
var elements = map[string][]float64{
	"H":  {0.999885, 0.000115},
	"D":  {1.0},
	"C":  {0.9893, 0.0107},
	"N":  {0.99636, 0.00364},
	"O":  {0.99757, 0.00038, 0.00205},
	"P":  {1.0},
	"S":  {0.9499, 0.0075, 0.0425, 0, 0.0001},
	"Na": {1.0},
	"K":  {0.932581, 0.000117, 0.067302},
	"Li": {0.0759, 0.9241},
	"Cl": {0.7576, 0, 0.2424},
	"F":  {1.0},
	"I":  {1.0},
	"Br": {0.5069, 0, 0.4931},
}

var (
	ErrInvalidFormula  = errors.New("isotope: invalid chemical formula")
	ErrUnknownElement  = errors.New("isotope: unknown element")
	ErrInvalidIsotopes = errors.New("isotope: number of isotopes must be positive")
)

// Formula maps element symbols to their count
type Formula map[string]int

var formulaRe = regexp.MustCompile(`([A-Z][a-z]?)\s*(-?\d*)`)

// ParseFormula parses formulas such as "C42H82NO8P" or "C 42 H 82 N 1 O 8 P 1"
func ParseFormula(s string) (Formula, error) {
	s = strings.TrimSpace(s)
	if s == `` {
		return nil, ErrInvalidFormula
	}
	f := make(Formula)
	rest := formulaRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := formulaRe.FindStringSubmatch(m)
		n := 1
		if sub[2] != `` {
			n, _ = strconv.Atoi(sub[2])
		}
		f[sub[1]] += n
		return ``
	})
	if strings.TrimSpace(rest) != `` {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormula, s)
	}
	for el, n := range f {
		if _, ok := elements[el]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownElement, el)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: negative count for %s", ErrInvalidFormula, el)
		}
		if n == 0 {
			delete(f, el)
		}
	}
	return f, nil
}

// Calculator returns the theoretical relative intensities of the first n
// isotopes (index 0 = monoisotopic) of a chemical formula
type Calculator interface {
	Distribution(formula string, n int) ([]float64, error)
}

// Natural computes distributions from natural isotope abundances
type Natural struct{}

// Distribution implements Calculator. Intensities are relative to the
// monoisotopic peak, so the first value is always 1.
func (Natural) Distribution(formula string, n int) ([]float64, error) {
	if n < 1 {
		return nil, ErrInvalidIsotopes
	}
	f, err := ParseFormula(formula)
	if err != nil {
		return nil, err
	}
	// Process elements in a fixed order so that rounding is reproducible
	els := make([]string, 0, len(f))
	for el := range f {
		els = append(els, el)
	}
	sort.Strings(els)

	dist := []float64{1.0}
	for _, el := range els {
		ab := truncate(elements[el], n)
		for i := 0; i < f[el]; i++ {
			dist = convolve(dist, ab, n)
		}
	}
	for len(dist) < n {
		dist = append(dist, 0)
	}
	if dist[0] <= 0 {
		return nil, fmt.Errorf("%w: no monoisotopic abundance", ErrInvalidFormula)
	}
	base := dist[0]
	for i := range dist {
		dist[i] /= base
	}
	return dist, nil
}

func truncate(a []float64, n int) []float64 {
	if len(a) > n {
		return a[:n]
	}
	return a
}

// convolve multiplies two abundance polynomials, keeping the first n terms
func convolve(a, b []float64, n int) []float64 {
	size := len(a) + len(b) - 1
	if size > n {
		size = n
	}
	out := make([]float64, size)
	for i, x := range a {
		if x == 0 {
			continue
		}
		for j, y := range b {
			if i+j >= size {
				break
			}
			out[i+j] += x * y
		}
	}
	return out
}

// Extrapolate estimates the summed area of the first n isotopes from the
// monoisotopic area and a theoretical distribution relative to the
// monoisotopic peak
func Extrapolate(area0 float64, dist []float64, n int) float64 {
	sum := float64(0)
	for i := 0; i < n && i < len(dist); i++ {
		sum += dist[i]
	}
	return area0 * sum
}
