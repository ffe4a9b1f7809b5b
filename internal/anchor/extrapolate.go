package anchor

import (
	"errors"
	"fmt"
	"math"

	"github.com/524D/lipidnorm/internal/isotope"
	"github.com/524D/lipidnorm/internal/quant"
)

var ErrNoCalculator = errors.New("anchor: isotope extrapolation needs an isotope calculator")

// StandardArea returns the summed area of the first n isotopes of a
// standard. When fewer isotopes were measured, the area is extrapolated
// from the monoisotopic area with the theoretical isotope distribution of
// the formula. A missing observation gives NaN without error.
func StandardArea(obs *quant.Observation, formula string, n int, calc isotope.Calculator) (float64, error) {
	if obs == nil {
		return math.NaN(), nil
	}
	if n < 1 {
		n = 1
	}
	if obs.Depth() >= n {
		return obs.Area(n), nil
	}
	if obs.Depth() == 0 {
		return math.NaN(), nil
	}
	if calc == nil {
		return math.NaN(), ErrNoCalculator
	}
	dist, err := calc.Distribution(formula, n)
	if err != nil {
		return math.NaN(), fmt.Errorf("extrapolating %s: %w", obs.Name, err)
	}
	return isotope.Extrapolate(obs.IsotopeArea(0), dist, n), nil
}
