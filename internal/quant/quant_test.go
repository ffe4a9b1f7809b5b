package quant

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testObs() *Observation {
	return &Observation{
		Name: "PC 34:1",
		Mods: []ModResult{
			{Name: "H", Areas: []float64{100, 40}, MultiPeak: []bool{false, true}},
			{Name: "Na", Areas: []float64{10}},
		},
	}
}

func TestArea(t *testing.T) {
	o := testObs()
	assert.Equal(t, 2, o.Depth())
	assert.Equal(t, 110.0, o.Area(1))
	assert.Equal(t, 150.0, o.Area(2))
	assert.True(t, math.IsNaN(o.Area(3)))
	assert.False(t, o.MultiPeak(1))
	assert.True(t, o.MultiPeak(2))
	assert.Equal(t, []string{"H", "Na"}, o.ModNames())
	assert.False(t, o.IsNull())
}

func TestMerge(t *testing.T) {
	o := testObs()
	orig := o.Clone()
	o.Merge(&Observation{Mods: []ModResult{
		{Name: "Na", Areas: []float64{5, 2}, MultiPeak: []bool{true}},
		{Name: "NH4", Areas: []float64{7}},
	}})
	assert.True(t, o.Combined)
	assert.Equal(t, []float64{15, 2}, o.Mods[1].Areas)
	assert.True(t, o.Mods[1].MultiPeak[0])
	assert.Equal(t, "NH4", o.Mods[2].Name)
	assert.Equal(t, 122.0, o.Area(1))
	// The clone must not be affected
	assert.Equal(t, 110.0, orig.Area(1))
	assert.False(t, orig.Combined)
}

func TestIsNull(t *testing.T) {
	o := &Observation{Mods: []ModResult{{Name: "H", Areas: []float64{0, 0}}}}
	assert.True(t, o.IsNull())
	assert.Empty(t, o.ModNames())
}
