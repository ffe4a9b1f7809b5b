package rtcluster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/524D/lipidnorm/internal/quant"
)

func obs(rt string, area float64) *quant.Observation {
	return &quant.Observation{
		Name: "PC 34:1",
		RT:   rt,
		Mods: []quant.ModResult{{Name: "H", Areas: []float64{area}}},
	}
}

func TestGroupToleranceBoundary(t *testing.T) {
	hits := []Hit{
		{Experiment: 0, RT: "5.00", Obs: obs("5.00", 10)},
		{Experiment: 1, RT: "5.09", Obs: obs("5.09", 20)},
	}

	c := Group(hits, 0.1, nil)
	require.Len(t, c, 1)
	assert.InDelta(t, 5.045, c[0].RT, 1e-9)
	assert.Len(t, c[0].Members, 2)

	c = Group(hits, 0.05, nil)
	require.Len(t, c, 2)
	assert.InDelta(t, 5.00, c[0].RT, 1e-9)
	assert.InDelta(t, 5.09, c[1].RT, 1e-9)
}

func TestGroupDeterministic(t *testing.T) {
	hits := []Hit{
		{Experiment: 0, RT: "5.00", Obs: obs("5.00", 1)},
		{Experiment: 0, RT: "7.00", Obs: obs("7.00", 2)},
		{Experiment: 1, RT: "5.03", Obs: obs("5.03", 3)},
		{Experiment: 1, RT: "6.98", Obs: obs("6.98", 4)},
		{Experiment: 2, RT: "7.04", Obs: obs("7.04", 5)},
	}
	first := Group(hits, 0.1, nil)
	for i := 0; i < 5; i++ {
		again := Group(hits, 0.1, nil)
		require.Equal(t, len(first), len(again))
		for k := range first {
			assert.Equal(t, first[k].RT, again[k].RT)
		}
	}
	require.Len(t, first, 2)
	assert.Len(t, first[0].Members, 2)
	assert.Len(t, first[1].Members, 3)
	assert.InDelta(t, (7.00+6.98+7.04)/3, first[1].RT, 1e-9)
}

// A hit whose only window mate was already claimed by a closer hit joins
// that cluster via the side table, and is merged with the experiment's
// other contribution.
func TestGroupSideTableFallback(t *testing.T) {
	hits := []Hit{
		{Experiment: 0, RT: "5.00", Obs: obs("5.00", 10)},
		{Experiment: 1, RT: "5.02", Obs: obs("5.02", 20)},
		{Experiment: 1, RT: "5.08", Obs: obs("5.08", 30)},
	}
	c := Group(hits, 0.1, nil)
	require.Len(t, c, 1)
	m := c[0].Members[1]
	require.NotNil(t, m)
	assert.Equal(t, 50.0, m.Area(1))
	assert.True(t, m.Combined)
	assert.Equal(t, "5.05", m.RT)
	assert.InDelta(t, (5.00+5.02+5.08)/3, c[0].RT, 1e-9)
	// Input observations are untouched
	assert.Equal(t, 20.0, hits[1].Obs.Area(1))
}

func TestGroupUntimedAndUnparseable(t *testing.T) {
	hits := []Hit{
		{Experiment: 0, RT: "", Obs: obs("", 10)},
		{Experiment: 1, RT: "n/a", Obs: obs("n/a", 20)},
		{Experiment: 2, RT: "3.2", Obs: obs("3.2", 30)},
	}
	c := Group(hits, 0.1, nil)
	require.Len(t, c, 2)
	assert.False(t, c[0].HasRT)
	assert.Len(t, c[0].Members, 2)
	assert.True(t, c[1].HasRT)
}

func TestGroupDisabled(t *testing.T) {
	hits := []Hit{
		{Experiment: 0, RT: "5.00", Obs: obs("5.00", 10)},
		{Experiment: 1, RT: "5.01", Obs: obs("5.01", 20)},
		{Experiment: 2, RT: "5.00", Obs: obs("5.00", 30)},
	}
	for _, tol := range []float64{0, -1} {
		c := Group(hits, tol, nil)
		require.Len(t, c, 2)
		assert.Len(t, c[0].Members, 2)
		assert.Len(t, c[1].Members, 1)
	}
}

func TestCanonicalize(t *testing.T) {
	classObs := [][]quant.Observation{
		{*obs("5.00", 1), {Name: "IS PC 31:1", Mods: []quant.ModResult{{Name: "H", Areas: []float64{9}}}}},
		{*obs("5.06", 2)},
	}
	mols := Canonicalize(classObs, 0.1, nil)
	require.Len(t, mols, 2)
	assert.Equal(t, "PC 34:1_5.03", mols[0].ID)
	assert.NotNil(t, mols[0].Obs[0])
	assert.NotNil(t, mols[0].Obs[1])
	assert.Equal(t, "IS PC 31:1", mols[1].ID)
	assert.Nil(t, mols[1].Obs[1])
	assert.False(t, math.IsNaN(mols[1].Obs[0].Area(1)))
}
