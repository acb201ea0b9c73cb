package checks

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/modelrun/internal/provenance"
)

func TestFinalDepreciation(t *testing.T) {
	run := load(t, `
nodes:
  a:
    techs:
      ccgt:
        constraints: {lifetime: 2}
        costs: {monetary: {energy_cap: 100, interest_rate: 0.1}}
      free:
        constraints: {lifetime: 4}
        costs: {monetary: {energy_cap: 100, interest_rate: 0}}
      forever:
        constraints: {lifetime: .inf}
        costs: {monetary: {energy_cap: 100, interest_rate: 0.05}}
      broken:
        costs: {monetary: {purchase: 1}}
      running_only:
        costs: {monetary: {om_prod: 1}}
links:
  a,b:
    techs:
      hvac:
        constraints: {lifetime: 2}
        costs: {monetary: {energy_cap: 1, interest_rate: 0.1}}
`)
	debug := provenance.New()
	r := Final(run, debug)

	rate, ok := run.Float("nodes.a.techs.ccgt.costs.monetary.depreciation_rate")
	require.True(t, ok)
	assert.InDelta(t, 0.1*1.21/0.21, rate, 1e-12)
	assert.Equal(t, 0.25, run.GetOr("nodes.a.techs.free.costs.monetary.depreciation_rate", nil))
	assert.Equal(t, 0.0, run.GetOr("nodes.a.techs.forever.costs.monetary.depreciation_rate", nil))
	assert.False(t, run.Has("nodes.a.techs.running_only.costs.monetary.depreciation_rate"))

	links := run.Doc("links")
	raw, _ := links.Child("a,b")
	require.NotNil(t, raw)
	assert.True(t, debug.Has("links.a,b.techs.hvac.costs.monetary.depreciation_rate"))
	assert.Equal(t, "Computed from constraints.lifetime and costs.monetary.interest_rate",
		debug.Label("nodes.a.techs.ccgt.costs.monetary.depreciation_rate"))

	require.Len(t, r.Errors, 1)
	assert.Equal(t, "Must specify constraints.lifetime and costs.monetary.interest_rate when specifying fixed `monetary` costs for `broken`", r.Errors[0].Error())
	assert.Len(t, r.Warnings, 2)
}

func TestFinalDepreciationLongLifetime(t *testing.T) {
	run := load(t, `
nodes:
  a:
    techs:
      dam:
        constraints: {lifetime: 1000000}
        costs: {monetary: {energy_cap: 100, interest_rate: 0.1}}
`)
	r := Final(run, nil)

	rate, ok := run.Float("nodes.a.techs.dam.costs.monetary.depreciation_rate")
	require.True(t, ok)
	assert.False(t, math.IsNaN(rate))
	assert.Equal(t, 0.1, rate)
	assert.True(t, r.OK())
}
