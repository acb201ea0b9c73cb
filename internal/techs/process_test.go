package techs

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/modelrun/internal/assets"
	"github.com/daryltucker/modelrun/internal/nested"
	"github.com/daryltucker/modelrun/internal/provenance"
)

// withDefaults layers src over the built-in defaults, like a model build does.
func withDefaults(t *testing.T, src string) *nested.Document {
	t.Helper()
	user, err := nested.Load([]byte(src), "model.yaml", nested.NoImports)
	require.NoError(t, err)
	d, err := assets.Defaults()
	require.NoError(t, err)
	require.NoError(t, d.Delete("techs.default_tech"))
	require.NoError(t, d.Union(user, nested.UnionOptions{AllowOverride: true}))
	return d
}

const groupModel = `
tech_groups:
  renewable: {essentials: {parent: supply, carrier: power}}
  solar_group: {essentials: {parent: renewable}}
  orphan_group: {essentials: {name: lost}}
  loop_a: {essentials: {parent: loop_b}}
  loop_b: {essentials: {parent: loop_a}}
  bad_group: {essentials: {parent: pv}}
techs:
  pv:
    essentials: {parent: solar_group, name: PV, color: '#ffcc00'}
    constraints: {energy_cap_max: 10, energy_cap_max_systemwide: 100}
  ccgt:
    essentials: {parent: supply, carrier_out: power}
  child_of_tech: {essentials: {parent: pv}}
  orphan: {essentials: {parent: orphan_group}}
  loopy: {essentials: {parent: loop_a}}
  undefined_parent: {essentials: {parent: nowhere}}
  via_bad_group: {essentials: {parent: bad_group}}
  no_parent: {essentials: {name: none}}
  disabled: {exists: false, essentials: {parent: pv}}
`

func TestParents(t *testing.T) {
	config := withDefaults(t, groupModel)

	chain, err := Parents(config, "pv")
	require.NoError(t, err)
	assert.Equal(t, []string{"solar_group", "renewable", "supply"}, chain)

	chain, err = Parents(config, "ccgt")
	require.NoError(t, err)
	assert.Equal(t, []string{"supply"}, chain)
}

func TestParentsErrors(t *testing.T) {
	config := withDefaults(t, groupModel)

	tests := []struct {
		tech  string
		check func(t *testing.T, err error)
	}{
		{"child_of_tech", func(t *testing.T, err error) {
			var e *InvalidParentTypeError
			require.ErrorAs(t, err, &e)
			assert.Contains(t, err.Error(), "tech `child_of_tech` has another tech as a parent")
		}},
		{"via_bad_group", func(t *testing.T, err error) {
			var e *InvalidParentTypeError
			require.ErrorAs(t, err, &e)
			assert.Contains(t, err.Error(), "tech_group `bad_group` has a tech as a parent")
		}},
		{"orphan", func(t *testing.T, err error) {
			var e *MissingParentError
			require.ErrorAs(t, err, &e)
			assert.Equal(t, "orphan_group", e.Name)
		}},
		{"no_parent", func(t *testing.T, err error) {
			var e *MissingParentError
			require.ErrorAs(t, err, &e)
			assert.Equal(t, "tech", e.Kind)
		}},
		{"loopy", func(t *testing.T, err error) {
			var e *UnresolvedInheritanceError
			require.ErrorAs(t, err, &e)
			assert.Contains(t, err.Error(), "inheritance loop")
		}},
		{"undefined_parent", func(t *testing.T, err error) {
			var e *UnresolvedInheritanceError
			require.ErrorAs(t, err, &e)
			assert.Equal(t, []string{"nowhere"}, e.Chain)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.tech, func(t *testing.T) {
			_, err := Parents(config, tt.tech)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestProcessCollectsEveryError(t *testing.T) {
	config := withDefaults(t, groupModel)
	res, err := Process(config)
	require.NoError(t, err)

	assert.Len(t, res.Errors, 6, "every broken tech is reported: %v", res.Errors)
	assert.True(t, res.Techs.Has("pv"))
	assert.True(t, res.Techs.Has("ccgt"))
	assert.False(t, res.Techs.Has("disabled"))
}

func TestProcessInheritance(t *testing.T) {
	config := withDefaults(t, groupModel)
	res, err := Process(config)
	require.NoError(t, err)

	pv := res.Techs.Doc("pv")
	require.NotNil(t, pv)
	assert.Equal(t, []any{"solar_group", "renewable", "supply"}, pv.GetOr("inheritance", nil))
	assert.Equal(t, "power", pv.GetOr("essentials.carrier", nil), "inherited from renewable")
	assert.Equal(t, "power", pv.GetOr("essentials.carrier_out", nil))
	assert.False(t, pv.Has("essentials.carrier_in"), "supply needs no carrier_in")
	assert.Equal(t, "#ffcc00", pv.GetOr("essentials.color", nil))
	assert.Equal(t, "PV", pv.GetOr("essentials.name", nil))
	assert.Equal(t, map[string]any{"energy_cap_max_systemwide": 100}, pv.Doc("constraints").AsMap())

	allowed, _ := pv.GetOr("allowed_constraints", nil).([]any)
	assert.Contains(t, allowed, "energy_cap_max")
	assert.Equal(t, "From parent tech_group `renewable`", res.Debug.Label("pv.essentials.carrier"))
}

func TestProcessCarrierRules(t *testing.T) {
	config := withDefaults(t, `
techs:
  demand_ok: {essentials: {parent: demand, carrier: heat}}
  demand_bad: {essentials: {parent: demand}}
  storage_bad: {essentials: {parent: storage}}
  conv_bad: {essentials: {parent: conversion, carrier_out: power}}
  conv_ok: {essentials: {parent: conversion, carrier_in: gas, carrier_out: power}}
  supply_bad: {essentials: {parent: supply}}
`)
	res, err := Process(config)
	require.NoError(t, err)

	assert.Equal(t, "heat", res.Techs.GetOr("demand_ok.essentials.carrier_in", nil))
	assert.False(t, res.Techs.Has("demand_ok.essentials.carrier_out"))
	assert.Equal(t, "Set from essentials.carrier", res.Debug.Label("demand_ok.essentials.carrier_in"))

	var msgs []string
	for _, e := range res.Errors {
		var ce *CarrierError
		require.ErrorAs(t, e, &ce)
		msgs = append(msgs, e.Error())
	}
	assert.ElementsMatch(t, []string{
		"`carrier` or `carrier_in` must be defined for `demand_bad`",
		"`carrier` or `carrier_in` must be defined for `storage_bad`",
		"`carrier` or `carrier_out` must be defined for `storage_bad`",
		"`carrier_in` must be defined for `conv_bad`",
		"`carrier` or `carrier_out` must be defined for `supply_bad`",
	}, msgs)
}

func TestProcessPrimaryCarriers(t *testing.T) {
	config := withDefaults(t, `
techs:
  single:
    essentials: {parent: conversion_plus, carrier_in: gas, carrier_out: power}
  multi_in:
    essentials: {parent: conversion_plus, carrier_in: [gas, coal], carrier_out: power}
  wrong_in:
    essentials: {parent: conversion_plus, carrier_in: gas, carrier_in_2: oil, primary_carrier_in: coal, carrier_out: power}
  wrong_out:
    essentials:
      parent: conversion_plus
      carrier_in: gas
      carrier_out: power
      carrier_out_2: [heat]
      primary_carrier_out: coal
  tiers:
    essentials:
      parent: conversion_plus
      carrier_in: gas
      carrier_out: power
      carrier_out_2: heat
      primary_carrier_out: heat
`)
	res, err := Process(config)
	require.NoError(t, err)

	assert.Equal(t, "gas", res.Techs.GetOr("single.essentials.primary_carrier_in", nil))
	assert.Equal(t, "power", res.Techs.GetOr("single.essentials.primary_carrier_out", nil))
	assert.Equal(t, "heat", res.Techs.GetOr("tiers.essentials.primary_carrier_out", nil))

	var joined []string
	for _, e := range res.Errors {
		joined = append(joined, e.Error())
	}
	all := strings.Join(joined, "\n")
	assert.Contains(t, all, "Primary_carrier_in must be assigned for tech `multi_in` as there are multiple carriers_in")
	assert.Contains(t, all, "Primary_carrier_in `coal` not one of the available carriers_in for `wrong_in`")
	assert.Contains(t, all, "Primary_carrier_out `coal` not one of the available carriers_out for `wrong_out`")
	assert.Len(t, res.Errors, 3)
}

func TestProcessPaletteCycles(t *testing.T) {
	var b strings.Builder
	b.WriteString("techs:\n")
	for i := 0; i < 11; i++ {
		fmt.Fprintf(&b, "  t%02d: {essentials: {parent: demand, carrier: power}}\n", i)
	}
	b.WriteString("  colored: {essentials: {parent: demand, carrier: power, color: '#000000'}}\n")
	b.WriteString("  t11: {essentials: {parent: demand, carrier: power}}\n")

	res, err := Process(withDefaults(t, b.String()))
	require.NoError(t, err)
	require.Empty(t, res.Errors)

	for i := 0; i < 10; i++ {
		assert.Equal(t, Palette[i], res.Techs.GetOr(fmt.Sprintf("t%02d.essentials.color", i), nil))
	}
	assert.Equal(t, Palette[0], res.Techs.GetOr("t10.essentials.color", nil), "11th colorless tech wraps around")
	assert.Equal(t, "#000000", res.Techs.GetOr("colored.essentials.color", nil))
	assert.Equal(t, Palette[1], res.Techs.GetOr("t11.essentials.color", nil), "explicit colors do not advance the palette")
	assert.Equal(t, provenance.FromDefaultPalette, res.Debug.Label("t00.essentials.color"))
}

func TestGroups(t *testing.T) {
	config := withDefaults(t, `
tech_groups:
  renewable: {essentials: {parent: supply}}
techs:
  wind: {essentials: {parent: renewable, carrier: power}}
  pv: {essentials: {parent: renewable, carrier: power}}
  load: {essentials: {parent: demand, carrier: power}}
`)
	res, err := Process(config)
	require.NoError(t, err)

	groups := Groups(config, res.Techs)
	assert.Equal(t, []any{"pv", "wind"}, groups.GetOr("renewable", nil))
	assert.Equal(t, []any{"pv", "wind"}, groups.GetOr("supply", nil))
	assert.Equal(t, []any{"load"}, groups.GetOr("demand", nil))
	assert.Equal(t, []any{}, groups.GetOr("storage", nil))
}
