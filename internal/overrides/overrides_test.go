package overrides

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/modelrun/internal/nested"
	"github.com/daryltucker/modelrun/internal/provenance"
)

func loadConfig(t *testing.T, src string) *nested.Document {
	t.Helper()
	d, err := nested.Load([]byte(src), "model.yaml", nested.NoImports)
	require.NoError(t, err)
	return d
}

const scenarioModel = `
run: {solver: glpk}
overrides:
  o1: {run.solver: gurobi}
  o2: {model.name: two}
  o3: {run.mode: operate}
  clash: {run.solver: cplex}
scenarios:
  s1: [o1, o2]
  s2: [s1, o3]
  s3: [s2, s1]
  single: o3
  "o1,o2": [o3]
  loop_a: [o1, loop_b]
  loop_b: [loop_a]
  selfish: [selfish]
  inline: [o1, {run.solver: x}]
  missing_member: [o1, nowhere]
`

func TestScenarioOverridesFlattening(t *testing.T) {
	config := loadConfig(t, scenarioModel)

	tests := []struct {
		name     string
		scenario string
		want     []string
		warn     bool
	}{
		{"plain", "s1", []string{"o1", "o2"}, false},
		{"nested", "s2", []string{"o1", "o2", "o3"}, false},
		{"diamond", "s3", []string{"o1", "o2", "o3"}, false},
		{"string member", "single", []string{"o3"}, false},
		{"ad hoc list", "o3, o1", []string{"o3", "o1"}, false},
		{"ad hoc with scenario", "s1,o3", []string{"o1", "o2", "o3"}, false},
		{"declared name with commas", "o1,o2", []string{"o3"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names, warnings, err := ScenarioOverrides(config, tt.scenario)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names)
			if tt.warn {
				require.Len(t, warnings, 1)
				assert.Contains(t, warnings[0], "includes commas that won't be parsed as a list of overrides")
			} else {
				assert.Empty(t, warnings)
			}
		})
	}
}

func TestScenarioOverridesErrors(t *testing.T) {
	config := loadConfig(t, scenarioModel)

	t.Run("cycle", func(t *testing.T) {
		_, _, err := ScenarioOverrides(config, "loop_a")
		var ce *CircularScenarioError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, []string{"loop_a", "loop_b", "loop_a"}, ce.Chain)
	})
	t.Run("self reference", func(t *testing.T) {
		_, _, err := ScenarioOverrides(config, "selfish")
		var ce *CircularScenarioError
		assert.ErrorAs(t, err, &ce)
	})
	t.Run("inline mapping member", func(t *testing.T) {
		_, _, err := ScenarioOverrides(config, "inline")
		var ie *InvalidScenarioError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, "Scenario definition must be a list of override or other scenario names.", err.Error())
	})
	t.Run("undefined member of declared scenario", func(t *testing.T) {
		_, _, err := ScenarioOverrides(config, "missing_member")
		var ie *InvalidScenarioError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, "nowhere", ie.Member)
	})
	t.Run("undefined ad hoc override", func(t *testing.T) {
		_, _, err := ScenarioOverrides(config, "o1,nowhere")
		var ue *UndefinedOverrideError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, "Override `nowhere` is not defined.", err.Error())
	})
}

func TestCombineDuplicateKey(t *testing.T) {
	config := loadConfig(t, scenarioModel)
	_, err := Combine(config, []string{"o1", "clash"})
	require.Error(t, err)

	var de *DuplicateKeyError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "run.solver", de.Key)
	assert.Equal(t, "clash", de.Override)
	assert.True(t, errors.Is(err, nested.ErrDuplicateKey))
	assert.Contains(t, err.Error(), "defined again in override `clash`")
}

func TestCombineUndefined(t *testing.T) {
	config := loadConfig(t, scenarioModel)
	_, err := Combine(config, []string{"ghost"})
	var ue *UndefinedOverrideError
	assert.ErrorAs(t, err, &ue)
}

func TestApplyPrecedence(t *testing.T) {
	config := loadConfig(t, `
model: {name: base}
run: {solver: glpk, mode: plan}
overrides:
  fast: {run.solver: gurobi, run.mode: operate}
`)
	dict := nested.MustFromMap(map[string]any{"run.solver": "cplex"})

	res, err := Apply(config, Options{Scenario: "fast", Dict: dict})
	require.NoError(t, err)

	assert.Equal(t, "cplex", res.Config.GetOr("run.solver", nil), "override dict beats scenario")
	assert.Equal(t, "operate", res.Config.GetOr("run.mode", nil), "scenario beats base")
	assert.Equal(t, "base", res.Config.GetOr("model.name", nil), "base beats defaults")
	assert.Equal(t, 1.0e-10, res.Config.GetOr("run.zero_threshold", nil), "defaults fill the gaps")
	assert.Equal(t, []string{"fast"}, res.AppliedOverrides)

	assert.Equal(t, provenance.OverriddenViaDictionary, res.Debug.Label("run.solver"))
	assert.Equal(t, provenance.AppliedFromOverride, res.Debug.Label("run.mode"))
	assert.Equal(t, "glpk", config.GetOr("run.solver", nil), "input is left untouched")
}

func TestApplyDropsPlaceholders(t *testing.T) {
	config := loadConfig(t, `
techs: {t: {essentials: {parent: supply}}}
nodes: {a: {techs: {t: null}}}
`)
	res, err := Apply(config, Options{})
	require.NoError(t, err)
	assert.False(t, res.Config.Has("techs.default_tech"))
	assert.False(t, res.Config.Has("nodes.default_node"))
	assert.False(t, res.Config.Has("links"), "links only held the placeholder")
	assert.True(t, res.Config.Has("techs.t"))
}

func TestApplyReplaceMarker(t *testing.T) {
	config := loadConfig(t, `
techs:
  t:
    constraints: {energy_cap_max: 10, energy_eff: 0.5}
overrides:
  wipe:
    techs.t.constraints._REPLACE_: {energy_cap_equals: 3}
`)
	res, err := Apply(config, Options{Scenario: "wipe"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"energy_cap_equals": 3}, res.Config.Doc("techs.t.constraints").AsMap())
}

func TestApplyCoordinateSystemSwap(t *testing.T) {
	config := loadConfig(t, `
nodes:
  a: {coordinates: {lat: 1, lon: 2}}
  b: {coordinates: {lat: 3, lon: 4}}
overrides:
  xy:
    nodes.a.coordinates: {x: 1, y: 2}
    nodes.b.coordinates: {x: 3, y: 4}
`)
	res, err := Apply(config, Options{Scenario: "xy"})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Updated from coordinate system {'lat', 'lon'} to {'x', 'y'}")
	assert.Equal(t, map[string]any{"x": 1, "y": 2}, res.Config.Doc("nodes.a.coordinates").AsMap())
}

func TestApplyRelativeTimeseriesPath(t *testing.T) {
	config := loadConfig(t, `
config_path: /models/eu/model.yaml
model: {timeseries_data_path: data}
`)
	res, err := Apply(config, Options{})
	require.NoError(t, err)
	assert.Equal(t, "/models/eu/data", res.Config.GetOr("model.timeseries_data_path", nil))
}
