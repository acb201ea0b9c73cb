package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/modelrun/internal/assets"
	"github.com/daryltucker/modelrun/internal/nested"
	"github.com/daryltucker/modelrun/internal/output"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := output.Logger
	t.Cleanup(func() { output.SetLogger(prev) })
	chdir(t, t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestOverrideDict(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "overrides.yaml")
	require.NoError(t, os.WriteFile(file, []byte("run:\n  solver: gurobi\nmodel:\n  name: file\n"), 0o644))

	dict, err := overrideDict(file, []string{"run.solver=glpk", "run.zero_threshold=0.5", "model.subset_time=[2005-01-01, 2005-01-02]"})
	require.NoError(t, err)
	assert.Equal(t, "glpk", dict.GetOr("run.solver", nil))
	assert.Equal(t, "file", dict.GetOr("model.name", nil))
	assert.Equal(t, 0.5, dict.GetOr("run.zero_threshold", nil))
	assert.Equal(t, []any{"2005-01-01", "2005-01-02"}, dict.GetOr("model.subset_time", nil))

	none, err := overrideDict("", nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = overrideDict("", []string{"no-equals"})
	assert.ErrorContains(t, err, "expected key=value")
	_, err = overrideDict(filepath.Join(dir, "missing.yaml"), nil)
	assert.ErrorContains(t, err, "failed to load override file")
}

func TestParsePairs(t *testing.T) {
	got, err := parsePairs("--timeseries", []string{"demand=./demand.csv", "prices=p.csv"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"demand": "./demand.csv", "prices": "p.csv"}, got)

	_, err = parsePairs("--timeseries", []string{"demand="})
	assert.ErrorContains(t, err, "expected name=path")
}

func TestDefaultsExport(t *testing.T) {
	out, err := execute(t, "defaults", "export")
	require.NoError(t, err)
	assert.Equal(t, string(assets.DefaultsYAML), out)

	target := filepath.Join(t.TempDir(), "defaults.yaml")
	_, err = execute(t, "defaults", "export", target)
	require.NoError(t, err)
	d, err := nested.LoadFile(target, nested.NoImports)
	require.NoError(t, err)
	assert.True(t, d.Has("tech_groups.supply"))
}

func TestListScenarios(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	src := `
overrides:
  a: {run.solver: glpk}
  b: {model.name: b}
scenarios:
  both: [a, b]
  bad: [a, c]
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	out, err := execute(t, "list-scenarios", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Overrides:\n- a\n- b\n")
	assert.Contains(t, out, "- both: a, b\n")
	assert.Contains(t, out, "- bad: invalid (")
}

func TestInvalidLogLevelFlag(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "defaults", "export")
	assert.ErrorContains(t, err, "unknown log level")
	logLevel = "info"
}
