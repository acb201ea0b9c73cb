package timeseries

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/modelrun/internal/checks"
	"github.com/daryltucker/modelrun/internal/model"
	"github.com/daryltucker/modelrun/internal/nested"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func doc(t *testing.T, src string) *nested.Document {
	t.Helper()
	d, err := nested.Load([]byte(src), "test.yaml", nested.NoImports)
	require.NoError(t, err)
	return d
}

func errorTexts(r checks.Report) string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		in   any
		want model.Reference
		ok   bool
	}{
		{"file=demand.csv:node1", model.Reference{Source: "file", Key: "demand.csv", Column: "node1"}, true},
		{"file=demand.csv", model.Reference{Source: "file", Key: "demand.csv"}, true},
		{"df=heat:a:b", model.Reference{Source: "df", Key: "heat:a", Column: "b"}, true},
		{"power", model.Reference{}, false},
		{12, model.Reference{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseReference(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestCollectReferences(t *testing.T) {
	nodes := doc(t, `
a:
  techs:
    load: {constraints: {resource: file=demand.csv:a}}
    pv:
      constraints: {resource: df=solar:a}
      costs: {monetary: {om_prod: file=prices.csv:a}}
    chp: {constraints: {carrier_ratios: {carrier_out_2: {heat: df=solar:ratio}}}}
b:
  techs:
    load: {constraints: {resource: file=demand.csv:b}}
`)
	refs, err := CollectReferences(nodes)
	require.NoError(t, err)

	want := []model.Reference{
		{Source: "df", Key: "solar"},
		{Source: "file", Key: "demand.csv"},
		{Source: "file", Key: "prices.csv"},
	}
	if diff := cmp.Diff(want, refs.Sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, refs.Columns, 5)
	assert.Equal(t, []string{"carrier_ratios", "cost_om_prod", "resource"}, refs.Vars)

	_, err = CollectReferences(doc(t, `a: {techs: {x: {constraints: {resource: "db=table"}}}}`))
	assert.ErrorContains(t, err, "unrecognised timeseries data source `db`")
}

func TestGoLayout(t *testing.T) {
	layout, err := GoLayout("%Y-%m-%d %H:%M:%S")
	require.NoError(t, err)
	assert.Equal(t, "2006-01-02 15:04:05", layout)

	layout, err = GoLayout("%d/%m/%y %H:%M")
	require.NoError(t, err)
	ts, err := time.Parse(layout, "31/01/05 13:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2005, 1, 31, 13, 30, 0, 0, time.UTC), ts)

	_, err = GoLayout("%Q")
	assert.Error(t, err)
}

const demandCSV = `,a,b
2005-01-01 00:00:00,1,2
2005-01-01 01:00:00,3,4
2005-01-02 00:00:00,5,6
2005-01-03 00:00:00,7,8
`

func timeseriesConfig(dir, extra string) string {
	return `
model:
  timeseries_data_path: ` + dir + `
  timeseries_dateformat: '%Y-%m-%d %H:%M:%S'
` + extra
}

func TestProcessFromFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "demand.csv", demandCSV)

	config := doc(t, timeseriesConfig(dir, ""))
	nodes := doc(t, `a: {techs: {load: {constraints: {resource: file=demand.csv:a}}}}`)

	res, r := Process(config, nodes, nil)
	require.True(t, r.OK(), errorTexts(r))
	assert.Empty(t, r.Warnings)
	assert.Equal(t, []string{"resource"}, res.Vars)
	require.Len(t, res.Data.Index, 4)

	values, ok := res.Data.Series("demand.csv", "b")
	require.True(t, ok)
	assert.Equal(t, []float64{2, 4, 6, 8}, values)
}

func TestProcessSubsetTime(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "demand.csv", demandCSV)
	nodes := doc(t, `a: {techs: {load: {constraints: {resource: file=demand.csv:a}}}}`)

	tests := []struct {
		name   string
		subset string
		rows   int
		err    string
	}{
		{"whole first day", "['2005-01-01', '2005-01-01']", 2, ""},
		{"two days", "['2005-01-01', '2005-01-02']", 3, ""},
		{"outside", "['2004-12-31', '2005-01-02']", 0, "is outside the input data time range [2005-01-01, 2005-01-03]"},
		{"not a list", "'2005-01-01'", 0, "subset_time must be a list of two datetime strings"},
		{"bad format", "['2005/01/01', '2005-01-02']", 0, "Timeseries subset must be in ISO format"},
		{"empty", "['2005-01-01 02:00', '2005-01-01 03:00']", 0, "creates an empty timeseries array"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := doc(t, timeseriesConfig(dir, "  subset_time: "+tt.subset+"\n"))
			res, r := Process(config, nodes, nil)
			if tt.err != "" {
				assert.Contains(t, errorTexts(r), tt.err)
				return
			}
			require.True(t, r.OK(), errorTexts(r))
			assert.Len(t, res.Data.Index, tt.rows)
		})
	}
}

func TestProcessFromTables(t *testing.T) {
	config := doc(t, timeseriesConfig(".", ""))
	nodes := doc(t, `a: {techs: {pv: {constraints: {resource: df=solar:a}}}}`)
	tables := map[string]model.Table{
		"solar": {
			Index:   []string{"2005-01-01 00:00:00", "2005-01-01 01:00:00"},
			Columns: []string{"a"},
			Rows:    [][]string{{"0.1"}, {"0.2"}},
		},
	}

	res, r := Process(config, nodes, tables)
	require.True(t, r.OK(), errorTexts(r))
	values, ok := res.Data.Series("solar", "a")
	require.True(t, ok)
	assert.Equal(t, []float64{0.1, 0.2}, values)

	_, r = Process(config, nodes, nil)
	require.Len(t, r.Errors, 1)
	assert.ErrorIs(t, r.Errors[0], ErrNoTables)

	_, r = Process(config, nodes, map[string]model.Table{"wind": {}})
	assert.Contains(t, errorTexts(r), "Model attempted to load dataframe with key `solar`, but available dataframes are [wind]")
}

func TestProcessValidationErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "words.csv", ",a\n2005-01-01 00:00:00,one\n")
	writeFile(t, dir, "dates.csv", ",a\nyesterday,1\n")
	writeFile(t, dir, "short.csv", ",a\n2005-01-01 00:00:00,1\n")
	writeFile(t, dir, "long.csv", ",a\n2005-01-01 00:00:00,1\n2005-01-01 01:00:00,2\n")
	writeFile(t, dir, "gaps.csv", ",a\n2005-01-01 00:00:00,\n")

	config := doc(t, timeseriesConfig(dir, ""))

	nodes := doc(t, `
a:
  techs:
    x: {constraints: {resource: file=words.csv:a}}
    y: {constraints: {resource: file=dates.csv:a}}
    z: {constraints: {resource: file=absent.csv:a}}
`)
	_, r := Process(config, nodes, nil)
	errs := errorTexts(r)
	assert.Contains(t, errs, "Error in loading data from words.csv. Ensure all entries are numeric.")
	assert.Contains(t, errs, "Error in parsing dates in timeseries data from dates.csv, using datetime format `%Y-%m-%d %H:%M:%S`")
	assert.Contains(t, errs, "Error in loading timeseries from file=absent.csv")
	assert.Len(t, r.Errors, 3, "every broken source is reported")

	_, r = Process(config, doc(t, `a: {techs: {x: {constraints: {resource: file=short.csv:a, energy_eff: file=long.csv:a}}}}`), nil)
	assert.Contains(t, errorTexts(r), "Missing data for the timeseries array(s) [short.csv:a].")

	_, r = Process(config, doc(t, `a: {techs: {x: {constraints: {resource: file=gaps.csv:a}}}}`), nil)
	assert.Contains(t, errorTexts(r), "Missing data for the timeseries array(s) [gaps.csv:a].")

	_, r = Process(config, doc(t, `a: {techs: {x: {constraints: {resource: file=long.csv:c}}}}`), nil)
	assert.Contains(t, errorTexts(r), "Column `c` not found in timeseries data from `long.csv`")
}

func TestProcessWithoutTimeseriesWarns(t *testing.T) {
	res, r := Process(doc(t, `model: {name: static}`), doc(t, `a: {techs: {pv: {constraints: {energy_cap_max: 1}}}}`), nil)
	assert.True(t, r.OK())
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "There is no timeseries in the model")
	assert.Empty(t, res.Data.Index)
	assert.Equal(t, []string{}, res.Vars)
}
