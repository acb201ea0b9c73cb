/*
PURPOSE:
  Loads and validates every time series a model run refers to and joins
  them onto one time index.

REQUIREMENTS:
  User-specified:
  - `file=` references are CSV files under model.timeseries_data_path.
  - `df=` references are tables supplied by the caller; referring to one
    when none were supplied is an error.
  - Every value must be numeric and every index label must parse with
    model.timeseries_dateformat.
  - model.subset_time (two ISO datetimes) slices the joined data and must
    lie within it.
  - Missing values in any referenced series are an error.

  Implementation-discovered:
  - Series are outer-joined on their timestamps, so series with differing
    time ranges surface as missing data rather than silently shrinking.
  - Load, numeric and date problems are collected across every source
    before failing, so one run reports every broken file.
  - A model with no constraint time series is allowed and only warned about.

ARCHITECTURE INTEGRATION:
  - Called by: internal/preprocess.Build after node processing.
  - Uses: internal/checks.Report for findings, Loader implementations in
    load.go for data access.

ERROR HANDLING:
  - Findings go into the returned Report; a non-OK report means the
    returned Result must not be used.

RELATED FILES:
  - internal/timeseries/reference.go
  - internal/timeseries/dateformat.go
*/

package timeseries

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/daryltucker/modelrun/internal/checks"
	"github.com/daryltucker/modelrun/internal/model"
	"github.com/daryltucker/modelrun/internal/nested"
)

// Column is one loaded series.
type Column struct {
	Source string
	Key    string
	Name   string
	Values []float64
}

// Label is the "<key>:<column>" name of the series.
func (c Column) Label() string {
	return c.Key + ":" + c.Name
}

// Data is every loaded series on a shared time index.
type Data struct {
	Index   []time.Time
	Columns []Column
}

// Series returns the values of column name from source key.
func (d *Data) Series(key, name string) ([]float64, bool) {
	for _, c := range d.Columns {
		if c.Key == key && c.Name == name {
			return c.Values, true
		}
	}
	return nil, false
}

// Result is the time series part of a model run.
type Result struct {
	Data *Data
	// Vars names the constraint and cost variables fed by time series.
	Vars []string
}

// Process loads the time series referenced from nodes (constraint series) and
// from config's model section (clustering series).
func Process(config, nodes *nested.Document, tables map[string]model.Table) (*Result, checks.Report) {
	var r checks.Report
	res := &Result{Data: &Data{}, Vars: []string{}}

	constraintRefs, err := CollectReferences(nodes)
	if err != nil {
		r.AddError(err)
		return res, r
	}
	clusterRefs, err := CollectReferences(config.Doc("model"))
	if err != nil {
		r.AddError(err)
		return res, r
	}
	res.Vars = constraintRefs.Vars
	if len(constraintRefs.Sources) == 0 {
		r.Warnf("There is no timeseries in the model. The model run is built with static inputs only.")
	}

	sources := mergeSources(constraintRefs.Sources, clusterRefs.Sources)
	if len(sources) == 0 {
		return res, r
	}

	dateFormat := config.String("model.timeseries_dateformat", "%Y-%m-%d %H:%M:%S")
	layout, err := GoLayout(dateFormat)
	if err != nil {
		r.AddError(err)
		return res, r
	}

	loaders := map[string]Loader{
		model.SourceFile:      FileLoader{Dir: config.String("model.timeseries_data_path", "")},
		model.SourceDataFrame: TableLoader{Tables: tables},
	}
	var loaded []loadedTable
	for _, src := range sources {
		t, err := loaders[src.Source].Load(src.Key)
		if err != nil {
			r.AddError(err)
			continue
		}
		lt, ok := parseTable(&r, src, t, layout, dateFormat)
		if ok {
			loaded = append(loaded, lt)
		}
	}
	if !r.OK() {
		return res, r
	}

	for _, ref := range append(append([]model.Reference{}, constraintRefs.Columns...), clusterRefs.Columns...) {
		if ref.Column == "" {
			continue
		}
		if !hasColumn(loaded, ref) {
			r.Errorf("Column `%s` not found in timeseries data from `%s`", ref.Column, ref.Key)
		}
	}
	if !r.OK() {
		return res, r
	}

	data := join(loaded)
	if subset := config.GetOr("model.subset_time", nil); subset != nil {
		data, err = subsetTime(data, subset)
		if err != nil {
			r.AddError(err)
			return res, r
		}
	}

	var missing []string
	for _, c := range data.Columns {
		for _, v := range c.Values {
			if math.IsNaN(v) {
				missing = append(missing, c.Label())
				break
			}
		}
	}
	if len(missing) > 0 {
		r.Errorf("Missing data for the timeseries array(s) [%s].", strings.Join(missing, ", "))
		return res, r
	}

	res.Data = data
	return res, r
}

type loadedTable struct {
	ref     model.Reference
	index   []time.Time
	columns []string
	values  [][]float64 // per column
}

func parseTable(r *checks.Report, src model.Reference, t model.Table, layout, dateFormat string) (loadedTable, bool) {
	lt := loadedTable{ref: src, columns: t.Columns, values: make([][]float64, len(t.Columns))}
	ok := true
	for i, label := range t.Index {
		ts, err := time.Parse(layout, strings.TrimSpace(label))
		if err != nil {
			r.Errorf("Error in parsing dates in timeseries data from %s, using datetime format `%s`: %v", src.Key, dateFormat, err)
			return lt, false
		}
		lt.index = append(lt.index, ts)
		if i >= len(t.Rows) || len(t.Rows[i]) != len(t.Columns) {
			r.Errorf("Error in loading data from %s. Row %s does not have one value per column.", src.Key, label)
			return lt, false
		}
		for j, cell := range t.Rows[i] {
			v, err := parseCell(cell)
			if err != nil {
				r.Errorf("Error in loading data from %s. Ensure all entries are numeric. Full error: %v", src.Key, err)
				ok = false
				continue
			}
			lt.values[j] = append(lt.values[j], v)
		}
	}
	return lt, ok
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "", "nan", "na", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

func hasColumn(loaded []loadedTable, ref model.Reference) bool {
	for _, lt := range loaded {
		if lt.ref.Source != ref.Source || lt.ref.Key != ref.Key {
			continue
		}
		for _, c := range lt.columns {
			if c == ref.Column {
				return true
			}
		}
	}
	return false
}

// join outer-joins every table on its timestamps; absent cells are NaN.
func join(loaded []loadedTable) *Data {
	seen := make(map[time.Time]struct{})
	var index []time.Time
	for _, lt := range loaded {
		for _, ts := range lt.index {
			if _, ok := seen[ts]; !ok {
				seen[ts] = struct{}{}
				index = append(index, ts)
			}
		}
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })
	pos := make(map[time.Time]int, len(index))
	for i, ts := range index {
		pos[ts] = i
	}

	d := &Data{Index: index}
	for _, lt := range loaded {
		for j, name := range lt.columns {
			values := make([]float64, len(index))
			for i := range values {
				values[i] = math.NaN()
			}
			for i, ts := range lt.index {
				values[pos[ts]] = lt.values[j][i]
			}
			d.Columns = append(d.Columns, Column{Source: lt.ref.Source, Key: lt.ref.Key, Name: name, Values: values})
		}
	}
	return d
}

func subsetTime(d *Data, subset any) (*Data, error) {
	bounds, ok := subset.([]any)
	if !ok || len(bounds) != 2 {
		return nil, fmt.Errorf("subset_time must be a list of two datetime strings, not: %v", subset)
	}
	var parsed [2][2]time.Time
	for i, b := range bounds {
		s, isString := b.(string)
		if !isString {
			s = fmt.Sprint(b)
		}
		start, end, err := parseISO(s)
		if err != nil {
			return nil, fmt.Errorf("Timeseries subset must be in ISO format (anything up to the detail of `%%Y-%%m-%%d %%H:%%M:%%S`.\n User time subset: %v\n Error caused: %v", subset, err)
		}
		parsed[i] = [2]time.Time{start, end}
	}
	if len(d.Index) == 0 {
		return d, nil
	}

	first, last := d.Index[0], d.Index[len(d.Index)-1]
	if day(parsed[0][0]).Before(first) || day(parsed[1][0]).After(last) {
		return nil, fmt.Errorf("subset time range %v is outside the input data time range [%s, %s]",
			subset, first.Format("2006-01-02"), last.Format("2006-01-02"))
	}

	from, to := parsed[0][0], parsed[1][1]
	out := &Data{}
	var keep []int
	for i, ts := range d.Index {
		if !ts.Before(from) && ts.Before(to) {
			keep = append(keep, i)
			out.Index = append(out.Index, ts)
		}
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("The time slice %v creates an empty timeseries array.", subset)
	}
	for _, c := range d.Columns {
		values := make([]float64, len(keep))
		for k, i := range keep {
			values[k] = c.Values[i]
		}
		c.Values = values
		out.Columns = append(out.Columns, c)
	}
	return out, nil
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func mergeSources(a, b []model.Reference) []model.Reference {
	seen := make(map[model.Reference]struct{})
	var out []model.Reference
	for _, r := range append(append([]model.Reference{}, a...), b...) {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sortReferences(out)
	return out
}

// Records renders d as a header plus one row per timestep, for CSV export.
func (d *Data) Records() ([]string, [][]string) {
	header := []string{"timesteps"}
	for _, c := range d.Columns {
		header = append(header, c.Label())
	}
	rows := make([][]string, len(d.Index))
	for i, ts := range d.Index {
		row := []string{ts.Format("2006-01-02 15:04:05")}
		for _, c := range d.Columns {
			row = append(row, strconv.FormatFloat(c.Values[i], 'g', -1, 64))
		}
		rows[i] = row
	}
	return header, rows
}
