package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/daryltucker/modelrun/internal/model"
)

// Loader returns the raw table behind one reference key.
type Loader interface {
	Load(key string) (model.Table, error)
}

// ErrNoTables is returned by a TableLoader that was given no tables at all.
var ErrNoTables = errors.New("no timeseries tables supplied")

// FileLoader reads `file=` references as CSV files relative to Dir.
type FileLoader struct {
	Dir string
}

// Load reads Dir/key.
func (l FileLoader) Load(key string) (model.Table, error) {
	path := key
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.Dir, key)
	}
	t, err := ReadCSV(path)
	if err != nil {
		return model.Table{}, fmt.Errorf("Error in loading timeseries from file=%s: %w", key, err)
	}
	return t, nil
}

// TableLoader serves `df=` references from tables supplied by the caller.
type TableLoader struct {
	Tables map[string]model.Table
}

// Load returns the table stored under key.
func (l TableLoader) Load(key string) (model.Table, error) {
	if l.Tables == nil {
		return model.Table{}, fmt.Errorf("Error in loading timeseries. Model config specifies df=%s but no timeseries tables were supplied. "+
			"Supply tables by name (for example with --timeseries %s=<path>) or use `file=...` with a CSV file: %w", key, key, ErrNoTables)
	}
	t, ok := l.Tables[key]
	if !ok {
		available := make([]string, 0, len(l.Tables))
		for k := range l.Tables {
			available = append(available, k)
		}
		sort.Strings(available)
		return model.Table{}, fmt.Errorf("Error in loading data from dataframe. Model attempted to load dataframe with key `%s`, but available dataframes are [%s]",
			key, strings.Join(available, ", "))
	}
	return t, nil
}

// ReadCSV reads a table whose first column is the index and whose first row
// holds the column names.
func ReadCSV(path string) (model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Table{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return model.Table{}, fmt.Errorf("failed to read CSV %s: %w", path, err)
	}
	if len(records) == 0 {
		return model.Table{}, fmt.Errorf("CSV %s is empty", path)
	}

	header := records[0]
	if len(header) < 2 {
		return model.Table{}, fmt.Errorf("CSV %s needs an index column and at least one data column", path)
	}
	t := model.Table{IndexName: header[0], Columns: header[1:]}
	for _, rec := range records[1:] {
		t.Index = append(t.Index, rec[0])
		t.Rows = append(t.Rows, rec[1:])
	}
	return t, nil
}
