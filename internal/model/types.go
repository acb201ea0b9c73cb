/*
PURPOSE:
  Shared boundary types for time series input. These are the shapes a caller
  hands to a model build and the shapes the build hands back.

REQUIREMENTS:
  User-specified:
  - Time series may come from CSV files (`file=`) or from tables supplied by
    the caller (`df=`).

  Implementation-discovered:
  - Tables are kept as raw strings so numeric and date validation happens
    in one place (internal/timeseries) with one set of error messages.

ARCHITECTURE INTEGRATION:
  - Used by: internal/timeseries, internal/preprocess, internal/cli, internal/output
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Keep structs simple and public.

USAGE:
  tables := map[string]model.Table{"demand": {Index: idx, Columns: cols, Rows: rows}}

RELATED FILES:
  - internal/timeseries/reference.go
  - internal/timeseries/load.go
*/

package model

// Table is a raw time-indexed table: one index label per row and one cell per
// column in each row.
type Table struct {
	IndexName string     `json:"index_name,omitempty"`
	Index     []string   `json:"index"`
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
}

// Reference is a parsed `file=<path>[:<column>]` or `df=<key>[:<column>]`
// configuration value.
type Reference struct {
	Source string `json:"source"` // "file" or "df"
	Key    string `json:"key"`
	Column string `json:"column,omitempty"`
}

// Source kinds of a Reference.
const (
	SourceFile      = "file"
	SourceDataFrame = "df"
)

// ProvenanceRecord is one row of the provenance export.
type ProvenanceRecord struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}
