/*
PURPOSE:
  Writes tabular by-products of a model run to CSV: the provenance of every
  resolved value, and the joined time series.

REQUIREMENTS:
  User-specified:
  - Output to CSV.

  Implementation-discovered:
  - Provenance rows are written one by one as the engine walks the debug
    document, so the writer keeps its file handle open and flushes per row.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Consumes: internal/model.ProvenanceRecord, rows from timeseries.Data.Records

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write.
  - Mutex guards the writer so callers may share it.

USAGE:
  w, err := output.NewCSVWriter("provenance.csv")
  w.Write(model.ProvenanceRecord{Key: "run.solver", Label: "Applied from override"})
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - If the provenance record changes, update header and record conversion.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update Write() mapping when ProvenanceRecord changes.
*/

package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/daryltucker/modelrun/internal/model"
)

// CSVWriter handles writing provenance records to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates a new CSVWriter.
// It overwrites the file if it exists.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"key", "label"}); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()

	return &CSVWriter{
		file:   f,
		writer: w,
	}, nil
}

// Write writes a single provenance record.
// It is thread-safe.
func (cw *CSVWriter) Write(r model.ProvenanceRecord) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if err := cw.writer.Write([]string{r.Key, r.Label}); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	return cw.file.Close()
}

// WriteTableCSV writes header and rows to path in one go.
func WriteTableCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}
