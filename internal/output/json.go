/*
PURPOSE:
  Writes resolved documents (model run, debug document) to disk as YAML or
  JSON.

REQUIREMENTS:
  User-specified:
  - model_run.yaml is always written; JSON is optional for machine parsing.

  Implementation-discovered:
  - Key order of the document is kept in both formats, so diffs between
    runs stay readable.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Consumes: *nested.Document

ERROR HANDLING:
  - Returns error on encoding or file write failure.

IMPLEMENTATION RULES:
  - JSON goes through encoding/json with the Document's ordered MarshalJSON.

USAGE:
  err := output.WriteYAML("out/model_run.yaml", run.Document)
  err := output.WriteJSON("out/model_run.json", run.Document)

RELATED FILES:
  - internal/nested/json.go
  - internal/nested/yaml.go

MAINTENANCE:
  - None specific.
*/

package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/daryltucker/modelrun/internal/nested"
)

// WriteYAML dumps doc as YAML to path, overwriting any existing file.
func WriteYAML(path string, doc *nested.Document) error {
	if err := doc.WriteFile(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteJSON writes doc as indented JSON to path, overwriting any existing file.
func WriteJSON(path string, doc *nested.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
