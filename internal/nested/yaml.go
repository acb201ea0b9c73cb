/*
PURPOSE:
  YAML text <-> Document, plus expansion of `import:` directives.

REQUIREMENTS:
  User-specified:
  - Imports may be disabled, expanded at the top level, or expanded under one dotted path.
  - Imported content is a base layer; the importing document wins on conflicts.
  - Relative imports resolve against the importing file's directory.

  Implementation-discovered:
  - yaml.v3's Node API keeps mapping order and line numbers, so decoding goes
    through nodes instead of map[string]any.
  - Parse errors from yaml.v3 are plain strings ("yaml: line N: ..."); the line
    number is recovered for ParseError.
  - Import chains can loop (a imports b imports a); the loader tracks the files
    currently being expanded.

ARCHITECTURE INTEGRATION:
  - Used by: internal/assets (defaults), internal/preprocess (model files),
    internal/cli (override files, --set values), internal/output (writers).

ERROR HANDLING:
  - Malformed text -> *ParseError with source name and line.
  - Unreadable files -> wrapped os errors.

USAGE:
  doc, err := nested.LoadFile("model.yaml", nested.TopLevelImports)
  text, err := doc.Dump()
*/

package nested

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Imports selects which `import:` list, if any, is expanded on load.
type Imports struct {
	// Path is the dotted path holding the `import` key; empty means top level.
	Path     string
	Disabled bool
}

var (
	NoImports       = Imports{Disabled: true}
	TopLevelImports = Imports{}
)

// ImportsAt expands the `import` list found under path.
func ImportsAt(path string) Imports {
	return Imports{Path: path}
}

const importKey = "import"

var yamlLineRe = regexp.MustCompile(`^yaml: line (\d+): (.*)$`)

// Load parses YAML text held in memory. name identifies the source in errors.
// Relative import paths are rejected because there is no directory to anchor them.
func Load(src []byte, name string, imp Imports) (*Document, error) {
	doc, err := decode(src, name)
	if err != nil {
		return nil, err
	}
	l := &loader{visiting: make(map[string]bool)}
	return l.resolve(doc, imp, "")
}

// LoadFile reads and parses a YAML file.
func LoadFile(path string, imp Imports) (*Document, error) {
	l := &loader{visiting: make(map[string]bool)}
	return l.loadFile(path, imp)
}

// ResolveImports expands the import list selected by imp. baseDir anchors
// relative paths; pass "" for documents that did not come from a file.
// Expanded documents no longer carry the `import` key, so a second call is a no-op.
func ResolveImports(doc *Document, imp Imports, baseDir string) (*Document, error) {
	l := &loader{visiting: make(map[string]bool)}
	return l.resolve(doc, imp, baseDir)
}

type loader struct {
	visiting map[string]bool
}

func (l *loader) loadFile(path string, imp Imports) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	if l.visiting[abs] {
		return nil, fmt.Errorf("circular import of %s", path)
	}
	l.visiting[abs] = true
	defer delete(l.visiting, abs)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	doc, err := decode(data, path)
	if err != nil {
		return nil, err
	}
	return l.resolve(doc, imp, filepath.Dir(abs))
}

func (l *loader) resolve(doc *Document, imp Imports, baseDir string) (*Document, error) {
	if imp.Disabled {
		return doc, nil
	}
	target := doc
	if imp.Path != "" {
		target = doc.Doc(imp.Path)
		if target == nil {
			return doc, nil
		}
	}
	raw, ok := target.child(importKey)
	if !ok {
		return doc, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("`import` must be a list of file paths, got %T", raw)
	}

	result := target
	for _, item := range list {
		p, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("`import` entries must be strings, got %T", item)
		}
		if !filepath.IsAbs(p) {
			if baseDir == "" {
				return nil, fmt.Errorf("relative import `%s` is not supported for an in-memory document", p)
			}
			p = filepath.Join(baseDir, p)
		}
		imported, err := l.loadFile(p, TopLevelImports)
		if err != nil {
			return nil, fmt.Errorf("failed to import %s: %w", p, err)
		}
		if err := imported.Union(result, UnionOptions{AllowOverride: true}); err != nil {
			return nil, fmt.Errorf("failed to merge import %s: %w", p, err)
		}
		result = imported
	}
	result.remove(importKey)

	if imp.Path == "" {
		return result, nil
	}
	if err := doc.Replace(imp.Path, result); err != nil {
		return nil, err
	}
	return doc, nil
}

func decode(src []byte, name string) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil {
		return nil, parseError(name, err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, &ParseError{Source: name, Err: errors.New("document is empty")}
	}
	v, err := fromNode(root.Content[0], name)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(*Document)
	if !ok {
		return nil, &ParseError{Source: name, Line: root.Content[0].Line, Err: errors.New("top level is not a mapping")}
	}
	return doc, nil
}

func parseError(name string, err error) *ParseError {
	var te *yaml.TypeError
	if errors.As(err, &te) && len(te.Errors) > 0 {
		err = errors.New(te.Errors[0])
	}
	if m := yamlLineRe.FindStringSubmatch(err.Error()); m != nil {
		line, _ := strconv.Atoi(m[1])
		return &ParseError{Source: name, Line: line, Err: errors.New(m[2])}
	}
	return &ParseError{Source: name, Err: err}
}

func fromNode(n *yaml.Node, name string) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromNode(n.Content[0], name)
	case yaml.AliasNode:
		return fromNode(n.Alias, name)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c, name)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		doc := New()
		seen := make(map[string]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, vn := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, &ParseError{Source: name, Line: k.Line, Err: errors.New("mapping keys must be scalars")}
			}
			if k.Tag != "!!merge" {
				if first, dup := seen[k.Value]; dup {
					return nil, &ParseError{Source: name, Line: k.Line,
						Err: fmt.Errorf("mapping key %q already defined at line %d", k.Value, first)}
				}
				seen[k.Value] = k.Line
			}
			v, err := fromNode(vn, name)
			if err != nil {
				return nil, err
			}
			if k.Tag == "!!merge" {
				if base, ok := v.(*Document); ok {
					if err := doc.mergeFrom(base.Copy()); err != nil {
						return nil, err
					}
					continue
				}
			}
			if err := doc.Set(k.Value, v); err != nil {
				return nil, &ParseError{Source: name, Line: k.Line, Err: err}
			}
		}
		return doc, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, &ParseError{Source: name, Line: n.Line, Err: err}
		}
		out, err := normalize(v)
		if err != nil {
			return nil, &ParseError{Source: name, Line: n.Line, Err: err}
		}
		return out, nil
	default:
		return nil, &ParseError{Source: name, Line: n.Line, Err: fmt.Errorf("unexpected node kind %d", n.Kind)}
	}
}

// Dump serialises the Document as block-style YAML with two-space indents.
func (d *Document) Dump() ([]byte, error) {
	node, err := toNode(d)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile dumps the Document to path.
func (d *Document) WriteFile(path string) error {
	data, err := d.Dump()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}

func toNode(v any) (*yaml.Node, error) {
	v, err := normalize(v)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case *Document:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		if t.Len() == 0 {
			n.Style = yaml.FlowStyle
		}
		for _, k := range t.keys {
			child, err := toNode(t.values[k])
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, child)
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if len(t) == 0 {
			n.Style = yaml.FlowStyle
		}
		for _, item := range t {
			child, err := toNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(t)}, nil
	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(t)}, nil
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(t)}, nil
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t}, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if f == math.Trunc(f) && !bytes.ContainsAny([]byte(s), ".eE") {
		s += ".0"
	}
	return s
}
