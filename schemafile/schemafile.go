// Package schemafile loads component schemas from declarative YAML files.
// A file declares one tool or prompt: its name, metadata, and a field tree
// using the same option vocabulary as the schema builder. Parsed files
// compile through the exact same normalizer, emitter, and validator as
// code-declared schemas.
//
// Field order in the file is preserved (parsing walks yaml.Node mappings
// rather than decoding into Go maps), and unknown field options flow into
// the builder as generic metadata, where normalization drops them. That
// keeps hand-edited files forward compatible with newer option sets.
package schemafile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/VoiSmart/hermes-mcp/schema"
)

// Component kinds a file can declare.
const (
	KindTool   = "tool"
	KindPrompt = "prompt"
)

// Definition is one parsed component declaration. Input and Output are
// un-compiled builders so callers can attach handlers and compile through
// the component registry.
type Definition struct {
	Name        string
	Kind        string
	Title       string
	Description string
	Input       *schema.Builder
	Output      *schema.Builder
}

// Parse reads a single YAML component declaration.
func Parse(data []byte) (*Definition, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("schemafile: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("schemafile: empty document")
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("schemafile: document must be a mapping")
	}

	def := &Definition{Kind: KindTool}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i].Value
		val := doc.Content[i+1]
		switch key {
		case "name":
			def.Name = val.Value
		case "kind":
			def.Kind = val.Value
		case "title":
			def.Title = val.Value
		case "description":
			def.Description = val.Value
		case "input", "arguments":
			b, err := parseFields(val)
			if err != nil {
				return nil, err
			}
			def.Input = b
		case "output":
			b, err := parseFields(val)
			if err != nil {
				return nil, err
			}
			def.Output = b
		default:
			return nil, fmt.Errorf("schemafile: unknown top-level key %q", key)
		}
	}
	if def.Name == "" {
		return nil, fmt.Errorf("schemafile: component has no name")
	}
	if def.Kind != KindTool && def.Kind != KindPrompt {
		return nil, fmt.Errorf("schemafile: component %s has unknown kind %q", def.Name, def.Kind)
	}
	if def.Kind == KindPrompt && def.Output != nil {
		return nil, fmt.Errorf("schemafile: prompt %s cannot declare an output shape", def.Name)
	}
	if def.Input == nil {
		def.Input = schema.New()
	}
	return def, nil
}

// parseFields turns a YAML mapping of field declarations into a builder,
// preserving declaration order.
func parseFields(node *yaml.Node) (*schema.Builder, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("schemafile: field block must be a mapping (line %d)", node.Line)
	}
	b := schema.New()
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		if err := parseField(b, name, node.Content[i+1]); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func parseField(b *schema.Builder, name string, node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("schemafile: field %s must be a mapping (line %d)", name, node.Line)
	}

	var (
		typName string
		nested  *yaml.Node
		values  []any
		opts    []schema.Option
	)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		switch key {
		case "type":
			typName = val.Value
		case "fields":
			nested = val
		case "required":
			var on bool
			if err := val.Decode(&on); err != nil {
				return fmt.Errorf("schemafile: field %s: required must be boolean: %w", name, err)
			}
			if on {
				opts = append(opts, schema.Require())
			}
		case "description":
			opts = append(opts, schema.Description(val.Value))
		case "format":
			opts = append(opts, schema.Format(val.Value))
		case "default":
			var v any
			if err := val.Decode(&v); err != nil {
				return fmt.Errorf("schemafile: field %s: bad default: %w", name, err)
			}
			opts = append(opts, schema.Default(v))
		case "min":
			f, err := decodeNumber(val)
			if err != nil {
				return fmt.Errorf("schemafile: field %s: %w", name, err)
			}
			opts = append(opts, schema.Min(f))
		case "max":
			f, err := decodeNumber(val)
			if err != nil {
				return fmt.Errorf("schemafile: field %s: %w", name, err)
			}
			opts = append(opts, schema.Max(f))
		case "min_length":
			var n int
			if err := val.Decode(&n); err != nil {
				return fmt.Errorf("schemafile: field %s: bad min_length: %w", name, err)
			}
			opts = append(opts, schema.MinLength(n))
		case "max_length":
			var n int
			if err := val.Decode(&n); err != nil {
				return fmt.Errorf("schemafile: field %s: bad max_length: %w", name, err)
			}
			opts = append(opts, schema.MaxLength(n))
		case "values":
			if err := val.Decode(&values); err != nil {
				return fmt.Errorf("schemafile: field %s: bad values: %w", name, err)
			}
		default:
			// Unknown options ride along as raw metadata; normalization
			// drops whatever it does not recognize.
			var v any
			if err := val.Decode(&v); err == nil {
				opts = append(opts, schema.Meta(key, v))
			}
		}
	}

	if nested != nil {
		if typName != "" {
			return fmt.Errorf("schemafile: field %s declares both a type and nested fields", name)
		}
		if values != nil {
			return fmt.Errorf("schemafile: field %s declares both values and nested fields", name)
		}
		if nested.Kind != yaml.MappingNode {
			return fmt.Errorf("schemafile: field %s: fields must be a mapping (line %d)", name, nested.Line)
		}
		var nerr error
		b.Object(name, func(nb *schema.Builder) {
			for i := 0; i+1 < len(nested.Content); i += 2 {
				if err := parseField(nb, nested.Content[i].Value, nested.Content[i+1]); err != nil {
					nerr = err
					return
				}
			}
		}, opts...)
		return nerr
	}

	if typName == "" {
		typName = string(schema.String)
	}
	prim := schema.Primitive(typName)
	if !schema.IsValidPrimitive(prim) {
		return fmt.Errorf("schemafile: field %s has unknown type %q", name, typName)
	}
	if values != nil {
		opts = append(opts, schema.Values(values...))
	}
	b.Field(name, prim, opts...)
	return nil
}

func decodeNumber(val *yaml.Node) (float64, error) {
	var f float64
	if err := val.Decode(&f); err != nil {
		return 0, fmt.Errorf("bad number %q: %w", val.Value, err)
	}
	return f, nil
}

// Load parses the component declaration at path.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schemafile: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w (file %s)", err, filepath.Base(path))
	}
	return def, nil
}

// LoadDir parses every .yaml/.yml file in dir, in name order. Component
// names must be unique within the directory.
func LoadDir(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("schemafile: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	seen := make(map[string]string, len(paths))
	defs := make([]*Definition, 0, len(paths))
	for _, path := range paths {
		def, err := Load(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[def.Name]; dup {
			return nil, fmt.Errorf("schemafile: component %s declared in both %s and %s", def.Name, prev, filepath.Base(path))
		}
		seen[def.Name] = filepath.Base(path)
		defs = append(defs, def)
	}
	return defs, nil
}
