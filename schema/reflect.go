package schema

import (
	"fmt"
	"strconv"

	"github.com/invopop/jsonschema"
)

// Reflect derives a Builder from a Go struct type, so typed tools can declare
// their input once as a struct and still flow through the same normalizer,
// emitter, and validator as hand-built schemas.
//
// Mapping rules follow encoding/json conventions: property names come from
// json tags, fields without `omitempty` are required, `jsonschema` struct tags supply
// descriptions, formats, enums, and bounds. time.Time fields map to the
// datetime primitive. Shapes the DSL cannot express (arrays, $ref,
// combinators) are build-time errors.
func Reflect[T any]() (*Builder, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	root := r.Reflect(new(T))
	if root == nil || root.Type != "object" {
		return nil, fmt.Errorf("schema: reflected root of %T is not an object", *new(T))
	}
	b := New()
	if err := reflectInto(b, root); err != nil {
		return nil, err
	}
	return b, nil
}

// MustReflect is Reflect that panics on unsupported shapes.
func MustReflect[T any]() *Builder {
	b, err := Reflect[T]()
	if err != nil {
		panic(err)
	}
	return b
}

func reflectInto(b *Builder, s *jsonschema.Schema) error {
	required := make(map[string]struct{}, len(s.Required))
	for _, name := range s.Required {
		required[name] = struct{}{}
	}
	if s.Properties == nil {
		return nil
	}
	for el := s.Properties.Oldest(); el != nil; el = el.Next() {
		name := el.Key
		prop := el.Value
		if prop == nil {
			return fmt.Errorf("schema: reflected property %s has no schema", name)
		}
		if err := rejectUnsupported(name, prop); err != nil {
			return err
		}

		_, isReq := required[name]
		opts := commonOpts(prop, isReq)

		switch {
		case prop.Type == "object" && prop.Properties != nil:
			var nestedErr error
			b.Object(name, func(nb *Builder) {
				nestedErr = reflectInto(nb, prop)
			}, opts...)
			if nestedErr != nil {
				return fmt.Errorf("schema: field %s: %w", name, nestedErr)
			}
		case len(prop.Enum) > 0:
			prim, err := reflectPrimitive(name, prop)
			if err != nil {
				return err
			}
			opts = append(opts, BaseType(prim))
			b.Field(name, EnumOf(prop.Enum...), opts...)
		default:
			prim, err := reflectPrimitive(name, prop)
			if err != nil {
				return err
			}
			b.Field(name, prim, opts...)
		}
	}
	return b.Err()
}

func rejectUnsupported(name string, prop *jsonschema.Schema) error {
	switch {
	case prop.Type == "array" || prop.Items != nil:
		return fmt.Errorf("schema: field %s: arrays are not supported", name)
	case prop.Ref != "":
		return fmt.Errorf("schema: field %s: $ref is not supported", name)
	case len(prop.AllOf) > 0 || len(prop.AnyOf) > 0 || len(prop.OneOf) > 0 || prop.Not != nil:
		return fmt.Errorf("schema: field %s: schema combinators are not supported", name)
	}
	return nil
}

// reflectPrimitive maps a reflected JSON type to a DSL primitive. Strings
// with a temporal format collapse into the dedicated primitives so emission
// round-trips.
func reflectPrimitive(name string, prop *jsonschema.Schema) (Primitive, error) {
	switch prop.Type {
	case "string":
		switch prop.Format {
		case "date":
			return Date, nil
		case "date-time":
			return DateTime, nil
		case "time":
			return Time, nil
		default:
			return String, nil
		}
	case "integer":
		return Integer, nil
	case "number":
		return Float, nil
	case "boolean":
		return Boolean, nil
	case "":
		return Any, nil
	default:
		return "", fmt.Errorf("schema: field %s: unsupported reflected type %q", name, prop.Type)
	}
}

func commonOpts(prop *jsonschema.Schema, required bool) []Option {
	var opts []Option
	if required {
		opts = append(opts, Require())
	}
	if prop.Description != "" {
		opts = append(opts, Description(prop.Description))
	}
	if prop.Default != nil {
		opts = append(opts, Default(prop.Default))
	}
	switch prop.Format {
	case "", "date", "date-time", "time":
		// consumed by the primitive mapping
	default:
		opts = append(opts, Format(prop.Format))
	}
	if prop.Minimum != "" {
		if f, err := strconv.ParseFloat(string(prop.Minimum), 64); err == nil {
			opts = append(opts, Min(f))
		}
	}
	if prop.Maximum != "" {
		if f, err := strconv.ParseFloat(string(prop.Maximum), 64); err == nil {
			opts = append(opts, Max(f))
		}
	}
	if prop.MinLength != nil {
		opts = append(opts, MinLength(int(*prop.MinLength)))
	}
	if prop.MaxLength != nil {
		opts = append(opts, MaxLength(int(*prop.MaxLength)))
	}
	return opts
}
