package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"
	"unicode/utf8"
)

// Params is a validated, key-normalized parameter map. Every key corresponds
// to a declared field; values carry the coerced Go representation (int64 for
// integers, float64 for floats, time.Time for date and datetime primitives,
// a validated string for the time primitive, nested Params for objects).
type Params map[string]any

// String returns the named parameter as a string.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

// Int returns the named parameter as an int64.
func (p Params) Int(key string) (int64, bool) {
	v, ok := p[key].(int64)
	return v, ok
}

// Float returns the named parameter as a float64.
func (p Params) Float(key string) (float64, bool) {
	v, ok := p[key].(float64)
	return v, ok
}

// Bool returns the named parameter as a bool.
func (p Params) Bool(key string) (bool, bool) {
	v, ok := p[key].(bool)
	return v, ok
}

// Object returns the named nested parameter map.
func (p Params) Object(key string) (Params, bool) {
	v, ok := p[key].(Params)
	return v, ok
}

// Compiled is an immutable compiled schema: the normalized tree, the emitted
// JSON-Schema document, and the validator over both input and output shapes.
// A Compiled is built once at component registration time; its methods are
// pure and safe for unlimited concurrent use.
type Compiled struct {
	root *Object
	doc  *Document
}

// Compile normalizes the captured declarations and derives the JSON-Schema
// document. Declaration errors accumulated on the builder surface here.
func (b *Builder) Compile() (*Compiled, error) {
	root, err := b.normalize()
	if err != nil {
		return nil, err
	}
	return &Compiled{root: root, doc: Emit(root)}, nil
}

// MustCompile is Compile that panics on declaration errors. Intended for
// package-level schema variables.
func (b *Builder) MustCompile() *Compiled {
	c, err := b.Compile()
	if err != nil {
		panic(err)
	}
	return c
}

// Root returns the normalized schema tree. Callers must not mutate it.
func (c *Compiled) Root() *Object { return c.root }

// JSONSchema returns the emitted JSON-Schema document.
func (c *Compiled) JSONSchema() *Document { return c.doc }

// ValidateOption tweaks a single validation pass.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	fillDefaults bool
}

// FillDefaults makes absent fields that declare a `default` take that value
// instead of being omitted, satisfying required-ness in the process. Without
// it defaults stay advisory and only appear in the JSON-Schema document.
func FillDefaults() ValidateOption {
	return func(cfg *validateConfig) { cfg.fillDefaults = true }
}

// Validate checks a loose input map against the schema. It returns the
// key-normalized parameters, or the full list of failures: all sibling errors
// are collected in one pass, and nested object errors carry path prefixes.
// Within one field a type mismatch suppresses further constraint checks.
func (c *Compiled) Validate(input map[string]any, opts ...ValidateOption) (Params, FieldErrors) {
	var cfg validateConfig
	for _, o := range opts {
		o(&cfg)
	}
	return validateObject(nil, c.root, input, &cfg)
}

// ValidateJSON decodes raw JSON and validates it. Empty input counts as an
// empty object, matching the wire convention for absent arguments. Non-object
// input yields a single expected_object error at the root path.
func (c *Compiled) ValidateJSON(raw json.RawMessage, opts ...ValidateOption) (Params, FieldErrors) {
	if len(raw) == 0 {
		return c.Validate(map[string]any{}, opts...)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, FieldErrors{errAt(nil, KindExpectedObject, map[string]any{"got": "malformed json"})}
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, FieldErrors{errAt(nil, KindExpectedObject, map[string]any{"got": typeName(decoded)})}
	}
	return c.Validate(obj, opts...)
}

func validateObject(path []string, o *Object, input map[string]any, cfg *validateConfig) (Params, FieldErrors) {
	out := make(Params, len(o.FieldOrder))
	var errs FieldErrors
	for _, name := range o.FieldOrder {
		f, ok := o.Fields[name]
		if !ok {
			continue
		}
		val, present := input[name]
		fieldPath := append(path, name)
		v, ferrs := validateField(fieldPath, f, val, present, cfg)
		if len(ferrs) > 0 {
			errs = append(errs, ferrs...)
			continue
		}
		if v != omitted {
			out[name] = v
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// omitted is the sentinel for "field absent and legitimately skipped".
var omitted = &struct{}{}

func validateField(path []string, f Field, val any, present bool, cfg *validateConfig) (any, FieldErrors) {
	expr := f.Type
	required := false
	if r, ok := expr.(Required); ok {
		required = true
		expr = r.Inner
	}
	if !present {
		if cfg.fillDefaults {
			if dv, ok := f.MetaValue(MetaDefault); ok {
				return dv, nil
			}
		}
		if required {
			return nil, FieldErrors{errAt(path, KindMissingRequired, nil)}
		}
		return omitted, nil
	}
	return validateExpr(path, expr, f, val, cfg)
}

func validateExpr(path []string, expr TypeExpr, f Field, val any, cfg *validateConfig) (any, FieldErrors) {
	switch t := expr.(type) {
	case Required:
		// Normalization keeps Required outermost; tolerate a stray wrapper.
		return validateExpr(path, t.Inner, f, val, cfg)
	case Prim:
		return checkPrim(path, t.Kind, val)
	case Enum:
		if !enumContains(t.Values, val) {
			return nil, FieldErrors{errAt(path, KindNotInEnum, map[string]any{
				"value":  val,
				"values": t.Values,
			})}
		}
		return val, nil
	case Constrained:
		out, errs := validateExpr(path, t.Inner, f, val, cfg)
		if len(errs) > 0 {
			return nil, errs
		}
		if ferr := checkConstraint(path, t.Constraint, out); ferr != nil {
			return nil, FieldErrors{ferr}
		}
		return out, nil
	case *Object:
		obj, ok := val.(map[string]any)
		if !ok {
			return nil, FieldErrors{errAt(path, KindExpectedObject, map[string]any{"got": typeName(val)})}
		}
		return validateObject(path, t, obj, cfg)
	default:
		return nil, FieldErrors{errAt(path, KindTypeMismatch, map[string]any{"expected": fmt.Sprintf("%T", expr)})}
	}
}

func checkPrim(path []string, kind Primitive, val any) (any, FieldErrors) {
	mismatch := func() (any, FieldErrors) {
		return nil, FieldErrors{errAt(path, KindTypeMismatch, map[string]any{
			"expected": string(kind),
			"got":      typeName(val),
		})}
	}
	switch kind {
	case Any:
		return val, nil
	case String:
		if s, ok := val.(string); ok {
			return s, nil
		}
		return mismatch()
	case Boolean:
		if b, ok := val.(bool); ok {
			return b, nil
		}
		return mismatch()
	case Integer:
		if n, ok := toInt(val); ok {
			return n, nil
		}
		return mismatch()
	case Float:
		if f, ok := toFloat(val); ok {
			return f, nil
		}
		return mismatch()
	case Date:
		return checkTemporal(path, kind, val, "2006-01-02")
	case Time:
		if s, ok := val.(string); ok {
			if _, err := time.Parse("15:04:05", s); err == nil {
				return s, nil
			}
		}
		return mismatch()
	case DateTime:
		return checkTemporal(path, kind, val, time.RFC3339)
	case NaiveDateTime:
		return checkTemporal(path, kind, val, "2006-01-02T15:04:05")
	default:
		return mismatch()
	}
}

// checkTemporal accepts a time.Time directly or a string in the given layout.
func checkTemporal(path []string, kind Primitive, val any, layout string) (any, FieldErrors) {
	switch v := val.(type) {
	case time.Time:
		return v, nil
	case string:
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, nil
		}
	}
	return nil, FieldErrors{errAt(path, KindTypeMismatch, map[string]any{
		"expected": string(kind),
		"got":      typeName(val),
	})}
}

func checkConstraint(path []string, c Constraint, val any) *FieldError {
	switch t := c.(type) {
	case Gte:
		if f, ok := numericValue(val); ok && f < t.Min {
			return errAt(path, KindOutOfRange, map[string]any{"min": t.Min, "value": f})
		}
	case Lte:
		if f, ok := numericValue(val); ok && f > t.Max {
			return errAt(path, KindOutOfRange, map[string]any{"max": t.Max, "value": f})
		}
	case Range:
		if f, ok := numericValue(val); ok && (f < t.Min || f > t.Max) {
			return errAt(path, KindOutOfRange, map[string]any{"min": t.Min, "max": t.Max, "value": f})
		}
	case MinLen:
		if n, ok := runeLength(val); ok && n < t.Len {
			return errAt(path, KindLengthOutOfRange, map[string]any{"min_length": t.Len, "length": n})
		}
	case MaxLen:
		if n, ok := runeLength(val); ok && n > t.Len {
			return errAt(path, KindLengthOutOfRange, map[string]any{"max_length": t.Len, "length": n})
		}
	case LenRange:
		if n, ok := runeLength(val); ok && (n < t.Min || n > t.Max) {
			return errAt(path, KindLengthOutOfRange, map[string]any{"min_length": t.Min, "max_length": t.Max, "length": n})
		}
	}
	return nil
}

func numericValue(val any) (float64, bool) { return toFloat(val) }

// runeLength measures code points, not bytes. Non-strings report false so
// length constraints silently skip them.
func runeLength(val any) (int, bool) {
	s, ok := val.(string)
	if !ok {
		return 0, false
	}
	return utf8.RuneCountInString(s), true
}

func enumContains(values []any, val any) bool {
	for _, v := range values {
		if looseEqual(v, val) {
			return true
		}
	}
	return false
}

// looseEqual compares enum literals across numeric representations, so a
// declared 3 matches the JSON-decoded 3.0.
func looseEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	if _, ok := toFloat(b); ok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// toInt accepts Go integer kinds plus integral floats and json.Number, the
// shapes JSON decoding can produce for an integer field. Fractional values
// are not integers.
func toInt(val any) (int64, bool) {
	switch n := val.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int64(n), true
		}
		return 0, false
	case float32:
		f := float64(n)
		if f == math.Trunc(f) {
			return int64(f), true
		}
		return 0, false
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		return 0, false
	default:
		return 0, false
	}
}

func toFloat(val any) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func typeName(val any) string {
	switch val.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", val)
	}
}
