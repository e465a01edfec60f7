package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Document is the emitted JSON-Schema artifact for a normalized schema. It is
// immutable once built; the canonical JSON bytes are stable (sorted object
// keys) so Fingerprint can be used for caching and change detection.
type Document struct {
	root        map[string]any
	jsonBytes   []byte
	fingerprint string
}

// Emit walks a normalized Object depth-first and produces its JSON-Schema
// document: `{"type":"object","properties":{...},"required":[...]}`. The
// required array is omitted when empty; member order follows declaration
// order. No $schema or $id is emitted.
func Emit(o *Object) *Document {
	root := emitObject(o)
	b, err := json.Marshal(root)
	if err != nil {
		// The tree is built from JSON-compatible values only; a marshal
		// failure means a Default carried something unencodable.
		panic(fmt.Sprintf("schema: emit: %v", err))
	}
	sum := sha256.Sum256(b)
	return &Document{root: root, jsonBytes: b, fingerprint: hex.EncodeToString(sum[:])}
}

// MarshalJSON returns the canonical JSON bytes of the document.
func (d *Document) MarshalJSON() ([]byte, error) {
	return append([]byte(nil), d.jsonBytes...), nil
}

// Fingerprint returns the hex SHA-256 of the canonical JSON bytes.
func (d *Document) Fingerprint() string { return d.fingerprint }

// Map returns the document as a generic object tree. Callers must treat the
// returned value as read-only.
func (d *Document) Map() map[string]any { return d.root }

func emitObject(o *Object) map[string]any {
	props := make(map[string]any, len(o.Fields))
	var required []string
	for _, name := range o.FieldOrder {
		f, ok := o.Fields[name]
		if !ok {
			continue
		}
		frag, req := emitField(f)
		props[name] = frag
		if req {
			required = append(required, name)
		}
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// emitField emits the fragment for one field and reports whether the parent
// must record it as required.
func emitField(f Field) (map[string]any, bool) {
	frag, required := emitExpr(f.Type, f)
	for _, m := range f.Meta {
		switch m.Key {
		case MetaDescription:
			frag["description"] = m.Value
		case MetaDefault:
			frag["default"] = m.Value
		case MetaFormat:
			frag["format"] = m.Value
		}
	}
	return frag, required
}

func emitExpr(expr TypeExpr, f Field) (map[string]any, bool) {
	switch t := expr.(type) {
	case Required:
		frag, _ := emitExpr(t.Inner, f)
		return frag, true
	case Constrained:
		frag, req := emitExpr(t.Inner, f)
		emitConstraint(frag, t.Constraint)
		return frag, req
	case Enum:
		base := String
		if p, ok := f.BasePrimitive(); ok {
			base = p
		}
		frag := emitPrim(base)
		frag["enum"] = t.Values
		return frag, false
	case Prim:
		return emitPrim(t.Kind), false
	case *Object:
		return emitObject(t), false
	default:
		return map[string]any{}, false
	}
}

func emitConstraint(frag map[string]any, c Constraint) {
	switch t := c.(type) {
	case Gte:
		frag["minimum"] = t.Min
	case Lte:
		frag["maximum"] = t.Max
	case Range:
		frag["minimum"] = t.Min
		frag["maximum"] = t.Max
	case MinLen:
		frag["minLength"] = t.Len
	case MaxLen:
		frag["maxLength"] = t.Len
	case LenRange:
		frag["minLength"] = t.Min
		frag["maxLength"] = t.Max
	}
}

// emitPrim maps a primitive to its JSON-Schema fragment. Temporal primitives
// are strings with a format; `any` is the empty schema.
func emitPrim(p Primitive) map[string]any {
	switch p {
	case String, Integer, Boolean:
		return map[string]any{"type": string(p)}
	case Float:
		return map[string]any{"type": "number"}
	case Any:
		return map[string]any{}
	case Date:
		return map[string]any{"type": "string", "format": "date"}
	case Time:
		return map[string]any{"type": "string", "format": "time"}
	case DateTime, NaiveDateTime:
		return map[string]any{"type": "string", "format": "date-time"}
	default:
		return map[string]any{"type": string(p)}
	}
}
