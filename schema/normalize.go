package schema

import "fmt"

// normalize folds the captured declarations into a normalized Object. It is
// total over declarations the capture layer accepted; the errors it can
// return are programmer errors in the DSL usage itself.
func (b *Builder) normalize() (*Object, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}
	obj := &Object{Fields: make(map[string]Field, len(b.decls))}
	for _, d := range b.decls {
		f, err := normalizeDecl(d)
		if err != nil {
			return nil, err
		}
		obj.Fields[d.name] = f
		obj.FieldOrder = append(obj.FieldOrder, d.name)
	}
	return Normalize(obj), nil
}

// normalizeDecl resolves one raw declaration into a Field: type resolution,
// constraint folding, required lifting, metadata filtering.
func normalizeDecl(d rawDecl) (Field, error) {
	values, hasValues := lastOpt(d.opts, optValues)

	var base TypeExpr
	var basePrim Primitive
	isEnum := false

	switch {
	case d.nested != nil:
		if hasValues {
			return Field{}, fmt.Errorf("schema: field %s: enum values on a nested object", d.name)
		}
		inner, err := d.nested.normalize()
		if err != nil {
			return Field{}, fmt.Errorf("schema: field %s: %w", d.name, err)
		}
		base = inner
	case hasValues:
		if _, explicit := d.typ.(EnumType); explicit {
			return Field{}, fmt.Errorf("schema: field %s: values combined with an explicit enum type", d.name)
		}
		vs, ok := values.([]any)
		if !ok {
			return Field{}, fmt.Errorf("schema: field %s: malformed enum values", d.name)
		}
		base = Enum{Values: vs}
		basePrim = enumBase(d.typ, d.opts)
		isEnum = true
	default:
		switch t := d.typ.(type) {
		case EnumType:
			base = Enum{Values: t.Values}
			basePrim = enumBase(nil, d.opts)
			isEnum = true
		case Primitive:
			base = Prim{Kind: t}
			basePrim = t
		default:
			return Field{}, fmt.Errorf("schema: field %s: unsupported declared type %T", d.name, d.typ)
		}
	}

	expr := applyConstraints(base, basePrim, d.opts)

	if req, ok := lastOpt(d.opts, optRequired); ok {
		if on, ok := req.(bool); ok && on {
			expr = Required{Inner: expr}
		}
	}

	return Field{Type: normalizeExpr(expr), Meta: filterMeta(d.opts, isEnum, basePrim)}, nil
}

// enumBase resolves the base primitive of an enum declaration. An explicit
// `type` option wins, then the declared primitive; string otherwise.
func enumBase(declared Type, opts []rawOpt) Primitive {
	if v, ok := lastOpt(opts, MetaType); ok {
		if p, ok := coercePrimitive(v); ok {
			return p
		}
	}
	if p, ok := declared.(Primitive); ok && p != "" {
		return p
	}
	return String
}

func coercePrimitive(v any) (Primitive, bool) {
	switch p := v.(type) {
	case Primitive:
		return p, IsValidPrimitive(p)
	case string:
		return Primitive(p), IsValidPrimitive(Primitive(p))
	default:
		return "", false
	}
}

// applyConstraints folds min/max and length options onto the base expression.
// Numeric bounds apply to integer and float bases, length bounds to string
// bases; mismatched constraints are silently dropped. Objects take none.
func applyConstraints(base TypeExpr, basePrim Primitive, opts []rawOpt) TypeExpr {
	if _, isObj := base.(*Object); isObj {
		return base
	}

	expr := base
	switch basePrim {
	case Integer, Float:
		minV, hasMin := numOpt(opts, optMin)
		maxV, hasMax := numOpt(opts, optMax)
		switch {
		case hasMin && hasMax:
			expr = Constrained{Inner: expr, Constraint: Range{Min: minV, Max: maxV}}
		case hasMin:
			expr = Constrained{Inner: expr, Constraint: Gte{Min: minV}}
		case hasMax:
			expr = Constrained{Inner: expr, Constraint: Lte{Max: maxV}}
		}
	case String:
		minL, hasMinL := intOpt(opts, optMinLength)
		maxL, hasMaxL := intOpt(opts, optMaxLength)
		switch {
		case hasMinL && hasMaxL:
			expr = Constrained{Inner: expr, Constraint: LenRange{Min: minL, Max: maxL}}
		case hasMinL:
			expr = Constrained{Inner: expr, Constraint: MinLen{Len: minL}}
		case hasMaxL:
			expr = Constrained{Inner: expr, Constraint: MaxLen{Len: maxL}}
		}
	}
	return expr
}

// filterMeta keeps only recognized metadata keys, in author order. Consumed
// options (required, bounds, values) and unknown keys never survive. The
// `type` key is kept for enums only and injected when absent.
func filterMeta(opts []rawOpt, isEnum bool, basePrim Primitive) []MetaEntry {
	var out []MetaEntry
	sawType := false
	for _, o := range opts {
		switch o.key {
		case MetaDescription, MetaDefault, MetaFormat:
			out = append(out, MetaEntry{Key: o.key, Value: o.val})
		case MetaType:
			if isEnum && !sawType {
				if p, ok := coercePrimitive(o.val); ok {
					out = append(out, MetaEntry{Key: MetaType, Value: p})
					sawType = true
				}
			}
		}
	}
	if isEnum && !sawType {
		out = append(out, MetaEntry{Key: MetaType, Value: basePrim})
	}
	return out
}

// Normalize rewrites a type tree into canonical form: Required wrappers are
// collapsed to exactly one and lifted outermost, adjacent numeric or length
// constraints fuse into ranges, and nested objects are rewritten recursively.
// It is idempotent: Normalize(Normalize(o)) equals Normalize(o).
func Normalize(o *Object) *Object {
	out := &Object{Fields: make(map[string]Field, len(o.Fields))}
	for _, name := range o.FieldOrder {
		f, ok := o.Fields[name]
		if !ok {
			continue
		}
		out.Fields[name] = Field{Type: normalizeExpr(f.Type), Meta: f.Meta}
		out.FieldOrder = append(out.FieldOrder, name)
	}
	return out
}

func normalizeExpr(e TypeExpr) TypeExpr {
	switch t := e.(type) {
	case Required:
		inner := normalizeExpr(t.Inner)
		for {
			r, ok := inner.(Required)
			if !ok {
				break
			}
			inner = r.Inner
		}
		return Required{Inner: inner}
	case Constrained:
		inner := normalizeExpr(t.Inner)
		if r, ok := inner.(Required); ok {
			return Required{Inner: normalizeExpr(Constrained{Inner: r.Inner, Constraint: t.Constraint})}
		}
		if c, ok := inner.(Constrained); ok {
			if fused, ok := fuseConstraints(c.Constraint, t.Constraint); ok {
				return Constrained{Inner: c.Inner, Constraint: fused}
			}
		}
		return Constrained{Inner: inner, Constraint: t.Constraint}
	case *Object:
		return Normalize(t)
	default:
		return e
	}
}

// fuseConstraints merges a lower and upper bound of the same family into a
// range, in either nesting order.
func fuseConstraints(inner, outer Constraint) (Constraint, bool) {
	switch a := inner.(type) {
	case Gte:
		if b, ok := outer.(Lte); ok {
			return Range{Min: a.Min, Max: b.Max}, true
		}
	case Lte:
		if b, ok := outer.(Gte); ok {
			return Range{Min: b.Min, Max: a.Max}, true
		}
	case MinLen:
		if b, ok := outer.(MaxLen); ok {
			return LenRange{Min: a.Len, Max: b.Len}, true
		}
	case MaxLen:
		if b, ok := outer.(MinLen); ok {
			return LenRange{Min: b.Len, Max: a.Len}, true
		}
	}
	return nil, false
}

func lastOpt(opts []rawOpt, key string) (any, bool) {
	var val any
	found := false
	for _, o := range opts {
		if o.key == key {
			val = o.val
			found = true
		}
	}
	return val, found
}

func numOpt(opts []rawOpt, key string) (float64, bool) {
	v, ok := lastOpt(opts, key)
	if !ok {
		return 0, false
	}
	f, ok := toFloat(v)
	return f, ok
}

func intOpt(opts []rawOpt, key string) (int, bool) {
	v, ok := lastOpt(opts, key)
	if !ok {
		return 0, false
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}
