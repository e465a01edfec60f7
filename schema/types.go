package schema

// Primitive is a leaf value type a field can declare.
type Primitive string

const (
	String        Primitive = "string"
	Integer       Primitive = "integer"
	Float         Primitive = "float"
	Boolean       Primitive = "boolean"
	Any           Primitive = "any"
	Date          Primitive = "date"
	Time          Primitive = "time"
	DateTime      Primitive = "datetime"
	NaiveDateTime Primitive = "naive_datetime"
)

// IsValidPrimitive reports whether p is one of the supported primitives.
func IsValidPrimitive(p Primitive) bool {
	switch p {
	case String, Integer, Float, Boolean, Any, Date, Time, DateTime, NaiveDateTime:
		return true
	default:
		return false
	}
}

// Type is a declared field type accepted by the builder surface. Primitives
// satisfy it directly; EnumOf produces the enum surface form.
type Type interface {
	declaredType()
}

func (Primitive) declaredType() {}

// EnumType is the explicit enum surface form. The base primitive travels as
// `type` metadata on the normalized field and defaults to string.
type EnumType struct {
	Values []any
}

func (EnumType) declaredType() {}

// EnumOf declares a closed set of literal values as a field type.
func EnumOf(values ...any) EnumType {
	return EnumType{Values: values}
}

// TypeExpr is a node of the normalized type tree. Exactly one of the concrete
// variants below implements it: Prim, Enum, Constrained, Required, Object.
type TypeExpr interface {
	typeExpr()
}

// Prim is a bare primitive.
type Prim struct {
	Kind Primitive
}

func (Prim) typeExpr() {}

// Enum is a closed set of literal values. Its base primitive is carried as
// `type` metadata on the owning Field, not on the expression itself.
type Enum struct {
	Values []any
}

func (Enum) typeExpr() {}

// Constrained pairs an inner expression with a numeric or length constraint.
type Constrained struct {
	Inner      TypeExpr
	Constraint Constraint
}

func (Constrained) typeExpr() {}

// Required marks a field mandatory. After normalization it is always the
// outermost wrapper of a field's expression and never nests.
type Required struct {
	Inner TypeExpr
}

func (Required) typeExpr() {}

// Object is a nested object schema. Fields maps names to their definitions;
// FieldOrder records declaration order so emission is stable.
type Object struct {
	Fields     map[string]Field
	FieldOrder []string
}

func (*Object) typeExpr() {}

// Field returns the named field definition, if declared.
func (o *Object) Field(name string) (Field, bool) {
	f, ok := o.Fields[name]
	return f, ok
}

// Constraint is a numeric or length bound attached via Constrained. Numeric
// bounds are closed intervals; length bounds count code points.
type Constraint interface {
	constraint()
}

// Gte is a numeric lower bound (min alone).
type Gte struct{ Min float64 }

// Lte is a numeric upper bound (max alone).
type Lte struct{ Max float64 }

// Range is a closed numeric interval (min and max).
type Range struct{ Min, Max float64 }

// MinLen is a string minimum length in code points.
type MinLen struct{ Len int }

// MaxLen is a string maximum length in code points.
type MaxLen struct{ Len int }

// LenRange bounds a string length between Min and Max code points inclusive.
type LenRange struct{ Min, Max int }

func (Gte) constraint()      {}
func (Lte) constraint()      {}
func (Range) constraint()    {}
func (MinLen) constraint()   {}
func (MaxLen) constraint()   {}
func (LenRange) constraint() {}

// Metadata keys that survive normalization. Anything else is dropped.
const (
	MetaDescription = "description"
	MetaDefault     = "default"
	MetaFormat      = "format"
	MetaType        = "type"
)

// MetaEntry is a single recognized metadata pair. Entries preserve the order
// the author gave them.
type MetaEntry struct {
	Key   string
	Value any
}

// Field is a normalized field: a type expression plus ordered metadata.
type Field struct {
	Type TypeExpr
	Meta []MetaEntry
}

// MetaValue returns the value of the first metadata entry with the given key.
func (f Field) MetaValue(key string) (any, bool) {
	for _, m := range f.Meta {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// BasePrimitive resolves the primitive underlying f's expression: the Prim
// kind, or the `type` metadata for enums. Objects report false.
func (f Field) BasePrimitive() (Primitive, bool) {
	expr := f.Type
	for {
		switch t := expr.(type) {
		case Required:
			expr = t.Inner
		case Constrained:
			expr = t.Inner
		case Prim:
			return t.Kind, true
		case Enum:
			if v, ok := f.MetaValue(MetaType); ok {
				if p, ok := v.(Primitive); ok {
					return p, true
				}
			}
			return String, true
		default:
			return "", false
		}
	}
}

// IsRequired reports whether the field's expression carries a Required wrapper.
func (f Field) IsRequired() bool {
	_, ok := f.Type.(Required)
	return ok
}
