package schema

import (
	"fmt"
	"strings"
)

// Builder captures an ordered list of raw field declarations. Nothing is
// interpreted until Compile, which normalizes the declarations and derives
// the JSON-Schema document and validator in one step.
//
//	b := schema.New().
//	    Field("count", schema.Integer, schema.Min(10), schema.Max(100)).
//	    Field("status", schema.String, schema.Values("active", "inactive"), schema.Require()).
//	    Object("owner", func(o *schema.Builder) {
//	        o.Field("email", schema.String, schema.Format("email"), schema.Require())
//	    }, schema.Require())
//	compiled, err := b.Compile()
//
// Invalid declarations (duplicate names, values combined with an explicit
// enum type, enum values on a nested object) are programmer errors: they
// accumulate on the builder and surface from Compile.
type Builder struct {
	decls []rawDecl
	names map[string]struct{}
	errs  []error
}

type rawDecl struct {
	name   string
	typ    Type     // nil for nested object declarations
	nested *Builder // non-nil for nested object declarations
	opts   []rawOpt
}

// rawOpt is an uninterpreted option pair. Author order is preserved so
// recognized metadata keeps its position through normalization.
type rawOpt struct {
	key string
	val any
}

// New returns an empty schema builder.
func New() *Builder {
	return &Builder{names: make(map[string]struct{})}
}

// Field declares a leaf field with the given type and options.
func (b *Builder) Field(name string, typ Type, opts ...Option) *Builder {
	d := b.declare(name)
	if d == nil {
		return b
	}
	if typ == nil {
		b.errs = append(b.errs, fmt.Errorf("schema: field %s has no type", name))
		return b
	}
	if p, ok := typ.(Primitive); ok && !IsValidPrimitive(p) {
		b.errs = append(b.errs, fmt.Errorf("schema: field %s has unknown primitive %q", name, p))
		return b
	}
	d.typ = typ
	d.opts = applyOpts(opts)
	b.decls = append(b.decls, *d)
	return b
}

// Object declares a nested object field whose body is built by fn. The type
// is implied; declaring enum values on an object is rejected at compile time.
func (b *Builder) Object(name string, fn func(*Builder), opts ...Option) *Builder {
	d := b.declare(name)
	if d == nil {
		return b
	}
	nested := New()
	if fn != nil {
		fn(nested)
	}
	d.nested = nested
	d.opts = applyOpts(opts)
	b.decls = append(b.decls, *d)
	return b
}

func (b *Builder) declare(name string) *rawDecl {
	if strings.TrimSpace(name) == "" {
		b.errs = append(b.errs, fmt.Errorf("schema: empty field name"))
		return nil
	}
	if _, dup := b.names[name]; dup {
		b.errs = append(b.errs, fmt.Errorf("schema: duplicate field %s", name))
		return nil
	}
	b.names[name] = struct{}{}
	return &rawDecl{name: name}
}

func applyOpts(opts []Option) []rawOpt {
	var out []rawOpt
	for _, o := range opts {
		if o != nil {
			out = o(out)
		}
	}
	return out
}

// Option appends one raw option pair to a field declaration.
type Option func([]rawOpt) []rawOpt

func opt(key string, val any) Option {
	return func(os []rawOpt) []rawOpt { return append(os, rawOpt{key: key, val: val}) }
}

// Require marks the field mandatory.
func Require() Option { return opt(optRequired, true) }

// Description attaches a human-readable description.
func Description(s string) Option { return opt(MetaDescription, s) }

// Default attaches a default value. Defaults are advisory: they are surfaced
// in the JSON-Schema document and only substituted during validation when
// FillDefaults is requested.
func Default(v any) Option { return opt(MetaDefault, v) }

// Format attaches a JSON-Schema format hint such as "email" or "uuid".
func Format(s string) Option { return opt(MetaFormat, s) }

// Min sets the numeric lower bound (closed).
func Min(n float64) Option { return opt(optMin, n) }

// Max sets the numeric upper bound (closed).
func Max(n float64) Option { return opt(optMax, n) }

// MinLength sets the minimum string length in code points.
func MinLength(n int) Option { return opt(optMinLength, n) }

// MaxLength sets the maximum string length in code points.
func MaxLength(n int) Option { return opt(optMaxLength, n) }

// Values restricts the field to a closed set of literal values. It is sugar
// for declaring the field with EnumOf and normalizes identically.
func Values(vs ...any) Option { return opt(optValues, vs) }

// BaseType sets the base primitive of an enum field. It is only meaningful
// for enum fields (declared with EnumOf or given Values); elsewhere it is
// dropped.
func BaseType(p Primitive) Option { return opt(MetaType, p) }

// Meta attaches an arbitrary option pair. Unrecognized keys are silently
// dropped during normalization, which keeps declarative front-ends (files,
// code generators) forward compatible.
func Meta(key string, v any) Option { return opt(key, v) }

// Option keys consumed by normalization rather than kept as metadata.
const (
	optRequired  = "required"
	optMin       = "min"
	optMax       = "max"
	optMinLength = "min_length"
	optMaxLength = "max_length"
	optValues    = "values"
)

// Err returns the accumulated declaration errors, if any.
func (b *Builder) Err() error {
	if len(b.errs) == 0 {
		return nil
	}
	if len(b.errs) == 1 {
		return b.errs[0]
	}
	msgs := make([]string, len(b.errs))
	for i, e := range b.errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("schema: %d invalid declarations: %s", len(b.errs), strings.Join(msgs, "; "))
}

// Len returns the number of captured declarations.
func (b *Builder) Len() int { return len(b.decls) }
