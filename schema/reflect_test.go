package schema

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReflect_ParityWithBuilder(t *testing.T) {
	type Args struct {
		Name  string  `json:"name" jsonschema:"description=User name"`
		Score float64 `json:"score,omitempty"`
	}

	reflected, err := Reflect[Args]()
	if err != nil {
		t.Fatalf("reflect: %v", err)
	}
	fromReflection := mustCompile(t, reflected)
	handWritten := mustCompile(t, New().
		Field("name", String, Require(), Description("User name")).
		Field("score", Float))

	if diff := cmp.Diff(handWritten.Root(), fromReflection.Root()); diff != "" {
		t.Fatalf("reflected schema differs from builder schema:\n%s", diff)
	}
	a, _ := json.Marshal(handWritten.JSONSchema())
	b, _ := json.Marshal(fromReflection.JSONSchema())
	if string(a) != string(b) {
		t.Fatalf("emitted documents differ:\n%s\n%s", a, b)
	}
}

func TestReflect_OptionalViaPointerOrOmitEmpty(t *testing.T) {
	type Args struct {
		Needed string  `json:"needed"`
		Maybe  *string `json:"maybe,omitempty"`
	}
	c := mustCompile(t, MustReflect[Args]())
	if !c.Root().Fields["needed"].IsRequired() {
		t.Fatalf("non-pointer field should be required")
	}
	if c.Root().Fields["maybe"].IsRequired() {
		t.Fatalf("omitempty pointer field should be optional")
	}
}

func TestReflect_EnumTag(t *testing.T) {
	type Args struct {
		Mode string `json:"mode" jsonschema:"enum=fast,enum=slow"`
	}
	c := mustCompile(t, MustReflect[Args]())
	f := c.Root().Fields["mode"]
	var expr TypeExpr = f.Type
	if r, ok := expr.(Required); ok {
		expr = r.Inner
	}
	e, ok := expr.(Enum)
	if !ok {
		t.Fatalf("expected enum expression, got %T", expr)
	}
	if len(e.Values) != 2 {
		t.Fatalf("enum values: %v", e.Values)
	}
	if p, _ := f.BasePrimitive(); p != String {
		t.Fatalf("enum base = %s", p)
	}
}

func TestReflect_BoundsTags(t *testing.T) {
	type Args struct {
		Count int    `json:"count" jsonschema:"minimum=10,maximum=100"`
		Title string `json:"title,omitempty" jsonschema:"minLength=5,maxLength=20"`
	}
	c := mustCompile(t, MustReflect[Args]())

	countExpr := c.Root().Fields["count"].Type
	if r, ok := countExpr.(Required); ok {
		countExpr = r.Inner
	}
	cc, ok := countExpr.(Constrained)
	if !ok {
		t.Fatalf("count expression: %T", countExpr)
	}
	if diff := cmp.Diff(Range{Min: 10, Max: 100}, cc.Constraint); diff != "" {
		t.Fatalf("count constraint:\n%s", diff)
	}

	tc, ok := c.Root().Fields["title"].Type.(Constrained)
	if !ok {
		t.Fatalf("title expression: %T", c.Root().Fields["title"].Type)
	}
	if diff := cmp.Diff(LenRange{Min: 5, Max: 20}, tc.Constraint); diff != "" {
		t.Fatalf("title constraint:\n%s", diff)
	}
}

func TestReflect_NestedStruct(t *testing.T) {
	type Profile struct {
		Email string `json:"email"`
	}
	type Args struct {
		User Profile `json:"user"`
	}
	c := mustCompile(t, MustReflect[Args]())
	expr := c.Root().Fields["user"].Type
	if r, ok := expr.(Required); ok {
		expr = r.Inner
	}
	nested, ok := expr.(*Object)
	if !ok {
		t.Fatalf("expected nested object, got %T", expr)
	}
	if !nested.Fields["email"].IsRequired() {
		t.Fatalf("nested email should be required")
	}
}

func TestReflect_RejectsArrays(t *testing.T) {
	type Args struct {
		Tags []string `json:"tags"`
	}
	if _, err := Reflect[Args](); err == nil {
		t.Fatalf("expected error for slice field")
	}
}
