package schemafile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/VoiSmart/hermes-mcp/schema"
)

const taskYAML = `name: create_task
kind: tool
description: Create a task
input:
  title:
    type: string
    required: true
    min_length: 3
    max_length: 80
  priority:
    type: string
    values: [low, medium, high]
    default: medium
  owner:
    required: true
    fields:
      email:
        type: string
        format: email
        required: true
output:
  id:
    type: string
    required: true
`

func TestParse_ParityWithBuilder(t *testing.T) {
	def, err := Parse([]byte(taskYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if def.Name != "create_task" || def.Kind != KindTool || def.Description != "Create a task" {
		t.Fatalf("definition header: %+v", def)
	}

	fromFile, err := def.Input.Compile()
	if err != nil {
		t.Fatalf("compile parsed input: %v", err)
	}
	handWritten, err := schema.New().
		Field("title", schema.String, schema.Require(), schema.MinLength(3), schema.MaxLength(80)).
		Field("priority", schema.String, schema.Values("low", "medium", "high"), schema.Default("medium")).
		Object("owner", func(o *schema.Builder) {
			o.Field("email", schema.String, schema.Format("email"), schema.Require())
		}, schema.Require()).
		Compile()
	if err != nil {
		t.Fatalf("compile hand-written: %v", err)
	}

	if diff := cmp.Diff(handWritten.Root(), fromFile.Root()); diff != "" {
		t.Fatalf("parsed schema differs from builder schema:\n%s", diff)
	}
	a, _ := json.Marshal(handWritten.JSONSchema())
	b, _ := json.Marshal(fromFile.JSONSchema())
	if string(a) != string(b) {
		t.Fatalf("emitted documents differ:\n%s\n%s", a, b)
	}
}

func TestParse_FieldOrderPreserved(t *testing.T) {
	def, err := Parse([]byte(taskYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c, err := def.Input.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	want := []string{"title", "priority", "owner"}
	if diff := cmp.Diff(want, c.Root().FieldOrder); diff != "" {
		t.Fatalf("field order:\n%s", diff)
	}
}

func TestParse_UnknownOptionDropped(t *testing.T) {
	def, err := Parse([]byte(`name: t
kind: tool
input:
  x:
    type: string
    frobnicate: true
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c, err := def.Input.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, ok := c.Root().Fields["x"].MetaValue("frobnicate"); ok {
		t.Fatalf("unknown option survived")
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"type and fields", "name: t\ninput:\n  x:\n    type: string\n    fields:\n      y: {type: string}\n"},
		{"values and fields", "name: t\ninput:\n  x:\n    values: [a]\n    fields:\n      y: {type: string}\n"},
		{"unknown type", "name: t\ninput:\n  x:\n    type: uuid\n"},
		{"missing name", "kind: tool\ninput:\n  x: {type: string}\n"},
		{"unknown kind", "name: t\nkind: resource\n"},
		{"prompt with output", "name: t\nkind: prompt\noutput:\n  x: {type: string}\n"},
		{"unknown top-level key", "name: t\nbogus: 1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.in)); err == nil {
				t.Fatalf("expected parse error")
			}
		})
	}
}

func TestParse_PromptArguments(t *testing.T) {
	def, err := Parse([]byte(`name: review
kind: prompt
description: Review code
arguments:
  language:
    type: string
    required: true
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if def.Kind != KindPrompt {
		t.Fatalf("kind: %s", def.Kind)
	}
	c, err := def.Input.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !c.Root().Fields["language"].IsRequired() {
		t.Fatalf("language should be required")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("b_task.yaml", taskYAML)
	write("a_echo.yaml", "name: echo\nkind: tool\ninput:\n  message: {type: string, required: true}\n")
	write("notes.txt", "not a schema")

	defs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("definitions: %d", len(defs))
	}
	if defs[0].Name != "echo" || defs[1].Name != "create_task" {
		t.Fatalf("order: %s, %s", defs[0].Name, defs[1].Name)
	}
}

func TestLoadDir_DuplicateName(t *testing.T) {
	dir := t.TempDir()
	content := "name: dup\nkind: tool\ninput:\n  x: {type: string}\n"
	for _, name := range []string{"a.yaml", "b.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := LoadDir(dir); err == nil {
		t.Fatalf("expected duplicate-name error")
	}
}
