package components

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/VoiSmart/hermes-mcp/mcp"
	"github.com/VoiSmart/hermes-mcp/schema"
)

func echoTool(t *testing.T, name string) ToolDef {
	t.Helper()
	return MustTool(name,
		schema.New().Field("message", schema.String, schema.Require()),
		func(ctx context.Context, params schema.Params) (*mcp.CallToolResult, error) {
			msg, _ := params.String("message")
			return TextResult("you said: " + msg), nil
		},
		WithToolDescription("Echo a message back"))
}

func TestNewTool_DescriptorCarriesSchema(t *testing.T) {
	def := echoTool(t, "echo")
	if def.Descriptor.Name != "echo" || def.Descriptor.Description != "Echo a message back" {
		t.Fatalf("descriptor: %+v", def.Descriptor)
	}
	var doc map[string]any
	if err := json.Unmarshal(def.Descriptor.InputSchema, &doc); err != nil {
		t.Fatalf("input schema not valid JSON: %v", err)
	}
	if doc["type"] != "object" {
		t.Fatalf("schema root: %v", doc)
	}
	props := doc["properties"].(map[string]any)
	if _, ok := props["message"]; !ok {
		t.Fatalf("schema missing message property: %v", doc)
	}
	if def.Descriptor.OutputSchema != nil {
		t.Fatalf("unexpected output schema")
	}
}

func TestTools_CallValidatesArguments(t *testing.T) {
	tools := NewTools(MustTool("count",
		schema.New().Field("n", schema.Integer, schema.Min(10), schema.Max(100), schema.Require()),
		func(ctx context.Context, params schema.Params) (*mcp.CallToolResult, error) {
			n, _ := params.Int("n")
			if n != 50 {
				t.Fatalf("handler got n=%d", n)
			}
			return TextResult("ok"), nil
		}))

	res, err := tools.Call(context.Background(), &mcp.CallToolRequest{
		Name:      "count",
		Arguments: json.RawMessage(`{"n": 50}`),
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res.Content[0].Text != "ok" {
		t.Fatalf("result: %+v", res)
	}

	_, err = tools.Call(context.Background(), &mcp.CallToolRequest{
		Name:      "count",
		Arguments: json.RawMessage(`{"n": 5}`),
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Errors) != 1 || verr.Errors[0].Kind != schema.KindOutOfRange {
		t.Fatalf("errors: %v", verr.Errors)
	}
}

func TestTools_CallUnknownTool(t *testing.T) {
	tools := NewTools()
	_, err := tools.Call(context.Background(), &mcp.CallToolRequest{Name: "nope"})
	var nf *ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTools_OutputShapeEnforced(t *testing.T) {
	good := map[string]any{"id": "t-1"}
	bad := map[string]any{"id": 42}
	var produce map[string]any

	tools := NewTools(MustTool("create",
		schema.New().Field("name", schema.String, schema.Require()),
		func(ctx context.Context, params schema.Params) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{
				Content:           []mcp.ContentBlock{{Type: "text", Text: "done"}},
				StructuredContent: produce,
			}, nil
		},
		WithToolOutput(schema.New().Field("id", schema.String, schema.Require()))))

	snapshot := tools.Snapshot()
	if snapshot[0].OutputSchema == nil {
		t.Fatalf("output schema not advertised")
	}

	produce = good
	if _, err := tools.Call(context.Background(), &mcp.CallToolRequest{
		Name: "create", Arguments: json.RawMessage(`{"name":"x"}`),
	}); err != nil {
		t.Fatalf("valid output rejected: %v", err)
	}

	produce = bad
	if _, err := tools.Call(context.Background(), &mcp.CallToolRequest{
		Name: "create", Arguments: json.RawMessage(`{"name":"x"}`),
	}); err == nil {
		t.Fatalf("invalid structured content accepted")
	}
}

func TestTools_FillDefaults(t *testing.T) {
	tools := NewTools(MustTool("list",
		schema.New().Field("limit", schema.Integer, schema.Default(10)),
		func(ctx context.Context, params schema.Params) (*mcp.CallToolResult, error) {
			if params["limit"] != 10 {
				t.Fatalf("default not applied: %v", params)
			}
			return TextResult("ok"), nil
		},
		WithToolFillDefaults()))

	if _, err := tools.Call(context.Background(), &mcp.CallToolRequest{Name: "list"}); err != nil {
		t.Fatalf("call: %v", err)
	}
}

func TestTools_ListPagination(t *testing.T) {
	tools := NewTools(echoTool(t, "a"), echoTool(t, "b"), echoTool(t, "c"))
	tools.SetPageSize(2)

	page, err := tools.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 2 || page.NextCursor == nil {
		t.Fatalf("first page: %+v", page)
	}
	page2, err := tools.List(context.Background(), page.NextCursor)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page2.Items) != 1 || page2.NextCursor != nil {
		t.Fatalf("second page: %+v", page2)
	}
	if page2.Items[0].Name != "c" {
		t.Fatalf("ordering: %+v", page2.Items)
	}
}

func TestTools_AddRemoveNotify(t *testing.T) {
	tools := NewTools()
	changed := tools.Changed()

	if !tools.Add(context.Background(), echoTool(t, "x")) {
		t.Fatalf("add failed")
	}
	waitSignal(t, changed)

	if tools.Add(context.Background(), echoTool(t, "x")) {
		t.Fatalf("duplicate add succeeded")
	}
	if !tools.Remove(context.Background(), "x") {
		t.Fatalf("remove failed")
	}
	if tools.Remove(context.Background(), "x") {
		t.Fatalf("double remove succeeded")
	}
	if len(tools.Snapshot()) != 0 {
		t.Fatalf("snapshot after remove: %v", tools.Snapshot())
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("no change signal within deadline")
	}
}

func TestTools_ChangedCoalescesBursts(t *testing.T) {
	tools := NewTools()
	changed := tools.Changed()

	for _, name := range []string{"a", "b", "c"} {
		tools.Add(context.Background(), echoTool(t, name))
	}
	waitSignal(t, changed)

	// Re-arming observes only changes made after the new pulse.
	rearmed := tools.Changed()
	select {
	case <-rearmed:
		t.Fatalf("fresh pulse fired without a change")
	case <-time.After(50 * time.Millisecond):
	}
	tools.Remove(context.Background(), "a")
	waitSignal(t, rearmed)
}
