package components

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/VoiSmart/hermes-mcp/internal/jsonrpc"
	"github.com/VoiSmart/hermes-mcp/mcp"
	"github.com/VoiSmart/hermes-mcp/schema"
)

func testDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	tools := NewTools(MustTool("count",
		schema.New().Field("n", schema.Integer, schema.Min(10), schema.Max(100), schema.Require()),
		func(ctx context.Context, params schema.Params) (*mcp.CallToolResult, error) {
			return TextResult("ok"), nil
		}))
	prompts := NewPrompts(reviewPrompt(t))
	return NewDispatcher(WithTools(tools), WithPrompts(prompts))
}

func request(t *testing.T, method string, params string) *jsonrpc.Request {
	t.Helper()
	raw := `{"jsonrpc":"2.0","id":1,"method":"` + method + `"`
	if params != "" {
		raw += `,"params":` + params
	}
	raw += `}`
	req, err := jsonrpc.DecodeRequest([]byte(raw))
	if err != nil {
		t.Fatalf("decode request: %v", err)
	}
	return req
}

func TestDispatch_ToolsList(t *testing.T) {
	d := testDispatcher(t)
	resp := d.Handle(context.Background(), request(t, mcp.MethodToolsList, ""))
	if resp.Error != nil {
		t.Fatalf("error: %+v", resp.Error)
	}
	var res mcp.ListToolsResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(res.Tools) != 1 || res.Tools[0].Name != "count" {
		t.Fatalf("tools: %+v", res.Tools)
	}
	if len(res.Tools[0].InputSchema) == 0 {
		t.Fatalf("listing does not expose the input schema")
	}
}

func TestDispatch_ToolsCall(t *testing.T) {
	d := testDispatcher(t)
	resp := d.Handle(context.Background(), request(t, mcp.MethodToolsCall, `{"name":"count","arguments":{"n":50}}`))
	if resp.Error != nil {
		t.Fatalf("error: %+v", resp.Error)
	}
	var res mcp.CallToolResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if res.Content[0].Text != "ok" {
		t.Fatalf("result: %+v", res)
	}
}

func TestDispatch_InvalidParams(t *testing.T) {
	d := testDispatcher(t)
	resp := d.Handle(context.Background(), request(t, mcp.MethodToolsCall, `{"name":"count","arguments":{"n":5}}`))
	if resp.Error == nil {
		t.Fatalf("expected error response")
	}
	if resp.Error.Code != jsonrpc.ErrorCodeInvalidParams {
		t.Fatalf("code = %d", resp.Error.Code)
	}
	if !strings.Contains(resp.Error.Message, "out_of_range at n") {
		t.Fatalf("message = %q", resp.Error.Message)
	}
	data, ok := resp.Error.Data.(map[string]any)
	if !ok {
		t.Fatalf("error data: %T", resp.Error.Data)
	}
	if _, ok := data["errors"]; !ok {
		t.Fatalf("error data missing structured errors: %v", data)
	}
}

func TestDispatch_UnknownToolIsInvalidParams(t *testing.T) {
	d := testDispatcher(t)
	resp := d.Handle(context.Background(), request(t, mcp.MethodToolsCall, `{"name":"missing"}`))
	if resp.Error == nil || resp.Error.Code != jsonrpc.ErrorCodeInvalidParams {
		t.Fatalf("response: %+v", resp)
	}
}

func TestDispatch_PromptsGet(t *testing.T) {
	d := testDispatcher(t)
	resp := d.Handle(context.Background(), request(t, mcp.MethodPromptsGet, `{"name":"code_review","arguments":{"language":"go"}}`))
	if resp.Error != nil {
		t.Fatalf("error: %+v", resp.Error)
	}
	var res mcp.GetPromptResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(res.Messages) != 1 {
		t.Fatalf("messages: %+v", res.Messages)
	}
}

func TestDispatch_MethodNotFound(t *testing.T) {
	d := testDispatcher(t)
	resp := d.Handle(context.Background(), request(t, "resources/list", ""))
	if resp.Error == nil || resp.Error.Code != jsonrpc.ErrorCodeMethodNotFound {
		t.Fatalf("response: %+v", resp)
	}
}

func TestDispatch_NotificationProducesNoResponse(t *testing.T) {
	d := testDispatcher(t)
	req, err := jsonrpc.DecodeRequest([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp := d.Handle(context.Background(), req); resp != nil {
		t.Fatalf("notification answered: %+v", resp)
	}
}

func TestDispatch_MalformedMessage(t *testing.T) {
	d := testDispatcher(t)
	resp := d.HandleMessage(context.Background(), []byte(`{"jsonrpc":"1.0","id":1,"method":"x"}`))
	if resp.Error == nil || resp.Error.Code != jsonrpc.ErrorCodeInvalidRequest {
		t.Fatalf("response: %+v", resp)
	}
}
