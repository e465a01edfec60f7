package components

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/VoiSmart/hermes-mcp/internal/jsonrpc"
	"github.com/VoiSmart/hermes-mcp/mcp"
)

// Dispatcher routes tool and prompt JSON-RPC requests onto the configured
// containers. It is the request-side consumer of the schema subsystem: every
// call passes through the component's compiled validator, and validation
// failures surface as InvalidParams errors carrying the structured error
// list.
type Dispatcher struct {
	tools   *Tools
	prompts *Prompts
	log     *slog.Logger
}

// DispatcherOption configures NewDispatcher.
type DispatcherOption func(*Dispatcher)

// WithTools exposes a tools container through the dispatcher.
func WithTools(t *Tools) DispatcherOption {
	return func(d *Dispatcher) { d.tools = t }
}

// WithPrompts exposes a prompts container through the dispatcher.
func WithPrompts(p *Prompts) DispatcherOption {
	return func(d *Dispatcher) { d.prompts = p }
}

// WithLogger sets the logger used for dispatch failures.
func WithLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = log }
}

// NewDispatcher builds a dispatcher over the given containers.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{log: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleMessage decodes one raw JSON-RPC message and handles it. A decode
// failure yields a ParseError/InvalidRequest response with a null ID.
func (d *Dispatcher) HandleMessage(ctx context.Context, raw []byte) *jsonrpc.Response {
	if !json.Valid(raw) {
		return jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeParseError, "invalid JSON", nil)
	}
	req, err := jsonrpc.DecodeRequest(raw)
	if err != nil {
		return jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeInvalidRequest, err.Error(), nil)
	}
	return d.Handle(ctx, req)
}

// Handle dispatches a decoded request. Notifications return nil.
func (d *Dispatcher) Handle(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	if req.IsNotification() {
		return nil
	}
	switch req.Method {
	case mcp.MethodToolsList:
		return d.listTools(ctx, req)
	case mcp.MethodToolsCall:
		return d.callTool(ctx, req)
	case mcp.MethodPromptsList:
		return d.listPrompts(ctx, req)
	case mcp.MethodPromptsGet:
		return d.getPrompt(ctx, req)
	default:
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "method not found: "+req.Method, nil)
	}
}

func (d *Dispatcher) listTools(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	if d.tools == nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "tools capability not configured", nil)
	}
	var params mcp.ListToolsRequest
	if resp := decodeParams(req, &params); resp != nil {
		return resp
	}
	page, err := d.tools.List(ctx, params.Cursor)
	if err != nil {
		return d.internalError(req, err)
	}
	return d.result(req, mcp.ListToolsResult{Tools: page.Items, NextCursor: page.NextCursor})
}

func (d *Dispatcher) callTool(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	if d.tools == nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "tools capability not configured", nil)
	}
	var params mcp.CallToolRequest
	if resp := decodeParams(req, &params); resp != nil {
		return resp
	}
	res, err := d.tools.Call(ctx, &params)
	if err != nil {
		return d.componentError(req, err)
	}
	return d.result(req, res)
}

func (d *Dispatcher) listPrompts(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	if d.prompts == nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "prompts capability not configured", nil)
	}
	var params mcp.ListPromptsRequest
	if resp := decodeParams(req, &params); resp != nil {
		return resp
	}
	page, err := d.prompts.List(ctx, params.Cursor)
	if err != nil {
		return d.internalError(req, err)
	}
	return d.result(req, mcp.ListPromptsResult{Prompts: page.Items, NextCursor: page.NextCursor})
}

func (d *Dispatcher) getPrompt(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	if d.prompts == nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "prompts capability not configured", nil)
	}
	var params mcp.GetPromptRequest
	if resp := decodeParams(req, &params); resp != nil {
		return resp
	}
	res, err := d.prompts.Get(ctx, &params)
	if err != nil {
		return d.componentError(req, err)
	}
	return d.result(req, res)
}

// componentError maps container failures onto protocol errors: validation
// failures become InvalidParams with the structured error list as data,
// unknown components become InvalidParams with a plain message, anything
// else is internal.
func (d *Dispatcher) componentError(req *jsonrpc.Request, err error) *jsonrpc.Response {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, verr.Error(), map[string]any{
			"errors": verr.Errors,
		})
	}
	var nferr *ErrNotFound
	if errors.As(err, &nferr) {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, nferr.Error(), nil)
	}
	return d.internalError(req, err)
}

func (d *Dispatcher) internalError(req *jsonrpc.Request, err error) *jsonrpc.Response {
	d.log.Error("dispatch failed",
		slog.String("method", req.Method),
		slog.String("err", err.Error()))
	return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
}

func (d *Dispatcher) result(req *jsonrpc.Request, result any) *jsonrpc.Response {
	resp, err := jsonrpc.NewResultResponse(req.ID, result)
	if err != nil {
		return d.internalError(req, err)
	}
	return resp
}

func decodeParams(req *jsonrpc.Request, dst any) *jsonrpc.Response {
	if len(req.Params) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params, dst); err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "malformed params: "+err.Error(), nil)
	}
	return nil
}
