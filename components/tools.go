package components

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/VoiSmart/hermes-mcp/mcp"
	"github.com/VoiSmart/hermes-mcp/schema"
)

// ToolHandler executes a tool invocation. The params map has already passed
// the tool's input validator: keys are declared field names and values carry
// their coerced representations.
type ToolHandler func(ctx context.Context, params schema.Params) (*mcp.CallToolResult, error)

// ToolDef pairs an MCP tool descriptor with its compiled schemas and handler.
// Construct with NewTool so the descriptor and validators always agree.
type ToolDef struct {
	Descriptor mcp.Tool
	Input      *schema.Compiled
	Output     *schema.Compiled
	Handler    ToolHandler

	validateOpts []schema.ValidateOption
}

// ToolOption configures NewTool.
type ToolOption func(*toolConfig)

type toolConfig struct {
	title        string
	description  string
	output       *schema.Builder
	fillDefaults bool
}

// WithToolDescription sets the tool description used in listings.
func WithToolDescription(desc string) ToolOption {
	return func(c *toolConfig) { c.description = desc }
}

// WithToolTitle sets the human-oriented tool title.
func WithToolTitle(title string) ToolOption {
	return func(c *toolConfig) { c.title = title }
}

// WithToolOutput declares the tool's structured output shape. The shape is
// compiled with the same machinery as the input, advertised as outputSchema,
// and enforced against the handler's structured content.
func WithToolOutput(b *schema.Builder) ToolOption {
	return func(c *toolConfig) { c.output = b }
}

// WithToolFillDefaults makes absent arguments that declare a default take
// that value during validation.
func WithToolFillDefaults() ToolOption {
	return func(c *toolConfig) { c.fillDefaults = true }
}

// NewTool compiles the input schema (and optional output shape) once and
// builds the tool definition around the resulting artifacts.
func NewTool(name string, input *schema.Builder, handler ToolHandler, opts ...ToolOption) (ToolDef, error) {
	if name == "" {
		return ToolDef{}, fmt.Errorf("components: tool has no name")
	}
	cfg := toolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if input == nil {
		input = schema.New()
	}
	compiled, err := input.Compile()
	if err != nil {
		return ToolDef{}, fmt.Errorf("components: tool %s: %w", name, err)
	}
	inputJSON, err := json.Marshal(compiled.JSONSchema())
	if err != nil {
		return ToolDef{}, fmt.Errorf("components: tool %s: %w", name, err)
	}
	def := ToolDef{
		Descriptor: mcp.Tool{
			Name:        name,
			Title:       cfg.title,
			Description: cfg.description,
			InputSchema: inputJSON,
		},
		Input:   compiled,
		Handler: handler,
	}
	if cfg.output != nil {
		out, err := cfg.output.Compile()
		if err != nil {
			return ToolDef{}, fmt.Errorf("components: tool %s output shape: %w", name, err)
		}
		outputJSON, err := json.Marshal(out.JSONSchema())
		if err != nil {
			return ToolDef{}, fmt.Errorf("components: tool %s output shape: %w", name, err)
		}
		def.Output = out
		def.Descriptor.OutputSchema = outputJSON
	}
	if cfg.fillDefaults {
		def.validateOpts = []schema.ValidateOption{schema.FillDefaults()}
	}
	return def, nil
}

// MustTool is NewTool that panics on schema errors. Intended for static tool
// sets declared at package level.
func MustTool(name string, input *schema.Builder, handler ToolHandler, opts ...ToolOption) ToolDef {
	def, err := NewTool(name, input, handler, opts...)
	if err != nil {
		panic(err)
	}
	return def
}

// ValidationError reports that a request's arguments failed the component's
// input validator. It wraps the full structured error list.
type ValidationError struct {
	Errors schema.FieldErrors
}

func (e *ValidationError) Error() string { return e.Errors.Error() }

// ErrNotFound reports that no component with the requested name exists.
type ErrNotFound struct {
	Kind string
	Name string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

// Tools owns a mutable, threadsafe set of tool definitions. It serves
// paginated listings, dispatches calls through each tool's validator, and
// signals changes through its embedded notifier.
type Tools struct {
	ChangeNotifier

	mu       sync.RWMutex
	defs     []ToolDef
	byName   map[string]int
	pageSize int
}

// NewTools constructs a container with the given tool definitions.
func NewTools(defs ...ToolDef) *Tools {
	t := &Tools{pageSize: 50}
	t.Replace(context.Background(), defs...)
	return t
}

// SetPageSize sets the pagination size used by List. Non-positive values are
// ignored.
func (t *Tools) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	t.pageSize = n
	t.mu.Unlock()
}

// Snapshot returns a copy of the current tool descriptors.
func (t *Tools) Snapshot() []mcp.Tool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]mcp.Tool, len(t.defs))
	for i, d := range t.defs {
		out[i] = d.Descriptor
	}
	return out
}

// Replace atomically replaces the entire tool set. Later duplicates win.
func (t *Tools) Replace(_ context.Context, defs ...ToolDef) {
	t.mu.Lock()
	t.defs = t.defs[:0]
	t.byName = make(map[string]int, len(defs))
	for _, d := range defs {
		if prev, dup := t.byName[d.Descriptor.Name]; dup {
			t.defs[prev] = d
			continue
		}
		t.byName[d.Descriptor.Name] = len(t.defs)
		t.defs = append(t.defs, d)
	}
	t.mu.Unlock()
	t.changed()
}

// Add registers a new tool. It reports false if the name is already taken.
func (t *Tools) Add(_ context.Context, def ToolDef) bool {
	t.mu.Lock()
	if _, exists := t.byName[def.Descriptor.Name]; exists {
		t.mu.Unlock()
		return false
	}
	t.byName[def.Descriptor.Name] = len(t.defs)
	t.defs = append(t.defs, def)
	t.mu.Unlock()
	t.changed()
	return true
}

// Remove removes a tool by name. It reports whether anything was removed.
func (t *Tools) Remove(_ context.Context, name string) bool {
	t.mu.Lock()
	idx, ok := t.byName[name]
	if !ok {
		t.mu.Unlock()
		return false
	}
	t.defs = append(t.defs[:idx], t.defs[idx+1:]...)
	delete(t.byName, name)
	for n, i := range t.byName {
		if i > idx {
			t.byName[n] = i - 1
		}
	}
	t.mu.Unlock()
	t.changed()
	return true
}

// List returns one page of tool descriptors.
func (t *Tools) List(_ context.Context, cursor *string) (Page[mcp.Tool], error) {
	t.mu.RLock()
	all := make([]mcp.Tool, len(t.defs))
	for i, d := range t.defs {
		all[i] = d.Descriptor
	}
	pageSize := t.pageSize
	t.mu.RUnlock()
	return pageSlice(all, cursor, pageSize), nil
}

// Call validates the request arguments against the named tool's input schema
// and invokes its handler. Validation failures return a *ValidationError;
// unknown tools return a *ErrNotFound. When the tool declares an output
// shape, the handler's structured content is validated before the result is
// released.
func (t *Tools) Call(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req == nil || req.Name == "" {
		return nil, fmt.Errorf("components: invalid tool request: missing name")
	}
	t.mu.RLock()
	idx, ok := t.byName[req.Name]
	var def ToolDef
	if ok {
		def = t.defs[idx]
	}
	t.mu.RUnlock()
	if !ok {
		return nil, &ErrNotFound{Kind: "tool", Name: req.Name}
	}

	params, verrs := def.Input.ValidateJSON(req.Arguments, def.validateOpts...)
	if len(verrs) > 0 {
		return nil, &ValidationError{Errors: verrs}
	}
	res, err := def.Handler(ctx, params)
	if err != nil {
		return nil, err
	}
	if def.Output != nil && res != nil && res.StructuredContent != nil {
		if _, oerrs := def.Output.Validate(res.StructuredContent); len(oerrs) > 0 {
			return nil, fmt.Errorf("components: tool %s produced invalid structured content: %w", req.Name, oerrs)
		}
	}
	return res, nil
}

// TextResult is a small helper to build a text CallToolResult.
func TextResult(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: s}}}
}

// Errorf returns an error CallToolResult with a single text block.
func Errorf(format string, a ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.ContentBlock{{Type: "text", Text: fmt.Sprintf(format, a...)}},
		IsError: true,
	}
}
