package components

import (
	"context"
	"fmt"
	"sync"

	"github.com/VoiSmart/hermes-mcp/mcp"
	"github.com/VoiSmart/hermes-mcp/schema"
)

// PromptHandler materializes a prompt from validated arguments.
type PromptHandler func(ctx context.Context, params schema.Params) (*mcp.GetPromptResult, error)

// PromptDef pairs a prompt descriptor with its compiled argument schema and
// handler. The descriptor's argument list is derived from the schema's
// top-level fields, so the two never drift apart.
type PromptDef struct {
	Descriptor mcp.Prompt
	Args       *schema.Compiled
	Handler    PromptHandler
}

// PromptOption configures NewPrompt.
type PromptOption func(*promptConfig)

type promptConfig struct {
	title       string
	description string
}

// WithPromptDescription sets the prompt description used in listings.
func WithPromptDescription(desc string) PromptOption {
	return func(c *promptConfig) { c.description = desc }
}

// WithPromptTitle sets the human-oriented prompt title.
func WithPromptTitle(title string) PromptOption {
	return func(c *promptConfig) { c.title = title }
}

// NewPrompt compiles the argument schema and derives the protocol-visible
// argument descriptors from its top-level fields.
func NewPrompt(name string, args *schema.Builder, handler PromptHandler, opts ...PromptOption) (PromptDef, error) {
	if name == "" {
		return PromptDef{}, fmt.Errorf("components: prompt has no name")
	}
	cfg := promptConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if args == nil {
		args = schema.New()
	}
	compiled, err := args.Compile()
	if err != nil {
		return PromptDef{}, fmt.Errorf("components: prompt %s: %w", name, err)
	}

	root := compiled.Root()
	var descriptors []mcp.PromptArgument
	for _, fieldName := range root.FieldOrder {
		f := root.Fields[fieldName]
		arg := mcp.PromptArgument{Name: fieldName, Required: f.IsRequired()}
		if desc, ok := f.MetaValue(schema.MetaDescription); ok {
			if s, ok := desc.(string); ok {
				arg.Description = s
			}
		}
		descriptors = append(descriptors, arg)
	}

	return PromptDef{
		Descriptor: mcp.Prompt{
			Name:        name,
			Title:       cfg.title,
			Description: cfg.description,
			Arguments:   descriptors,
		},
		Args:    compiled,
		Handler: handler,
	}, nil
}

// MustPrompt is NewPrompt that panics on schema errors.
func MustPrompt(name string, args *schema.Builder, handler PromptHandler, opts ...PromptOption) PromptDef {
	def, err := NewPrompt(name, args, handler, opts...)
	if err != nil {
		panic(err)
	}
	return def
}

// Prompts owns a mutable, threadsafe set of prompt definitions.
type Prompts struct {
	ChangeNotifier

	mu       sync.RWMutex
	defs     []PromptDef
	byName   map[string]int
	pageSize int
}

// NewPrompts constructs a container with the given prompt definitions.
func NewPrompts(defs ...PromptDef) *Prompts {
	p := &Prompts{pageSize: 50}
	p.Replace(context.Background(), defs...)
	return p
}

// SetPageSize sets the pagination size used by List. Non-positive values are
// ignored.
func (p *Prompts) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	p.pageSize = n
	p.mu.Unlock()
}

// Snapshot returns a copy of the current prompt descriptors.
func (p *Prompts) Snapshot() []mcp.Prompt {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]mcp.Prompt, len(p.defs))
	for i, d := range p.defs {
		out[i] = d.Descriptor
	}
	return out
}

// Replace atomically replaces the entire prompt set. Later duplicates win.
func (p *Prompts) Replace(_ context.Context, defs ...PromptDef) {
	p.mu.Lock()
	p.defs = p.defs[:0]
	p.byName = make(map[string]int, len(defs))
	for _, d := range defs {
		if prev, dup := p.byName[d.Descriptor.Name]; dup {
			p.defs[prev] = d
			continue
		}
		p.byName[d.Descriptor.Name] = len(p.defs)
		p.defs = append(p.defs, d)
	}
	p.mu.Unlock()
	p.changed()
}

// Add registers a new prompt. It reports false if the name is already taken.
func (p *Prompts) Add(_ context.Context, def PromptDef) bool {
	p.mu.Lock()
	if _, exists := p.byName[def.Descriptor.Name]; exists {
		p.mu.Unlock()
		return false
	}
	p.byName[def.Descriptor.Name] = len(p.defs)
	p.defs = append(p.defs, def)
	p.mu.Unlock()
	p.changed()
	return true
}

// Remove removes a prompt by name. It reports whether anything was removed.
func (p *Prompts) Remove(_ context.Context, name string) bool {
	p.mu.Lock()
	idx, ok := p.byName[name]
	if !ok {
		p.mu.Unlock()
		return false
	}
	p.defs = append(p.defs[:idx], p.defs[idx+1:]...)
	delete(p.byName, name)
	for n, i := range p.byName {
		if i > idx {
			p.byName[n] = i - 1
		}
	}
	p.mu.Unlock()
	p.changed()
	return true
}

// List returns one page of prompt descriptors.
func (p *Prompts) List(_ context.Context, cursor *string) (Page[mcp.Prompt], error) {
	p.mu.RLock()
	all := make([]mcp.Prompt, len(p.defs))
	for i, d := range p.defs {
		all[i] = d.Descriptor
	}
	pageSize := p.pageSize
	p.mu.RUnlock()
	return pageSlice(all, cursor, pageSize), nil
}

// Get validates the request arguments against the named prompt's schema and
// invokes its handler. The same error contract as Tools.Call applies.
func (p *Prompts) Get(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	if req == nil || req.Name == "" {
		return nil, fmt.Errorf("components: invalid prompt request: missing name")
	}
	p.mu.RLock()
	idx, ok := p.byName[req.Name]
	var def PromptDef
	if ok {
		def = p.defs[idx]
	}
	p.mu.RUnlock()
	if !ok {
		return nil, &ErrNotFound{Kind: "prompt", Name: req.Name}
	}

	params, verrs := def.Args.ValidateJSON(req.Arguments)
	if len(verrs) > 0 {
		return nil, &ValidationError{Errors: verrs}
	}
	return def.Handler(ctx, params)
}
