package schemafile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/VoiSmart/hermes-mcp/components"
)

// ToolResolver supplies the handler for a tool declared in a file. Returning
// false skips the declaration.
type ToolResolver func(def *Definition) (components.ToolHandler, bool)

// PromptResolver supplies the handler for a prompt declared in a file.
type PromptResolver func(def *Definition) (components.PromptHandler, bool)

// Watcher keeps registry containers in sync with a directory of schema
// files. Reload replaces container contents atomically; Run additionally
// watches the directory and reloads on changes, keeping the last good set
// in place when a reload fails.
type Watcher struct {
	dir           string
	tools         *components.Tools
	resolveTool   ToolResolver
	prompts       *components.Prompts
	resolvePrompt PromptResolver
	log           *slog.Logger
	settle        time.Duration
}

// WatcherOption configures NewWatcher.
type WatcherOption func(*Watcher)

// WithTools routes tool declarations into the container, using the resolver
// to attach handlers by component name.
func WithTools(t *components.Tools, resolve ToolResolver) WatcherOption {
	return func(w *Watcher) {
		w.tools = t
		w.resolveTool = resolve
	}
}

// WithPrompts routes prompt declarations into the container.
func WithPrompts(p *components.Prompts, resolve PromptResolver) WatcherOption {
	return func(w *Watcher) {
		w.prompts = p
		w.resolvePrompt = resolve
	}
}

// WithLogger sets the logger used for reload outcomes.
func WithLogger(log *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.log = log }
}

// NewWatcher builds a watcher over dir.
func NewWatcher(dir string, opts ...WatcherOption) *Watcher {
	w := &Watcher{dir: dir, log: slog.Default(), settle: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Reload loads the directory and replaces container contents. On error the
// containers keep their previous contents.
func (w *Watcher) Reload(ctx context.Context) error {
	defs, err := LoadDir(w.dir)
	if err != nil {
		return err
	}

	var toolDefs []components.ToolDef
	var promptDefs []components.PromptDef
	for _, def := range defs {
		switch def.Kind {
		case KindTool:
			if w.tools == nil {
				continue
			}
			handler, ok := w.resolveHandler(def)
			if !ok {
				w.log.Warn("no handler for tool, skipping", slog.String("tool", def.Name))
				continue
			}
			opts := []components.ToolOption{
				components.WithToolTitle(def.Title),
				components.WithToolDescription(def.Description),
			}
			if def.Output != nil {
				opts = append(opts, components.WithToolOutput(def.Output))
			}
			td, err := components.NewTool(def.Name, def.Input, handler, opts...)
			if err != nil {
				return fmt.Errorf("schemafile: tool %s: %w", def.Name, err)
			}
			toolDefs = append(toolDefs, td)
		case KindPrompt:
			if w.prompts == nil {
				continue
			}
			if w.resolvePrompt == nil {
				continue
			}
			handler, ok := w.resolvePrompt(def)
			if !ok {
				w.log.Warn("no handler for prompt, skipping", slog.String("prompt", def.Name))
				continue
			}
			pd, err := components.NewPrompt(def.Name, def.Input, handler,
				components.WithPromptTitle(def.Title),
				components.WithPromptDescription(def.Description))
			if err != nil {
				return fmt.Errorf("schemafile: prompt %s: %w", def.Name, err)
			}
			promptDefs = append(promptDefs, pd)
		}
	}

	if w.tools != nil {
		w.tools.Replace(ctx, toolDefs...)
	}
	if w.prompts != nil {
		w.prompts.Replace(ctx, promptDefs...)
	}
	return nil
}

func (w *Watcher) resolveHandler(def *Definition) (components.ToolHandler, bool) {
	if w.resolveTool == nil {
		return nil, false
	}
	return w.resolveTool(def)
}

// Run performs an initial Reload, then watches the directory until ctx is
// cancelled. Reload failures after the first are logged and the previous
// component set stays live.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Reload(ctx); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("schemafile: watch: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("schemafile: watch %s: %w", w.dir, err)
	}

	// Editors fire bursts of events per save; coalesce them before
	// reloading.
	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.settle)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.settle)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Debug("watch error", slog.String("err", err.Error()))
		case <-timerC:
			timer = nil
			timerC = nil
			if err := w.Reload(ctx); err != nil {
				w.log.Warn("schema reload failed, keeping previous set", slog.String("err", err.Error()))
			} else {
				w.log.Debug("schema directory reloaded", slog.String("dir", w.dir))
			}
		}
	}
}
