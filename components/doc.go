// Package components is the registry that turns declared schemas into live
// MCP components. A tool or prompt is registered once: its schema compiles
// into the normalized tree, the JSON-Schema document advertised to clients,
// and the validator used on every request. The containers hold these
// immutable artifacts, serve paginated listings, and gate each invocation
// through the component's validator.
//
// Containers embed a change notifier so servers can emit listChanged, and
// can attach a notify.Broadcaster to propagate changes across instances.
// The Dispatcher maps the tools/* and prompts/* JSON-RPC methods onto the
// containers, rendering validation failures as InvalidParams errors whose
// data carries the structured error list.
package components
