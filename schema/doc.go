// Package schema is the declarative input/output schema subsystem of the
// server library. A tool or prompt author declares the shape of a component's
// arguments once, through the builder DSL or struct reflection, and the
// package derives three agreeing artifacts from that single source:
//
//  1. a normalized internal tree used for runtime validation,
//  2. a draft-07-shaped JSON-Schema document published to clients, and
//  3. a validator that turns loose input maps into typed parameter maps or
//     a full list of path-qualified errors.
//
// Layering:
//
//	Builder   --> ordered raw declarations; nothing interpreted yet.
//	Normalize --> canonical tagged tree (constraint folding, required
//	              lifting, enum fusion, unknown-option dropping).
//	Emit      --> the JSON-Schema Document (canonical bytes + fingerprint).
//	Validate  --> the runtime gate; pure, allocation-light, collects every
//	              sibling error rather than stopping at the first.
//
// The emitter and validator consult only the normalized tree, never the raw
// declarations, so alternative capture front-ends (struct reflection here,
// schema files in the schemafile package) get identical behavior for free.
//
// Compiled values are immutable and safe for concurrent use; validation does
// no I/O and never blocks.
package schema
