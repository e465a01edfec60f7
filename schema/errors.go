package schema

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorKind discriminates validation failures.
type ErrorKind string

const (
	KindMissingRequired  ErrorKind = "missing_required"
	KindTypeMismatch     ErrorKind = "type_mismatch"
	KindOutOfRange       ErrorKind = "out_of_range"
	KindLengthOutOfRange ErrorKind = "length_out_of_range"
	KindNotInEnum        ErrorKind = "not_in_enum"
	KindExpectedObject   ErrorKind = "expected_object"
)

// FieldError is a single validation failure. Path locates the offending field
// from the schema root; Context carries kind-specific detail (expected/got
// types, failing bounds, the rejected value).
type FieldError struct {
	Path    []string       `json:"path"`
	Kind    ErrorKind      `json:"kind"`
	Context map[string]any `json:"context,omitempty"`
}

// Error renders the failure as "<kind> at <dot.path>: <context>". The root
// path renders as ".".
func (e *FieldError) Error() string {
	path := strings.Join(e.Path, ".")
	if path == "" {
		path = "."
	}
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s at %s", e.Kind, path)
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, e.Context[k])
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, path, strings.Join(parts, " "))
}

// FieldErrors is the full set of failures from one validation pass. Sibling
// errors are all collected; validation never stops at the first problem.
type FieldErrors []*FieldError

// Error joins the individual failures with "; ".
func (es FieldErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func errAt(path []string, kind ErrorKind, ctx map[string]any) *FieldError {
	return &FieldError{Path: append([]string(nil), path...), Kind: kind, Context: ctx}
}
