// Package tools implements the Tool Registry: the boundary that resolves a
// tool name and parameters to a typed Result, and is the one place an
// internal backend error gets re-tagged as a structured Fail rather than
// hidden inside an Ok payload.
package tools

import "github.com/nexhelm/workflow-engine/toolerrors"

// Result is the tagged union every tool invocation returns: either Ok with a
// payload, or Fail with a structured error. Exactly one of the two is ever
// populated; callers branch on IsOk.
type Result struct {
	ok      bool
	payload map[string]any
	err     *toolerrors.ToolError
}

// Ok constructs a successful Result. The payload always carries
// "success: true" alongside its tool-specific fields, matching the Registry
// contract.
func Ok(payload map[string]any) Result {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["success"] = true
	return Result{ok: true, payload: payload}
}

// Fail constructs a failed Result from a structured tool error. This is the
// only way to produce a non-ok Result — there is no path that lets a caller
// stuff an error into an Ok payload.
func Fail(err *toolerrors.ToolError) Result {
	return Result{ok: false, err: err}
}

// Failf is a convenience wrapper around Fail and toolerrors.Errorf.
func Failf(kind toolerrors.Kind, format string, args ...any) Result {
	return Fail(toolerrors.Errorf(kind, format, args...))
}

// IsOk reports whether the invocation succeeded.
func (r Result) IsOk() bool { return r.ok }

// Payload returns the success payload, or nil for a Fail result.
func (r Result) Payload() map[string]any { return r.payload }

// Err returns the structured failure, or nil for an Ok result.
func (r Result) Err() *toolerrors.ToolError { return r.err }

// Kind returns the failure kind, or "" for an Ok result.
func (r Result) Kind() toolerrors.Kind {
	if r.err == nil {
		return ""
	}
	return r.err.Kind
}

// BoolField reads a boolean field out of an Ok payload, defaulting to true
// when the field is absent. It is how agents detect a "semantic falsity
// flag" (eligible: false, valid: false) that must be treated as a failure
// even though the Result itself is Ok.
func (r Result) BoolField(name string) bool {
	if !r.ok {
		return false
	}
	v, present := r.payload[name]
	if !present {
		return true
	}
	b, _ := v.(bool)
	return b
}

// semanticFalsityFields are the Ok-payload keys the error-propagation rule
// treats as failures in disguise.
var semanticFalsityFields = []string{"eligible", "valid"}

// SemanticFalse reports whether an Ok result nonetheless carries a
// semantic-falsity flag (eligible: false, valid: false) that the
// error-propagation rule must treat as a failure.
func (r Result) SemanticFalse() bool {
	if !r.ok {
		return false
	}
	for _, name := range semanticFalsityFields {
		if v, present := r.payload[name]; present {
			if b, ok := v.(bool); ok && !b {
				return true
			}
		}
	}
	return false
}
