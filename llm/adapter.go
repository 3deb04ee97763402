// Package llm implements the LLM Adapter: the narrow boundary through which
// agents consult a language model for a structured decision, with a
// timeout, a conservative fallback path, rate limiting, circuit breaking,
// and an optional response cache layered around the real call.
package llm

import (
	"context"
	"time"

	"github.com/nexhelm/workflow-engine/workflow"
)

// DefaultTimeout is the default deadline for a single inference call.
const DefaultTimeout = 30 * time.Second

// Decision is the structured output an agent receives from one LLM turn.
type Decision struct {
	Tool            string         `json:"tool,omitempty"`
	Params          map[string]any `json:"params,omitempty"`
	TaskStatus      workflow.TaskStatus `json:"task_status"`
	MessageToClient string         `json:"message_to_client,omitempty"`
	Reasoning       string         `json:"reasoning"`

	// Fallback is true when this Decision was synthesized by the adapter
	// itself after a timeout, parse failure, or open circuit breaker,
	// rather than returned by the model. Agents must treat a fallback
	// decision as a blocker, not as "nothing to do yet".
	Fallback bool `json:"-"`

	// MultipleToolCalls is true when the model's turn contained more than
	// one tool-call block; the adapter always acts on the first and the
	// agent must emit a warning event rather than invoke the rest.
	MultipleToolCalls bool `json:"-"`
}

// FallbackDecision is the conservative decision returned whenever inference
// cannot complete: no tool, task left pending, reasoning explaining why.
func FallbackDecision(reason string) Decision {
	return Decision{
		TaskStatus: workflow.TaskPending,
		Reasoning:  reason,
		Fallback:   true,
	}
}

// Adapter is the interface agents consult for a decision. role identifies
// the calling agent, prompt is the role-specific instruction text, and
// stateDigest is a compact rendering of the current workflow state. The
// returned bool reports whether the decision was served from cache.
type Adapter interface {
	Infer(ctx context.Context, role workflow.AgentID, prompt, stateDigest string) (Decision, bool, error)
}
