package llm

import (
	"context"
	"regexp"
	"strings"

	"github.com/nexhelm/workflow-engine/workflow"
)

// clientIDPattern extracts the client_id the agent's stateDigest embeds, so
// FakeAdapter can synthesize tool params without a real model call.
var clientIDPattern = regexp.MustCompile(`client_id=(\S+)`)

var requestTypePattern = regexp.MustCompile(`request_type=(\S+)`)

// FakeAdapter is a deterministic, network-free Adapter used by the CLI demo
// (when no Anthropic API key is configured) and by tests that want
// realistic agent progress through a scenario without mocking the SDK.
// It inspects the prompt text for the keywords the task description
// templates always contain and returns the matching tool call.
type FakeAdapter struct{}

// Infer implements Adapter by pattern-matching the prompt against the
// keywords the built-in task templates and validator-injected descriptions
// always use.
func (FakeAdapter) Infer(_ context.Context, role workflow.AgentID, prompt, stateDigest string) (Decision, bool, error) {
	clientID := firstMatch(clientIDPattern, stateDigest)
	requestType := firstMatch(requestTypePattern, stateDigest)
	lower := strings.ToLower(prompt)

	switch {
	case strings.Contains(lower, "eligibility"):
		return Decision{
			Tool:       "check_eligibility",
			Params:     map[string]any{"client_id": clientID, "product_type": productType(requestType)},
			TaskStatus: workflow.TaskCompleted,
			Reasoning:  "checking client eligibility",
		}, false, nil
	case strings.Contains(lower, "application form") || strings.Contains(lower, "create") && strings.Contains(lower, "form"):
		return Decision{
			Tool:   "create_document",
			Params: map[string]any{"client_id": clientID, "doc_type": "ira_application", "data": map[string]any{}},
			TaskStatus: workflow.TaskCompleted,
			Reasoning:  "creating application document",
		}, false, nil
	case strings.Contains(lower, "validate"):
		return Decision{
			Tool:       "validate_document",
			Params:     map[string]any{"client_id": clientID, "doc_type": "tax_return"},
			TaskStatus: workflow.TaskCompleted,
			Reasoning:  "validating submitted documents",
		}, false, nil
	case strings.Contains(lower, "account") && (strings.Contains(lower, "open") || strings.Contains(lower, "create")):
		return Decision{
			Tool:       "open_account",
			Params:     map[string]any{"client_id": clientID, "account_type": accountType(requestType)},
			TaskStatus: workflow.TaskCompleted,
			Reasoning:  "opening account",
		}, false, nil
	case strings.Contains(lower, "notification") || strings.Contains(lower, "notify"):
		return Decision{
			Tool:            "send_notification",
			Params:          map[string]any{"client_id": clientID, "type": "status_update", "content": "Your request has been processed."},
			TaskStatus:      workflow.TaskCompleted,
			MessageToClient: "Your account has been created.",
			Reasoning:       "notifying client",
		}, false, nil
	default:
		return Decision{
			Tool:       "get_client_info",
			Params:     map[string]any{"client_id": clientID},
			TaskStatus: workflow.TaskCompleted,
			Reasoning:  "no recognized keyword in task description; gathering client info",
		}, false, nil
	}
}

func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func productType(requestType string) string {
	if requestType == "" {
		return "roth_ira"
	}
	return strings.TrimPrefix(requestType, "open_")
}

func accountType(requestType string) string {
	return strings.ToUpper(productType(requestType))
}
