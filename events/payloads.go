package events

import "github.com/nexhelm/workflow-engine/workflow"

// WorkflowStartPayload is the payload of a TypeWorkflowStart event.
type WorkflowStartPayload struct {
	Request workflow.Request `json:"request"`
}

// TaskUpdatePayload is the payload of a TypeTaskUpdate event.
type TaskUpdatePayload struct {
	TaskID       string   `json:"task_id"`
	Status       string   `json:"status"`
	Owner        string   `json:"owner"`
	Description  string   `json:"description"`
	Result       string   `json:"result,omitempty"`
	Dependencies []string `json:"dependencies"`
}

// ToolResultSummary is the compact {kind, payload?} shape of a tool result
// carried on a TypeToolExecution event.
type ToolResultSummary struct {
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ToolExecutionPayload is the payload of a TypeToolExecution event.
type ToolExecutionPayload struct {
	Agent  string            `json:"agent"`
	Tool   string            `json:"tool"`
	Params map[string]any    `json:"params"`
	Result ToolResultSummary `json:"result"`
}

// LLMCallPayload is the payload of a TypeLLMCall event, published once with
// Phase "begin" and once with Phase "end" per adapter call.
type LLMCallPayload struct {
	Agent     string `json:"agent"`
	Phase     string `json:"phase"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Cached    bool   `json:"cached"`
}

// WorkflowCompletePayload is the payload of the terminal TypeWorkflowComplete
// event.
type WorkflowCompletePayload struct {
	Status         string         `json:"status"`
	Outcome        map[string]any `json:"outcome"`
	TasksCompleted int            `json:"tasks_completed"`
	TotalTasks     int            `json:"total_tasks"`
	Blockers       []string       `json:"blockers"`
}

// ErrorPayload is the payload of a TypeError event.
type ErrorPayload struct {
	Agent       string `json:"agent,omitempty"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// AgentMessagePayload is the payload of a TypeAgentMessage event.
type AgentMessagePayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// RoutingPayload is the payload of a TypeRouting event.
type RoutingPayload struct {
	Next string `json:"next,omitempty"`
	Done bool   `json:"done"`
}

// SuccessPayload is the payload of a TypeSuccess event, published whenever a
// task completes with a durable identifier worth surfacing (e.g. a new
// account number) — the CSVAuditSink keys off AccountNumber being non-empty.
type SuccessPayload struct {
	Agent         string `json:"agent"`
	ClientID      string `json:"client_id"`
	AccountType   string `json:"account_type,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	Summary       string `json:"summary"`
}

// NotificationPayload is the payload of a TypeNotification event.
type NotificationPayload struct {
	ClientID string `json:"client_id"`
	Type     string `json:"type"`
	Content  string `json:"content"`
}

// LogPayload is the payload of a TypeLog event. Log events are the only
// kind a bounded subscriber channel is permitted to drop under pressure.
type LogPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// WarningPayload is the payload of a TypeLog event emitted when an agent
// receives more than one tool call from a single decision and discards all
// but the first.
type WarningPayload struct {
	Agent   string `json:"agent"`
	Message string `json:"message"`
}
