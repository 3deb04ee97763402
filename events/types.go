// Package events implements the real-time event bus: a typed publish/
// subscribe fabric that carries structured events from every component of a
// running workflow to zero or more ordered subscribers.
package events

import "time"

// Type identifies one of the closed set of event kinds the bus carries.
type Type string

const (
	TypeWorkflowStart    Type = "workflow_start"
	TypeAgentMessage     Type = "agent_message"
	TypeLLMCall          Type = "llm_call"
	TypeToolExecution    Type = "tool_execution"
	TypeRouting          Type = "routing"
	TypeTaskUpdate       Type = "task_update"
	TypeSuccess          Type = "success"
	TypeNotification     Type = "notification"
	TypeLog              Type = "log"
	TypeError            Type = "error"
	TypeWorkflowComplete Type = "workflow_complete"
)

// critical holds the event types that a bounded subscriber channel must
// never drop under back-pressure, even if that means blocking the
// publisher.
var critical = map[Type]bool{
	TypeWorkflowStart:    true,
	TypeTaskUpdate:       true,
	TypeToolExecution:    true,
	TypeWorkflowComplete: true,
	TypeError:            true,
}

// Critical reports whether events of this type must never be dropped by a
// bounded subscriber channel.
func (t Type) Critical() bool { return critical[t] }

// Event is a single published occurrence within a workflow's lifetime.
// Concrete event types embed Base and add a typed Payload.
type Event interface {
	Type() Type
	WorkflowID() string
	Agent() string
	Timestamp() time.Time
	Payload() any
}

// Base implements the common Event fields; concrete event types embed it.
type Base struct {
	EventType  Type
	WorkflowId string
	AgentName  string
	At         time.Time
	Data       any
}

func (b Base) Type() Type         { return b.EventType }
func (b Base) WorkflowID() string { return b.WorkflowId }
func (b Base) Agent() string      { return b.AgentName }
func (b Base) Timestamp() time.Time {
	return b.At
}
func (b Base) Payload() any { return b.Data }

// New constructs a Base-backed Event for the given type, workflow, agent
// (empty for workflow-scoped events with no single owning agent), and
// payload, stamping the current time via clock.
func New(typ Type, workflowID, agent string, payload any, now time.Time) Event {
	return Base{EventType: typ, WorkflowId: workflowID, AgentName: agent, At: now, Data: payload}
}
