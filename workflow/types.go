// Package workflow defines the shared mutable document that drives a single
// workflow execution: the originating request, the task graph, the
// append-only message/decision/blocker logs, and the Store that owns
// mutation under the owning executor goroutine's exclusive control.
package workflow

import "time"

// AgentID identifies the role-specialized agent that owns a task or produced
// a message/decision. It is a plain string type (not an interface) so the
// workflow package never depends on the agent package, keeping the data model
// importable from tests, the validator, and the router without a cycle.
type AgentID string

const (
	// OrchestratorAgent plans the task graph once per workflow.
	OrchestratorAgent AgentID = "orchestrator_agent"
	// OperationsAgent owns backend-facing tasks.
	OperationsAgent AgentID = "operations_agent"
	// AdvisorAgent owns client-facing tasks.
	AdvisorAgent AgentID = "advisor_agent"
)

// Status is the coarse-grained lifecycle state of a workflow.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// TaskStatus is the lifecycle state of a single Task. Allowed transitions are
// enforced by Store.MarkTask: pending → in_progress → {completed, failed}, or
// pending → skipped.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskSkipped    TaskStatus = "skipped"
)

// Priority ranks ready tasks when the router must break a tie between
// multiple dependency-satisfied tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// priorityRank orders priorities from highest to lowest for the Router's
// tie-break rule. Higher rank wins.
var priorityRank = map[Priority]int{
	PriorityHigh:   2,
	PriorityNormal: 1,
	PriorityLow:    0,
}

// Rank returns a numeric ordering for priority comparisons, highest first.
// Unknown priorities rank below PriorityLow.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return -1
}

// Request is the immutable business request that started the workflow. Once
// a Store is created from a Request, nothing mutates it.
type Request struct {
	RequestType string
	ClientID    string
	ClientName  string
	Initiator   string
	CreatedAt   time.Time
}

// Task is a unit of work owned by a single agent, gated by dependencies on
// other tasks.
type Task struct {
	ID           string
	Description  string
	Owner        AgentID
	Status       TaskStatus
	Dependencies []string
	Priority     Priority
	Result       string
}

// Message is a purely observational inter-agent note; it never gates
// execution.
type Message struct {
	From      AgentID
	To        AgentID
	Timestamp time.Time
	Content   string
	Type      string
}

// Decision is the audit record each agent turn produces.
type Decision struct {
	Agent     AgentID
	Timestamp time.Time
	Decision  string
	Reasoning string
}

// Blocker is a recorded impediment that forces the workflow into
// StatusBlocked until resolved.
type Blocker struct {
	Description string
	CreatedBy   AgentID
	CreatedAt   time.Time
	Resolved    bool
}

// State is the single shared document for one workflow. It is never mutated
// directly by agents or the router; all mutation flows through a Store so
// the lifecycle invariants stay enforced in one place.
type State struct {
	WorkflowID  string
	RequestID   string
	Request     Request
	Status      Status
	Context     map[string]any
	Tasks       []*Task
	Messages    []Message
	Decisions   []Decision
	Blockers    []Blocker
	NextActions []string
	Outcome     map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasUnresolvedBlocker reports whether any blocker is still unresolved.
func (s *State) HasUnresolvedBlocker() bool {
	for _, b := range s.Blockers {
		if !b.Resolved {
			return true
		}
	}
	return false
}

// AllTasksTerminal reports whether every task has reached a terminal status
// (completed, failed, or skipped).
func (s *State) AllTasksTerminal() bool {
	for _, t := range s.Tasks {
		if t.Status != TaskCompleted && t.Status != TaskFailed && t.Status != TaskSkipped {
			return false
		}
	}
	return true
}

// TaskByID returns the task with the given id, or nil if absent.
func (s *State) TaskByID(id string) *Task {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// DependenciesCompleted reports whether every dependency of t is completed.
func (s *State) DependenciesCompleted(t *Task) bool {
	for _, dep := range t.Dependencies {
		d := s.TaskByID(dep)
		if d == nil || d.Status != TaskCompleted {
			return false
		}
	}
	return true
}
