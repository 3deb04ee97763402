// Package router implements the Supervisor/Router: a pure function from
// workflow state to the next agent to run, or a signal that the workflow is
// done. It never mutates state itself except for the two terminal
// derivations (completed/failed on all-terminal, blocked on deadlock) that
// the decision rule requires it to make as it observes them.
package router

import (
	"fmt"

	"github.com/nexhelm/workflow-engine/workflow"
)

// Decision is the router's verdict for one routing step.
type Decision struct {
	// Done reports whether the workflow has reached a terminal state; when
	// true, Next is meaningless and the Executor must stop looping.
	Done bool
	// Next is the agent that should take the next step, valid only when
	// !Done.
	Next workflow.AgentID
	// Task is the ready task Next was chosen for, valid only when !Done.
	Task *workflow.Task
}

// InvariantViolationError reports that the ready set was empty while a task
// was in progress, which §3 invariant 3 (at most one task in_progress at a
// time, and only ever reachable through a ready task) should make
// unreachable. Seeing this means the state was mutated outside the Store's
// invariant-enforcing methods.
type InvariantViolationError struct {
	WorkflowID string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("router: workflow %s has no ready task but a task is in_progress", e.WorkflowID)
}

// Route implements the six-step decision rule over a read-only snapshot of
// state. It never mutates the state it's given; callers that need the
// terminal derivations applied must do so through a workflow.Store (see
// Store.Mutate paired with Route, as the Executor does).
func Route(state *workflow.State) (Decision, error) {
	switch state.Status {
	case workflow.StatusCompleted, workflow.StatusFailed, workflow.StatusBlocked:
		return Decision{Done: true}, nil
	}

	if state.AllTasksTerminal() {
		return Decision{Done: true}, nil
	}

	ready := readySet(state)

	inProgress := false
	for _, t := range state.Tasks {
		if t.Status == workflow.TaskInProgress {
			inProgress = true
			break
		}
	}

	if len(ready) == 0 && inProgress {
		return Decision{}, &InvariantViolationError{WorkflowID: state.WorkflowID}
	}

	if len(ready) == 0 && !inProgress {
		hasPending := false
		for _, t := range state.Tasks {
			if t.Status == workflow.TaskPending {
				hasPending = true
				break
			}
		}
		if hasPending {
			return Decision{Done: true}, errDeadlock
		}
		// No ready, no in-progress, no pending: everything terminal but
		// AllTasksTerminal() above should already have caught this.
		return Decision{Done: true}, nil
	}

	chosen := ready[0]
	for _, t := range ready[1:] {
		if t.Priority.Rank() > chosen.Priority.Rank() {
			chosen = t
			continue
		}
		if t.Priority.Rank() == chosen.Priority.Rank() && t.ID < chosen.ID {
			chosen = t
		}
	}
	return Decision{Next: chosen.Owner, Task: chosen}, nil
}

// errDeadlock is a sentinel signaling step 5 of the decision rule: the
// caller (the Executor, via Store) must add a blocker and set state.status
// = blocked, then treat the workflow as done.
var errDeadlock = &deadlockError{}

type deadlockError struct{}

func (*deadlockError) Error() string { return "router: dependency deadlock" }

// IsDeadlock reports whether err is the dependency-deadlock sentinel Route
// returns alongside Decision{Done: true}.
func IsDeadlock(err error) bool {
	_, ok := err.(*deadlockError)
	return ok
}

func readySet(state *workflow.State) []*workflow.Task {
	var ready []*workflow.Task
	for _, t := range state.Tasks {
		if t.Status == workflow.TaskPending && state.DependenciesCompleted(t) {
			ready = append(ready, t)
		}
	}
	return ready
}
