package workflow

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock is an injectable monotonic time source. Production code uses
// SystemClock; tests inject a fixed or stepped clock so fixtures stay
// deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// Store is the workflow state store: the only component permitted to mutate
// a State. It is owned exclusively by one executor goroutine; the mutex
// below exists to make Snapshot safe to call from an observing goroutine
// (tests, metrics) without racing the owning goroutine, not to allow
// concurrent writers.
type Store struct {
	mu     sync.RWMutex
	state  *State
	clock  Clock
	nextID int

	// pendingOutcome holds a success result an agent has recorded (e.g. a
	// new account number) before the workflow as a whole has reached a
	// terminal state. It is promoted to state.Outcome only once
	// recomputeStatusLocked observes every task terminal with no unresolved
	// blockers, so invariant 7 (outcome non-empty only when status is
	// completed) never observes a premature outcome.
	pendingOutcome map[string]any
}

// NewStore creates a fresh workflow State for req.
func NewStore(req Request, clock Clock) *Store {
	if clock == nil {
		clock = SystemClock{}
	}
	now := clock.Now()
	id := uuid.NewString()
	return &Store{
		clock: clock,
		state: &State{
			WorkflowID: id,
			RequestID:  id,
			Request:    req,
			Status:     StatusPending,
			Context:    map[string]any{},
			Outcome:    map[string]any{},
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
}

// Snapshot returns a deep copy of the current state for observability.
func (s *Store) Snapshot() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// View runs fn with read access to the live state. fn must not retain
// references to mutable fields (slices/maps) beyond the call; use Snapshot
// for that.
func (s *Store) View(fn func(*State)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
}

// Mutate runs fn with write access to the live state and recomputes derived
// status afterward.
func (s *Store) Mutate(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
	s.state.UpdatedAt = s.clock.Now()
	s.recomputeStatusLocked()
}

// SetContext merges kv into the workflow's context map (enriched by tools,
// e.g. a fetched client profile).
func (s *Store) SetContext(key string, value any) {
	s.Mutate(func(st *State) { st.Context[key] = value })
}

// NextTaskID returns the next stable, sequential task id ("task_1".."task_N")
// for use by the Orchestrator/Validator when authoring tasks.
func (s *Store) NextTaskID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return fmt.Sprintf("task_%d", s.nextID)
}

// SetTasks installs the initial task graph produced by planning. It fails
// closed if ids are not unique or the dependency graph contains a cycle.
func (s *Store) SetTasks(tasks []*Task) error {
	if err := validateGraph(tasks); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Tasks = tasks
	s.state.UpdatedAt = s.clock.Now()
	s.recomputeStatusLocked()
	return nil
}

// ReplaceTasks atomically swaps the task list, used by the task validator
// when it inserts a synthetic task and renumbers/rewires dependencies. It
// re-validates the graph before installing it.
func (s *Store) ReplaceTasks(tasks []*Task) error {
	return s.SetTasks(tasks)
}

// MarkTask transitions task id to status, recording result. It enforces
// that only one task is in_progress at a time, and only the allowed
// transitions.
func (s *Store) MarkTask(id string, status TaskStatus, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.state.TaskByID(id)
	if t == nil {
		return fmt.Errorf("workflow: unknown task %q", id)
	}
	if !allowedTransition(t.Status, status) {
		return fmt.Errorf("workflow: invalid task transition %s -> %s for %q", t.Status, status, id)
	}
	if status == TaskInProgress {
		for _, other := range s.state.Tasks {
			if other.ID != id && other.Status == TaskInProgress {
				return fmt.Errorf("workflow: task %q already in_progress", other.ID)
			}
		}
	}
	t.Status = status
	if result != "" {
		t.Result = result
	}
	s.state.UpdatedAt = s.clock.Now()
	s.recomputeStatusLocked()
	return nil
}

func allowedTransition(from, to TaskStatus) bool {
	if from == to {
		return false
	}
	switch from {
	case TaskPending:
		return to == TaskInProgress || to == TaskSkipped
	case TaskInProgress:
		return to == TaskCompleted || to == TaskFailed
	default:
		return false
	}
}

// AddBlocker appends a Blocker created by the given agent. The workflow
// transitions to StatusBlocked on the next status recomputation.
func (s *Store) AddBlocker(description string, by AgentID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Blockers = append(s.state.Blockers, Blocker{
		Description: description,
		CreatedBy:   by,
		CreatedAt:   s.clock.Now(),
	})
	s.state.UpdatedAt = s.clock.Now()
	s.recomputeStatusLocked()
}

// ResolveBlocker marks the blocker at index i resolved.
func (s *Store) ResolveBlocker(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.state.Blockers) {
		return
	}
	s.state.Blockers[i].Resolved = true
	s.recomputeStatusLocked()
}

// AppendMessage records a purely observational inter-agent message.
func (s *Store) AppendMessage(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.Timestamp = s.clock.Now()
	s.state.Messages = append(s.state.Messages, msg)
}

// AppendDecision records an audit entry for one agent turn.
func (s *Store) AppendDecision(d Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.Timestamp = s.clock.Now()
	s.state.Decisions = append(s.state.Decisions, d)
}

// SetNextActions records a short-lived router hint.
func (s *Store) SetNextActions(actions []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.NextActions = actions
}

// SetOutcome records the structured success result (e.g. a new account
// number) an agent observed this turn. It does not itself make
// state.Outcome non-empty: the value is held as a pending outcome and only
// promoted once every task is terminal and no blocker is unresolved, so
// invariant 7 (outcome non-empty only when status=completed) holds even
// though the side effect that produced the outcome may complete several
// turns before the workflow as a whole does.
func (s *Store) SetOutcome(outcome map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingOutcome = outcome
	s.state.UpdatedAt = s.clock.Now()
	s.recomputeStatusLocked()
}

// SetFailed forces the workflow into StatusFailed (used by the executor on
// step-budget exhaustion or an internal error).
func (s *Store) SetFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Status = StatusFailed
	s.state.UpdatedAt = s.clock.Now()
}

// recomputeStatusLocked derives Status from the current blockers and task
// set. Caller must hold s.mu.
func (s *Store) recomputeStatusLocked() {
	st := s.state
	if st.Status == StatusFailed {
		return // terminal; never resurrected
	}
	if st.HasUnresolvedBlocker() {
		st.Status = StatusBlocked
		if len(st.Outcome) > 0 {
			st.Outcome = map[string]any{}
		}
		return
	}
	if len(st.Tasks) > 0 && st.AllTasksTerminal() {
		allCompletedOrSkipped := true
		for _, t := range st.Tasks {
			if t.Status == TaskFailed {
				allCompletedOrSkipped = false
			}
		}
		if allCompletedOrSkipped {
			if len(s.pendingOutcome) > 0 {
				st.Outcome = s.pendingOutcome
			}
			st.Status = StatusCompleted
			return
		}
		st.Status = StatusFailed
		return
	}
	if st.Status != StatusPending {
		st.Status = StatusInProgress
	}
}

// validateGraph enforces unique task ids and an acyclic dependency graph.
func validateGraph(tasks []*Task) error {
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("workflow: duplicate task id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(tasks))
	byID := make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case gray:
			return fmt.Errorf("workflow: dependency cycle detected at task %q", id)
		case black:
			return nil
		}
		color[id] = gray
		for _, dep := range byID[id].Dependencies {
			if _, ok := byID[dep]; !ok {
				return fmt.Errorf("workflow: task %q depends on unknown task %q", id, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}
	for _, t := range tasks {
		if err := visit(t.ID); err != nil {
			return err
		}
	}
	return nil
}
