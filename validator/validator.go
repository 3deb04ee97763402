// Package validator implements the Task Validator: a small, data-driven rule
// engine that runs once, immediately after the Orchestrator produces the
// initial task plan, and before the Router sees the workflow at all. It
// never rejects a plan — it repairs it, inserting whatever synthetic tasks
// its rules require and rewiring dependencies so the graph stays acyclic.
package validator

import (
	"fmt"

	"github.com/nexhelm/workflow-engine/workflow"
)

// Validator applies a fixed set of Rules to a task list.
type Validator struct {
	rules []*Rule
}

// New constructs a Validator from rules, compiling each rule's condition and
// description pattern up front so Apply never fails on malformed data baked
// in at construction time.
func New(rules []*Rule) (*Validator, error) {
	for _, r := range rules {
		if err := r.compile(); err != nil {
			return nil, err
		}
	}
	return &Validator{rules: rules}, nil
}

// NewDefault constructs a Validator over DefaultRules.
func NewDefault() (*Validator, error) {
	return New(DefaultRules())
}

// Apply returns a new task list with every unsatisfied rule's requirement
// repaired: a synthetic task inserted immediately after the last task owned
// by the rule's Role, ids renumbered sequentially, and dependencies that
// pointed at the prior last-Role task rewired to point at the inserted task
// instead. Apply is pure — it never mutates tasks — and idempotent: running
// it again over its own output is a no-op because every rule's requirement
// is already satisfied.
func (v *Validator) Apply(requestType string, tasks []*workflow.Task) ([]*workflow.Task, error) {
	out := cloneTasks(tasks)
	for _, r := range v.rules {
		applies, err := r.appliesTo(requestType)
		if err != nil {
			return nil, err
		}
		if !applies || r.satisfiedBy(out) {
			continue
		}
		out = r.inject(out, requestType)
	}
	return out, nil
}

func cloneTasks(tasks []*workflow.Task) []*workflow.Task {
	out := make([]*workflow.Task, len(tasks))
	for i, t := range tasks {
		cp := *t
		cp.Dependencies = append([]string(nil), t.Dependencies...)
		out[i] = &cp
	}
	return out
}

// inject inserts a synthetic task satisfying r immediately after the last
// task owned by r.Role (or at the front if r.Role owns nothing yet), then
// renumbers every task's id sequentially and rewrites dependencies: any
// dependency on the previous last-Role task is redirected to the newly
// inserted task, and every other dependency is remapped to its owner's new
// id. The rewrite happens before renumbering so old-id comparisons are
// unambiguous.
func (r *Rule) inject(tasks []*workflow.Task, requestType string) []*workflow.Task {
	lastIdx := -1
	for i, t := range tasks {
		if t.Owner == r.Role {
			lastIdx = i
		}
	}
	insertAt := lastIdx + 1

	var oldLastID string
	if lastIdx >= 0 {
		oldLastID = tasks[lastIdx].ID
	}

	newTask := &workflow.Task{
		Description: fmt.Sprintf(r.InsertTemplate, deriveAccountType(requestType)),
		Owner:       r.Role,
		Status:      workflow.TaskPending,
		Priority:    workflow.PriorityNormal,
	}
	if oldLastID != "" {
		newTask.Dependencies = []string{oldLastID}
	}

	out := make([]*workflow.Task, 0, len(tasks)+1)
	out = append(out, tasks[:insertAt]...)
	out = append(out, newTask)
	out = append(out, tasks[insertAt:]...)

	// idMap keys on each task's pre-renumbering id; the injected task has no
	// id yet, so it is keyed on the empty string, which no real task ever
	// holds.
	idMap := make(map[string]string, len(out))
	for i, t := range out {
		idMap[t.ID] = fmt.Sprintf("task_%d", i+1)
	}
	newTaskID := idMap[""]

	for _, t := range out {
		newDeps := make([]string, 0, len(t.Dependencies))
		for _, dep := range t.Dependencies {
			if t != newTask && oldLastID != "" && dep == oldLastID {
				newDeps = append(newDeps, newTaskID)
				continue
			}
			if mapped, ok := idMap[dep]; ok {
				newDeps = append(newDeps, mapped)
				continue
			}
			newDeps = append(newDeps, dep)
		}
		t.Dependencies = newDeps
	}

	for i, t := range out {
		t.ID = fmt.Sprintf("task_%d", i+1)
	}
	return out
}
