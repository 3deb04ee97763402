package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexhelm/workflow-engine/workflow"
)

func plannedTasks() []*workflow.Task {
	return []*workflow.Task{
		{ID: "task_1", Description: "Verify client eligibility", Owner: workflow.OperationsAgent, Status: workflow.TaskPending, Priority: workflow.PriorityHigh},
		{ID: "task_2", Description: "Create IRA application form", Owner: workflow.AdvisorAgent, Status: workflow.TaskPending, Priority: workflow.PriorityNormal, Dependencies: []string{"task_1"}},
	}
}

func TestApplyInsertsMissingAccountCreationTask(t *testing.T) {
	v, err := NewDefault()
	require.NoError(t, err)

	out, err := v.Apply("open_roth_ira", plannedTasks())
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Equal(t, workflow.OperationsAgent, out[1].Owner, "injected task is owned by the rule's role")
	assert.Regexp(t, "(?i)(open|create).*account", out[1].Description)
	assert.Equal(t, []string{"task_1"}, out[1].Dependencies)
	assert.Equal(t, []string{"task_2"}, out[2].Dependencies, "task_2 depended on the old last operations task and must be rewired to the injected task")
}

func TestApplyIsANoOpWhenAlreadySatisfied(t *testing.T) {
	v, err := NewDefault()
	require.NoError(t, err)

	tasks := append(plannedTasks(), &workflow.Task{
		ID: "task_3", Description: "Open ROTH_IRA account for the client",
		Owner: workflow.OperationsAgent, Status: workflow.TaskPending, Dependencies: []string{"task_1"},
	})

	out, err := v.Apply("open_roth_ira", tasks)
	require.NoError(t, err)
	assert.Len(t, out, 3, "rule already satisfied; no task should be injected")
}

func TestApplyDoesNotApplyToUnrelatedRequestTypes(t *testing.T) {
	v, err := NewDefault()
	require.NoError(t, err)

	tasks := []*workflow.Task{
		{ID: "task_1", Description: "Answer a client question", Owner: workflow.AdvisorAgent, Status: workflow.TaskPending},
	}
	out, err := v.Apply("general_inquiry", tasks)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

// TestApplyIsIdempotent verifies Property 4: running Apply over its own
// output is a no-op, for any request type the default rule set targets.
func TestApplyIsIdempotent(t *testing.T) {
	v, err := NewDefault()
	require.NoError(t, err)

	requestTypes := []string{"open_roth_ira", "open_checking_account", "create_brokerage_account"}
	for _, rt := range requestTypes {
		first, err := v.Apply(rt, plannedTasks())
		require.NoError(t, err)
		second, err := v.Apply(rt, first)
		require.NoError(t, err)
		assert.Equal(t, first, second, "Apply(rt, first) must equal first for request type %q", rt)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	v, err := NewDefault()
	require.NoError(t, err)

	tasks := plannedTasks()
	originalLen := len(tasks)
	_, err = v.Apply("open_roth_ira", tasks)
	require.NoError(t, err)
	assert.Len(t, tasks, originalLen, "Apply must not mutate its input slice")
	assert.Equal(t, "task_2", tasks[1].ID, "Apply must not renumber the caller's own tasks")
}
