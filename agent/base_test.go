package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexhelm/workflow-engine/backend"
	"github.com/nexhelm/workflow-engine/events"
	"github.com/nexhelm/workflow-engine/llm"
	"github.com/nexhelm/workflow-engine/tools"
	"github.com/nexhelm/workflow-engine/workflow"
)

// scriptedAdapter returns one Decision per call, in order, so tests can
// drive an agent's Step through a precise sequence without depending on
// prompt text.
type scriptedAdapter struct {
	decisions []llm.Decision
	i         int
}

func (s *scriptedAdapter) Infer(_ context.Context, _ workflow.AgentID, _, _ string) (llm.Decision, bool, error) {
	d := s.decisions[s.i]
	if s.i < len(s.decisions)-1 {
		s.i++
	}
	return d, false, nil
}

func newStoreWithOneTask(t *testing.T, owner workflow.AgentID) (*workflow.Store, *workflow.Task) {
	t.Helper()
	s := workflow.NewStore(workflow.Request{RequestType: "open_roth_ira", ClientID: "C1"}, workflow.SystemClock{})
	id := s.NextTaskID()
	task := &workflow.Task{ID: id, Description: "Verify client eligibility for a Roth IRA", Owner: owner, Status: workflow.TaskPending, Priority: workflow.PriorityHigh}
	require.NoError(t, s.SetTasks([]*workflow.Task{task}))
	return s, task
}

func newTestRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	backends := backend.NewBackends(&backend.Fixtures{
		Clients: []backend.ClientRecord{{ClientID: "C1", Name: "Alice Nguyen", Age: 35, Income: 120000}},
	}, nil, time.Now())
	registry, err := tools.NewRegistry(backends, nil, workflow.SystemClock{})
	require.NoError(t, err)
	return registry
}

type collectingSubscriber struct {
	events []events.Event
}

func (c *collectingSubscriber) HandleEvent(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return nil
}

func TestStepPublishesTaskUpdateOnEveryTransition(t *testing.T) {
	store, task := newStoreWithOneTask(t, workflow.OperationsAgent)
	bus := events.NewBus()
	collector := &collectingSubscriber{}
	_, err := bus.Register(collector)
	require.NoError(t, err)

	adapter := &scriptedAdapter{decisions: []llm.Decision{
		{Tool: "check_eligibility", Params: map[string]any{"client_id": "C1", "product_type": "roth_ira"}, TaskStatus: workflow.TaskCompleted, Reasoning: "checking"},
	}}
	base := &Base{
		AgentRole:       workflow.OperationsAgent,
		LLM:             adapter,
		Registry:        newTestRegistry(t),
		Bus:             bus,
		Clock:           workflow.SystemClock{},
		AuthorizedTools: operationsAuthorizedTools,
		Prompt:          operationsPrompt,
	}

	require.NoError(t, base.Step(context.Background(), store, task))

	var taskUpdates int
	for _, e := range collector.events {
		if e.Type() == events.TypeTaskUpdate {
			taskUpdates++
		}
	}
	assert.Equal(t, 2, taskUpdates, "one task_update for in_progress and one for completed")
	assert.Equal(t, workflow.TaskCompleted, store.Snapshot().TaskByID(task.ID).Status)
}

func TestStepRejectsUnauthorizedTool(t *testing.T) {
	store, task := newStoreWithOneTask(t, workflow.OperationsAgent)
	adapter := &scriptedAdapter{decisions: []llm.Decision{
		{Tool: "send_notification", Params: map[string]any{"client_id": "C1"}, TaskStatus: workflow.TaskCompleted, Reasoning: "notify"},
	}}
	base := &Base{
		AgentRole:       workflow.OperationsAgent,
		LLM:             adapter,
		Registry:        newTestRegistry(t),
		Clock:           workflow.SystemClock{},
		AuthorizedTools: operationsAuthorizedTools,
		Prompt:          operationsPrompt,
	}

	require.NoError(t, base.Step(context.Background(), store, task))

	final := store.Snapshot()
	assert.Equal(t, workflow.TaskFailed, final.TaskByID(task.ID).Status)
	require.NotEmpty(t, final.Blockers)
	assert.Contains(t, final.Blockers[0].Description, "not authorized")
}

func TestStepTreatsSemanticFalseAsFailure(t *testing.T) {
	store, task := newStoreWithOneTask(t, workflow.OperationsAgent)
	backends := backend.NewBackends(&backend.Fixtures{
		Clients: []backend.ClientRecord{{ClientID: "C1", Income: 500000}},
	}, nil, time.Now())
	registry, err := tools.NewRegistry(backends, nil, workflow.SystemClock{})
	require.NoError(t, err)

	adapter := &scriptedAdapter{decisions: []llm.Decision{
		{Tool: "check_eligibility", Params: map[string]any{"client_id": "C1", "product_type": "roth_ira"}, TaskStatus: workflow.TaskCompleted, Reasoning: "checking"},
	}}
	base := &Base{AgentRole: workflow.OperationsAgent, LLM: adapter, Registry: registry, Clock: workflow.SystemClock{}, AuthorizedTools: operationsAuthorizedTools, Prompt: operationsPrompt}

	require.NoError(t, base.Step(context.Background(), store, task))

	final := store.Snapshot()
	assert.Equal(t, workflow.TaskFailed, final.TaskByID(task.ID).Status, "eligible:false must fail the task even though the tool call was Ok")
	require.NotEmpty(t, final.Blockers)
	assert.Contains(t, final.Blockers[0].Description, "income")
}

func TestStepAppliesFallbackAsBlocker(t *testing.T) {
	store, task := newStoreWithOneTask(t, workflow.OperationsAgent)
	adapter := &scriptedAdapter{decisions: []llm.Decision{
		llm.FallbackDecision("llm call failed: timeout"),
	}}
	base := &Base{AgentRole: workflow.OperationsAgent, LLM: adapter, Registry: newTestRegistry(t), Clock: workflow.SystemClock{}, AuthorizedTools: operationsAuthorizedTools, Prompt: operationsPrompt}

	require.NoError(t, base.Step(context.Background(), store, task))

	final := store.Snapshot()
	assert.Equal(t, workflow.TaskFailed, final.TaskByID(task.ID).Status)
	require.NotEmpty(t, final.Blockers)
}

func TestVerifyAdvisorMessageDowngradesUnconfirmedOutcome(t *testing.T) {
	state := &workflow.State{Outcome: map[string]any{}}
	msg := verifyAdvisorMessage(state, "Your account has been created.")
	assert.Equal(t, "Your request is in progress; we'll confirm once it's finalized.", msg)

	state.Outcome = map[string]any{"account_number": "ROTH_IRA-1000"}
	msg = verifyAdvisorMessage(state, "Your account has been created.")
	assert.Equal(t, "Your account has been created.", msg)
}

func TestVerifyAdvisorMessagePassesThroughNonTerminalClaims(t *testing.T) {
	state := &workflow.State{Outcome: map[string]any{}}
	msg := verifyAdvisorMessage(state, "We're still reviewing your documents.")
	assert.Equal(t, "We're still reviewing your documents.", msg)
}
