package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/nexhelm/workflow-engine/agent"
	"github.com/nexhelm/workflow-engine/backend"
	"github.com/nexhelm/workflow-engine/events"
	"github.com/nexhelm/workflow-engine/llm"
	"github.com/nexhelm/workflow-engine/tools"
	"github.com/nexhelm/workflow-engine/validator"
	"github.com/nexhelm/workflow-engine/workflow"
)

func newExecutor(t *testing.T, fixturesPath string) (*Executor, *backend.Backends) {
	t.Helper()
	clock := workflow.SystemClock{}
	bus := events.NewBus()

	fixtures, err := backend.LoadFixtures(fixturesPath)
	require.NoError(t, err)
	backends := backend.NewBackends(fixtures, backend.NewNotificationSink(bus), clock.Now())

	registry, err := tools.NewRegistry(backends, bus, clock)
	require.NoError(t, err)

	v, err := validator.NewDefault()
	require.NoError(t, err)

	adapter := llm.FakeAdapter{}
	return &Executor{
		Orchestrator: &agent.Orchestrator{LLM: adapter, Bus: bus, Clock: clock},
		Validator:    v,
		Agents: map[workflow.AgentID]agent.Agent{
			workflow.OperationsAgent: agent.NewOperations(adapter, registry, bus, clock),
			workflow.AdvisorAgent:    agent.NewAdvisor(adapter, registry, bus, clock),
		},
		Bus:      bus,
		Clock:    clock,
		MaxSteps: DefaultMaxSteps,
	}, backends
}

// TestS1HappyPath exercises scenario S1: a new, eligible client opens a Roth
// IRA and the workflow completes with a populated outcome.
func TestS1HappyPath(t *testing.T) {
	exec, _ := newExecutor(t, "../fixtures/s1_happy_path.yaml")

	res, err := exec.Run(context.Background(), workflow.Request{
		RequestType: "open_roth_ira",
		ClientID:    "C1",
		ClientName:  "Alice Nguyen",
		Initiator:   "test",
		CreatedAt:   time.Now(),
	})

	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, res.Status)
	require.NotEmpty(t, res.Outcome)
	assert.Contains(t, res.Outcome["account_number"], "ROTH_IRA-")
	for _, task := range res.Snapshot.Tasks {
		assert.Equal(t, workflow.TaskCompleted, task.Status, "task %s should have completed", task.ID)
	}
}

// TestS2DuplicateAccountConflict exercises scenario S2: a client who already
// holds a Roth IRA is blocked rather than issued a second account.
func TestS2DuplicateAccountConflict(t *testing.T) {
	exec, _ := newExecutor(t, "../fixtures/s2_duplicate_account.yaml")

	res, err := exec.Run(context.Background(), workflow.Request{
		RequestType: "open_roth_ira",
		ClientID:    "C2",
		CreatedAt:   time.Now(),
	})

	require.NoError(t, err)
	assert.Equal(t, workflow.StatusBlocked, res.Status)
	assert.Empty(t, res.Outcome)
	assert.NotEmpty(t, res.Snapshot.Blockers)
}

// TestS3IneligibleClient exercises scenario S3: a client over the roth_ira
// income threshold is blocked at the eligibility task, before any document
// or account task runs.
func TestS3IneligibleClient(t *testing.T) {
	exec, _ := newExecutor(t, "../fixtures/s3_ineligible.yaml")

	res, err := exec.Run(context.Background(), workflow.Request{
		RequestType: "open_roth_ira",
		ClientID:    "C3",
		CreatedAt:   time.Now(),
	})

	require.NoError(t, err)
	assert.Equal(t, workflow.StatusBlocked, res.Status)
	assert.Empty(t, res.Outcome)
	require.NotEmpty(t, res.Snapshot.Blockers)
	assert.Contains(t, res.Snapshot.Blockers[0].Description, "income")
}

// TestS4InvalidDocuments exercises scenario S4: an eligible client whose tax
// return fails validation is blocked at the validate_document task.
func TestS4InvalidDocuments(t *testing.T) {
	exec, _ := newExecutor(t, "../fixtures/s4_invalid_documents.yaml")

	res, err := exec.Run(context.Background(), workflow.Request{
		RequestType: "open_roth_ira",
		ClientID:    "C4",
		CreatedAt:   time.Now(),
	})

	require.NoError(t, err)
	assert.Equal(t, workflow.StatusBlocked, res.Status)
	assert.Empty(t, res.Outcome)
}

// TestS5ValidatorInjectionRepairsPlan exercises scenario S5: a request_type
// with no dedicated planTemplates entry falls back to defaultPlanTemplate,
// which has no account-creation task, so the Task Validator must inject one
// before the Router ever sees the plan. The repaired workflow then behaves
// like S1 for the same eligible client and fixture shape.
func TestS5ValidatorInjectionRepairsPlan(t *testing.T) {
	exec, _ := newExecutor(t, "../fixtures/s5_validator_injection.yaml")

	res, err := exec.Run(context.Background(), workflow.Request{
		RequestType: "transfer_ira",
		ClientID:    "C1",
		CreatedAt:   time.Now(),
	})

	require.NoError(t, err)
	require.Len(t, res.Snapshot.Tasks, 2, "defaultPlanTemplate's single task plus the validator's injected account-creation task")
	assert.Contains(t, res.Snapshot.Tasks[1].Description, "TRANSFER_IRA")
	assert.Equal(t, workflow.StatusCompleted, res.Status)
	require.NotEmpty(t, res.Outcome)
	assert.Contains(t, res.Outcome["account_number"], "TRANSFER_IRA-")
	for _, task := range res.Snapshot.Tasks {
		assert.Equal(t, workflow.TaskCompleted, task.Status, "task %s should have completed", task.ID)
	}
}

// TestS6ConcurrentWorkflowsIssueDistinctAccounts exercises scenario S6: two
// independent clients opening a Roth IRA at the same time each complete with
// a distinct account number (Property 5: account-number uniqueness).
func TestS6ConcurrentWorkflowsIssueDistinctAccounts(t *testing.T) {
	exec, _ := newExecutor(t, "../fixtures/s6_concurrent.yaml")

	clients := []string{"C5", "C6"}
	results := make([]Result, len(clients))

	g, ctx := errgroup.WithContext(context.Background())
	for i, clientID := range clients {
		i, clientID := i, clientID
		g.Go(func() error {
			res, err := exec.Run(ctx, workflow.Request{
				RequestType: "open_roth_ira",
				ClientID:    clientID,
				CreatedAt:   time.Now(),
			})
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := map[string]bool{}
	for _, res := range results {
		assert.Equal(t, workflow.StatusCompleted, res.Status)
		account := res.Outcome["account_number"].(string)
		assert.False(t, seen[account], "account number %q must be unique across concurrent workflows", account)
		seen[account] = true
	}
}

// TestMaxStepsBudgetIsEnforced exercises Property 9: a request_type whose
// template has no matching ready path still halts within the configured
// step budget rather than looping unboundedly.
func TestMaxStepsBudgetIsEnforced(t *testing.T) {
	exec, _ := newExecutor(t, "../fixtures/s1_happy_path.yaml")
	exec.MaxSteps = 2

	res, err := exec.Run(context.Background(), workflow.Request{
		RequestType: "open_roth_ira",
		ClientID:    "C1",
		CreatedAt:   time.Now(),
	})

	require.NoError(t, err)
	assert.Equal(t, workflow.StatusFailed, res.Status)
	assert.NotEmpty(t, res.Snapshot.Blockers)
}
