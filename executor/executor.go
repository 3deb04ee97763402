// Package executor implements the Executor Loop (§4.7): it creates a
// WorkflowState, plans it via the Orchestrator, repairs it via the Task
// Validator, then drives [Router → selected Agent → Router] until the
// workflow reaches a terminal state, a step budget is exhausted, or an
// external cancellation arrives. Every step publishes to the Event Bus.
package executor

import (
	"context"
	"fmt"

	"github.com/nexhelm/workflow-engine/agent"
	"github.com/nexhelm/workflow-engine/events"
	"github.com/nexhelm/workflow-engine/router"
	"github.com/nexhelm/workflow-engine/telemetry"
	"github.com/nexhelm/workflow-engine/validator"
	"github.com/nexhelm/workflow-engine/workflow"
)

// DefaultMaxSteps is the default MAX_STEPS bound from §4.7/§9: agent
// invocations, counting planning as one, for workflows of up to six tasks.
const DefaultMaxSteps = 50

// Executor drives one workflow at a time to a terminal state. A process
// typically constructs one Executor and calls Run concurrently for each
// incoming request; each call owns its own Store exclusively for the
// duration of the run (§5).
type Executor struct {
	Orchestrator *agent.Orchestrator
	Validator    *validator.Validator
	Agents       map[workflow.AgentID]agent.Agent
	Bus          events.Bus
	Clock        workflow.Clock
	Logger       telemetry.Logger
	Metrics      telemetry.Metrics
	Tracer       telemetry.Tracer
	MaxSteps     int
}

// Result is what Run returns once a workflow reaches a terminal state (or
// is force-failed by budget exhaustion or cancellation).
type Result struct {
	WorkflowID string
	Status     workflow.Status
	Outcome    map[string]any
	Snapshot   *workflow.State
}

// Run creates a Store for req, plans and validates it, then loops the
// Router/Agent cycle until done, budget-exhausted, or ctx is cancelled. It
// always publishes workflow_start first and workflow_complete last,
// regardless of how the loop ends.
func (e *Executor) Run(ctx context.Context, req workflow.Request) (Result, error) {
	clock := e.clock()
	store := workflow.NewStore(req, clock)

	tracer := e.tracer()
	ctx, span := tracer.Start(ctx, "workflow.run")
	defer span.End()

	snapshot := store.Snapshot()
	e.publish(ctx, events.New(events.TypeWorkflowStart, snapshot.WorkflowID, "", events.WorkflowStartPayload{
		Request: req,
	}, clock.Now()))

	if err := e.plan(ctx, store); err != nil {
		store.AddBlocker("planning failed: "+err.Error(), workflow.OrchestratorAgent)
		store.SetFailed()
		return e.finish(ctx, store)
	}

	steps := 1 // planning counts as one step (§4.7)
	maxSteps := e.maxSteps()

	for {
		select {
		case <-ctx.Done():
			store.AddBlocker("cancelled", "")
			store.SetFailed()
			return e.finish(ctx, store)
		default:
		}

		snapshot := store.Snapshot()
		decision, err := router.Route(snapshot)
		e.publishRouting(ctx, snapshot.WorkflowID, decision)
		if err != nil {
			if router.IsDeadlock(err) {
				store.AddBlocker("dependency deadlock: no ready task and none in progress", "")
				break
			}
			e.publishError(ctx, snapshot.WorkflowID, "", err.Error(), false)
			store.SetFailed()
			break
		}
		if decision.Done {
			break
		}

		if steps >= maxSteps {
			store.AddBlocker(fmt.Sprintf("step budget exhausted (%d steps)", maxSteps), "")
			store.SetFailed()
			break
		}

		a, ok := e.Agents[decision.Next]
		if !ok {
			e.publishError(ctx, snapshot.WorkflowID, string(decision.Next), fmt.Sprintf("no agent registered for %q", decision.Next), false)
			store.SetFailed()
			break
		}

		if err := a.Step(ctx, store, decision.Task); err != nil {
			e.publishError(ctx, snapshot.WorkflowID, string(decision.Next), err.Error(), false)
			store.SetFailed()
			break
		}
		steps++
	}

	return e.finish(ctx, store)
}

func (e *Executor) plan(ctx context.Context, store *workflow.Store) error {
	if err := e.Orchestrator.Plan(ctx, store); err != nil {
		return err
	}
	snapshot := store.Snapshot()
	repaired, err := e.Validator.Apply(snapshot.Request.RequestType, snapshot.Tasks)
	if err != nil {
		return fmt.Errorf("validator: %w", err)
	}
	return store.ReplaceTasks(repaired)
}

func (e *Executor) finish(ctx context.Context, store *workflow.Store) (Result, error) {
	snapshot := store.Snapshot()
	completed := 0
	for _, t := range snapshot.Tasks {
		if t.Status == workflow.TaskCompleted {
			completed++
		}
	}
	var blockers []string
	for _, b := range snapshot.Blockers {
		if !b.Resolved {
			blockers = append(blockers, b.Description)
		}
	}
	e.publish(ctx, events.New(events.TypeWorkflowComplete, snapshot.WorkflowID, "", events.WorkflowCompletePayload{
		Status:         string(snapshot.Status),
		Outcome:        snapshot.Outcome,
		TasksCompleted: completed,
		TotalTasks:     len(snapshot.Tasks),
		Blockers:       blockers,
	}, e.clock().Now()))

	if m := e.metrics(); m != nil {
		m.IncCounter("workflow_terminations_total", 1, "status", string(snapshot.Status))
	}

	return Result{
		WorkflowID: snapshot.WorkflowID,
		Status:     snapshot.Status,
		Outcome:    snapshot.Outcome,
		Snapshot:   snapshot,
	}, nil
}

func (e *Executor) publishRouting(ctx context.Context, workflowID string, decision router.Decision) {
	if e.Bus == nil {
		return
	}
	_ = e.Bus.Publish(ctx, events.New(events.TypeRouting, workflowID, "", events.RoutingPayload{
		Next: string(decision.Next),
		Done: decision.Done,
	}, e.clock().Now()))
}

func (e *Executor) publishError(ctx context.Context, workflowID, agentName, message string, recoverable bool) {
	if e.Bus == nil {
		return
	}
	_ = e.Bus.Publish(ctx, events.New(events.TypeError, workflowID, agentName, events.ErrorPayload{
		Agent:       agentName,
		Message:     message,
		Recoverable: recoverable,
	}, e.clock().Now()))
}

func (e *Executor) publish(ctx context.Context, ev events.Event) {
	if e.Bus == nil {
		return
	}
	_ = e.Bus.Publish(ctx, ev)
}

func (e *Executor) clock() workflow.Clock {
	if e.Clock == nil {
		return workflow.SystemClock{}
	}
	return e.Clock
}

func (e *Executor) maxSteps() int {
	if e.MaxSteps <= 0 {
		return DefaultMaxSteps
	}
	return e.MaxSteps
}

func (e *Executor) tracer() telemetry.Tracer {
	if e.Tracer == nil {
		return telemetry.NewNoopTracer()
	}
	return e.Tracer
}

func (e *Executor) metrics() telemetry.Metrics {
	return e.Metrics
}
