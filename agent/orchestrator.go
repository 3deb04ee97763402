package agent

import (
	"context"
	"fmt"

	"github.com/nexhelm/workflow-engine/events"
	"github.com/nexhelm/workflow-engine/llm"
	"github.com/nexhelm/workflow-engine/workflow"
)

// taskTemplate is a planning-time description of one task, before ids are
// assigned. Dependencies reference other templates by index in the owning
// Plan's slice.
type taskTemplate struct {
	description string
	owner       workflow.AgentID
	priority    workflow.Priority
	dependsOn   []int
}

// planTemplates maps a request_type to its deterministic task template.
// Descriptions name the outcome ("verify eligibility"), never the tool
// (§4.4.1's "describe what, not how").
var planTemplates = map[string][]taskTemplate{
	"open_roth_ira": {
		{description: "Verify client eligibility for a Roth IRA", owner: workflow.OperationsAgent, priority: workflow.PriorityHigh},
		{description: "Create IRA application form for the client", owner: workflow.AdvisorAgent, priority: workflow.PriorityNormal, dependsOn: []int{0}},
		{description: "Validate submitted application and tax documents", owner: workflow.OperationsAgent, priority: workflow.PriorityNormal, dependsOn: []int{1}},
		{description: "Open Roth IRA account for the client", owner: workflow.OperationsAgent, priority: workflow.PriorityNormal, dependsOn: []int{2}},
		{description: "Send account confirmation notification to the client", owner: workflow.AdvisorAgent, priority: workflow.PriorityNormal, dependsOn: []int{3}},
	},
}

// defaultPlanTemplate is used for any request_type without a specific
// template: a single operations-owned task naming the generic outcome. The
// Task Validator still runs against it, so an IRA/account-family
// request_type that somehow reaches this fallback is still repaired.
var defaultPlanTemplate = []taskTemplate{
	{description: "Process request for the client", owner: workflow.OperationsAgent, priority: workflow.PriorityNormal},
}

// Orchestrator runs exactly once per workflow, before any other agent, to
// populate the task graph (§4.4.1). Unlike Operations/Advisor it does not
// embed Base: planning selects no existing task and applies no
// error-propagation rule.
//
// Per Open Question 3, planning is deterministic by default (a Go template
// keyed by request_type) rather than an LLM round trip, keeping S1-S6
// reproducible. The LLM Adapter is still consulted so the same
// timeout/fallback/caching machinery instruments planning calls, but its
// Decision is discarded in favor of the template; only its Reasoning (or the
// fallback's) is folded into the audit Decision this turn records.
type Orchestrator struct {
	LLM   llm.Adapter
	Bus   events.Bus
	Clock workflow.Clock
}

// Plan produces the initial task graph for store's request and installs it.
// It does not run the Task Validator; the Executor runs that separately,
// immediately afterward (§4.7).
func (o *Orchestrator) Plan(ctx context.Context, store *workflow.Store) error {
	snapshot := store.Snapshot()

	prompt := fmt.Sprintf("Plan the task graph for a %q request for client %s.", snapshot.Request.RequestType, snapshot.Request.ClientID)
	decision, _, err := o.LLM.Infer(ctx, workflow.OrchestratorAgent, prompt, stateDigest(snapshot))
	if err != nil {
		return fmt.Errorf("orchestrator: llm inference: %w", err)
	}

	templates, ok := planTemplates[snapshot.Request.RequestType]
	if !ok {
		templates = defaultPlanTemplate
	}

	tasks := make([]*workflow.Task, len(templates))
	for i, tmpl := range templates {
		id := store.NextTaskID()
		deps := make([]string, 0, len(tmpl.dependsOn))
		tasks[i] = &workflow.Task{
			ID:          id,
			Description: tmpl.description,
			Owner:       tmpl.owner,
			Status:      workflow.TaskPending,
			Priority:    tmpl.priority,
			Dependencies: deps,
		}
	}
	// Second pass: dependsOn indices reference sibling templates, whose ids
	// are only known after the first pass assigns them.
	for i, tmpl := range templates {
		for _, depIdx := range tmpl.dependsOn {
			tasks[i].Dependencies = append(tasks[i].Dependencies, tasks[depIdx].ID)
		}
	}

	if err := store.SetTasks(tasks); err != nil {
		return fmt.Errorf("orchestrator: install plan: %w", err)
	}

	reasoning := decision.Reasoning
	if reasoning == "" {
		reasoning = fmt.Sprintf("planned %d tasks from the %s template", len(tasks), templateName(snapshot.Request.RequestType))
	}
	store.AppendDecision(workflow.Decision{
		Agent:     workflow.OrchestratorAgent,
		Decision:  "plan",
		Reasoning: reasoning,
	})

	if o.Bus != nil {
		for _, t := range tasks {
			_ = o.Bus.Publish(ctx, events.New(events.TypeTaskUpdate, snapshot.WorkflowID, string(workflow.OrchestratorAgent), events.TaskUpdatePayload{
				TaskID:       t.ID,
				Status:       string(t.Status),
				Owner:        string(t.Owner),
				Description:  t.Description,
				Dependencies: t.Dependencies,
			}, o.Clock.Now()))
		}
	}
	return nil
}

func templateName(requestType string) string {
	if _, ok := planTemplates[requestType]; ok {
		return requestType
	}
	return "default"
}
