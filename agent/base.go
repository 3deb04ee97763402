// Package agent implements the three role-specialized decision units —
// Orchestrator, Operations, Advisor — that share one contract: choose a
// task, consult the LLM Adapter, invoke at most one tool, and apply the
// error-propagation rule before returning. No agent ever mutates more than
// one task's status per Step call.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/nexhelm/workflow-engine/events"
	"github.com/nexhelm/workflow-engine/llm"
	"github.com/nexhelm/workflow-engine/toolerrors"
	"github.com/nexhelm/workflow-engine/tools"
	"github.com/nexhelm/workflow-engine/workflow"
)

// Agent is the capability the Router's dispatch table holds one of per
// workflow.AgentID.
type Agent interface {
	Role() workflow.AgentID
	// Step advances task by exactly one transition: it is the task the
	// Router chose as the highest-priority ready task owned by this agent.
	Step(ctx context.Context, store *workflow.Store, task *workflow.Task) error
}

// PromptFunc builds a role-specific prompt for one task and the current
// state. Tests substitute a fixed-text function so fixtures never depend on
// wording.
type PromptFunc func(role workflow.AgentID, task *workflow.Task, state *workflow.State) string

// Base implements the common agent contract (§4.4 steps 2-6); Operations
// and Advisor embed it and supply only their role, authorized tool set, and
// prompt builder. The Orchestrator does not embed Base — planning is a
// distinct, once-per-workflow operation with no task to choose.
type Base struct {
	AgentRole       workflow.AgentID
	LLM             llm.Adapter
	Registry        *tools.Registry
	Bus             events.Bus
	Clock           workflow.Clock
	AuthorizedTools map[string]bool
	Prompt          PromptFunc
}

// Role implements Agent.
func (b *Base) Role() workflow.AgentID { return b.AgentRole }

// Step implements the common contract over a task already chosen by the
// Router (§4.4 step 1 lives in the router). Steps 2-6 happen here.
func (b *Base) Step(ctx context.Context, store *workflow.Store, task *workflow.Task) error {
	if err := b.markTask(store, task.ID, workflow.TaskInProgress, ""); err != nil {
		return err
	}

	snapshot := store.Snapshot()
	prompt := b.Prompt(b.AgentRole, task, snapshot)
	digest := stateDigest(snapshot)

	decision, _, err := b.LLM.Infer(ctx, b.AgentRole, prompt, digest)
	if err != nil {
		return fmt.Errorf("agent %s: llm inference: %w", b.AgentRole, err)
	}

	if decision.MultipleToolCalls {
		b.publishWarning(store.Snapshot().WorkflowID, "model requested more than one tool call in a single turn; only the first was invoked")
	}

	if decision.Fallback {
		b.noProgress(store, task, "llm fallback: "+decision.Reasoning)
		b.publishAgentMessage(store, task, decision.Reasoning)
		return nil
	}

	if decision.Tool == "" {
		return b.applyDirectDecision(store, task, decision)
	}

	if !b.AuthorizedTools[decision.Tool] {
		result := tools.Failf(toolerrors.KindInvalidArgument, "agent %s is not authorized to call tool %q", b.AgentRole, decision.Tool)
		b.applyToolResult(store, task, result)
		b.publishAgentMessage(store, task, decision.Reasoning)
		return nil
	}

	result := b.Registry.Invoke(ctx, snapshot.WorkflowID, b.AgentRole, decision.Tool, decision.Params)
	b.applyToolResult(store, task, result)
	b.publishAgentMessage(store, task, decisionMessage(b.AgentRole, snapshot, decision))
	return nil
}

// applyDirectDecision handles a decision that named no tool: the model is
// asserting a terminal task status directly. A "pending" decision with no
// tool and no further work to do would stall the task in_progress forever
// (the Router never re-selects an in_progress task), so it is treated the
// same as a fallback: recorded as a blocker rather than left to stall.
func (b *Base) applyDirectDecision(store *workflow.Store, task *workflow.Task, decision llm.Decision) error {
	switch decision.TaskStatus {
	case workflow.TaskCompleted:
		_ = b.markTask(store, task.ID, workflow.TaskCompleted, decision.Reasoning)
	case workflow.TaskFailed:
		_ = b.markTask(store, task.ID, workflow.TaskFailed, decision.Reasoning)
		store.AddBlocker(decision.Reasoning, b.AgentRole)
		store.SetNextActions(nil)
	default:
		b.noProgress(store, task, "agent reported no progress and chose no tool: "+decision.Reasoning)
	}
	b.publishAgentMessage(store, task, decision.Reasoning)
	return nil
}

func (b *Base) noProgress(store *workflow.Store, task *workflow.Task, reason string) {
	_ = b.markTask(store, task.ID, workflow.TaskFailed, reason)
	store.AddBlocker(reason, b.AgentRole)
	store.SetNextActions(nil)
}

// applyToolResult is the error-propagation rule (§4.4.5): a Fail or a
// semantically-false Ok both fail the task and add a blocker; anything else
// completes the task with a short result summary.
func (b *Base) applyToolResult(store *workflow.Store, task *workflow.Task, result tools.Result) {
	if !result.IsOk() || result.SemanticFalse() {
		reason := failureReason(result)
		_ = b.markTask(store, task.ID, workflow.TaskFailed, reason)
		store.AddBlocker(reason, b.AgentRole)
		store.SetNextActions(nil)
		return
	}
	_ = b.markTask(store, task.ID, workflow.TaskCompleted, resultSummary(result))
	if accountNumber, ok := result.Payload()["account_number"].(string); ok && accountNumber != "" {
		store.SetOutcome(map[string]any{
			"account_number": accountNumber,
			"status":         result.Payload()["status"],
			"created_at":     result.Payload()["created_at"],
		})
		b.publishSuccess(store, accountNumber)
	}
}

// publishSuccess emits a success event carrying the new account number, the
// CSVAuditSink's trigger for appending an audit row (§6).
func (b *Base) publishSuccess(store *workflow.Store, accountNumber string) {
	if b.Bus == nil {
		return
	}
	snapshot := store.Snapshot()
	accountType := accountNumber
	if idx := strings.LastIndex(accountNumber, "-"); idx >= 0 {
		accountType = accountNumber[:idx]
	}
	_ = b.Bus.Publish(context.Background(), events.New(events.TypeSuccess, snapshot.WorkflowID, string(b.AgentRole), events.SuccessPayload{
		Agent:         string(b.AgentRole),
		ClientID:      snapshot.Request.ClientID,
		AccountType:   accountType,
		AccountNumber: accountNumber,
		Summary:       "account opened: " + accountNumber,
	}, b.Clock.Now()))
}

// markTask transitions a task via the Store and publishes the corresponding
// task_update event (§6's task_update payload), so every externally
// observable task transition is on the bus regardless of which branch of
// the error-propagation rule produced it.
func (b *Base) markTask(store *workflow.Store, id string, status workflow.TaskStatus, result string) error {
	if err := store.MarkTask(id, status, result); err != nil {
		return err
	}
	if b.Bus == nil {
		return nil
	}
	snapshot := store.Snapshot()
	t := snapshot.TaskByID(id)
	if t == nil {
		return nil
	}
	_ = b.Bus.Publish(context.Background(), events.New(events.TypeTaskUpdate, snapshot.WorkflowID, string(b.AgentRole), events.TaskUpdatePayload{
		TaskID:       t.ID,
		Status:       string(t.Status),
		Owner:        string(t.Owner),
		Description:  t.Description,
		Result:       t.Result,
		Dependencies: t.Dependencies,
	}, b.Clock.Now()))
	return nil
}

func failureReason(result tools.Result) string {
	if !result.IsOk() {
		return result.Err().Error()
	}
	payload := result.Payload()
	if reason, ok := payload["reason"].(string); ok && reason != "" {
		return reason
	}
	if errs, ok := payload["errors"].([]string); ok && len(errs) > 0 {
		return strings.Join(errs, "; ")
	}
	return "tool reported a semantic failure"
}

func resultSummary(result tools.Result) string {
	payload := result.Payload()
	if accountNumber, ok := payload["account_number"].(string); ok && accountNumber != "" {
		return "account opened: " + accountNumber
	}
	if docType, ok := payload["doc_type"].(string); ok && docType != "" {
		return "document " + docType + " recorded"
	}
	if sent, ok := payload["sent"].(bool); ok && sent {
		return "notification sent"
	}
	return "ok"
}

func decisionMessage(role workflow.AgentID, state *workflow.State, decision llm.Decision) string {
	if decision.MessageToClient == "" {
		return decision.Reasoning
	}
	if role == workflow.AdvisorAgent {
		return verifyAdvisorMessage(state, decision.MessageToClient)
	}
	return decision.MessageToClient
}

// verifyAdvisorMessage implements the Advisor's state-verification rule:
// before letting a message claim a terminal outcome, it must confirm
// state.Outcome is actually populated, else it downgrades the phrasing.
func verifyAdvisorMessage(state *workflow.State, message string) string {
	if len(state.Outcome) > 0 {
		return message
	}
	lower := strings.ToLower(message)
	for _, claim := range []string{"created", "opened", "completed", "confirmed"} {
		if strings.Contains(lower, claim) {
			return "Your request is in progress; we'll confirm once it's finalized."
		}
	}
	return message
}

func (b *Base) publishAgentMessage(store *workflow.Store, task *workflow.Task, content string) {
	if b.Bus == nil || content == "" {
		return
	}
	snapshot := store.Snapshot()
	_ = b.Bus.Publish(context.Background(), events.New(events.TypeAgentMessage, snapshot.WorkflowID, string(b.AgentRole), events.AgentMessagePayload{
		From:    string(b.AgentRole),
		To:      "client",
		Content: content,
		Type:    "status_update",
	}, b.Clock.Now()))
}

func (b *Base) publishWarning(workflowID, message string) {
	if b.Bus == nil {
		return
	}
	_ = b.Bus.Publish(context.Background(), events.New(events.TypeLog, workflowID, string(b.AgentRole), events.WarningPayload{
		Agent:   string(b.AgentRole),
		Message: message,
	}, b.Clock.Now()))
}

// stateDigest renders a compact, model-facing summary of the workflow so
// the LLM Adapter's prompt stays small regardless of task count.
func stateDigest(state *workflow.State) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "client_id=%s request_type=%s status=%s\n", state.Request.ClientID, state.Request.RequestType, state.Status)
	for _, t := range state.Tasks {
		fmt.Fprintf(&sb, "- [%s] %s (owner=%s, status=%s, deps=%v)\n", t.ID, t.Description, t.Owner, t.Status, t.Dependencies)
	}
	if len(state.Outcome) > 0 {
		fmt.Fprintf(&sb, "outcome=%v\n", state.Outcome)
	}
	return sb.String()
}
