package agent

import (
	"fmt"

	"github.com/nexhelm/workflow-engine/events"
	"github.com/nexhelm/workflow-engine/llm"
	"github.com/nexhelm/workflow-engine/tools"
	"github.com/nexhelm/workflow-engine/workflow"
)

// advisorAuthorizedTools is the Advisor Agent's tool allowlist (§4.4.3).
var advisorAuthorizedTools = map[string]bool{
	"create_document":   true,
	"update_document":   true,
	"send_notification": true,
	"get_client_info":   true,
}

// NewAdvisor constructs the Advisor Agent, which owns client-facing tasks:
// form creation, notifications, status updates (§4.4.3). Its
// state-verification rule (never claim a terminal outcome that
// state.Outcome doesn't yet hold) is enforced in Base.decisionMessage via
// verifyAdvisorMessage, since that check depends on the agent's role.
func NewAdvisor(llmAdapter llm.Adapter, registry *tools.Registry, bus events.Bus, clock workflow.Clock) Agent {
	return &Base{
		AgentRole:       workflow.AdvisorAgent,
		LLM:             llmAdapter,
		Registry:        registry,
		Bus:             bus,
		Clock:           clock,
		AuthorizedTools: advisorAuthorizedTools,
		Prompt:          advisorPrompt,
	}
}

func advisorPrompt(role workflow.AgentID, task *workflow.Task, state *workflow.State) string {
	return fmt.Sprintf(
		"You are the advisor agent for workflow %s, client %s. "+
			"Advance task %s (%q) by calling exactly one authorized tool "+
			"(create_document, update_document, send_notification, get_client_info). "+
			"Before telling the client a terminal outcome has happened, confirm it is already in state.outcome; "+
			"otherwise phrase your message as in-progress.",
		state.WorkflowID, state.Request.ClientID, task.ID, task.Description)
}
