package agent

import (
	"fmt"

	"github.com/nexhelm/workflow-engine/events"
	"github.com/nexhelm/workflow-engine/llm"
	"github.com/nexhelm/workflow-engine/tools"
	"github.com/nexhelm/workflow-engine/workflow"
)

// operationsAuthorizedTools is the Operations Agent's tool allowlist (§4.4.2).
var operationsAuthorizedTools = map[string]bool{
	"check_eligibility": true,
	"validate_document": true,
	"get_document":      true,
	"open_account":      true,
	"get_client_info":   true,
}

// NewOperations constructs the Operations Agent, which owns backend-facing
// tasks: eligibility, document validation, account creation, document
// retrieval (§4.4.2).
func NewOperations(llmAdapter llm.Adapter, registry *tools.Registry, bus events.Bus, clock workflow.Clock) Agent {
	return &Base{
		AgentRole:       workflow.OperationsAgent,
		LLM:             llmAdapter,
		Registry:        registry,
		Bus:             bus,
		Clock:           clock,
		AuthorizedTools: operationsAuthorizedTools,
		Prompt:          operationsPrompt,
	}
}

func operationsPrompt(role workflow.AgentID, task *workflow.Task, state *workflow.State) string {
	return fmt.Sprintf(
		"You are the operations agent for workflow %s, client %s. "+
			"Advance task %s (%q) by calling exactly one authorized tool "+
			"(check_eligibility, validate_document, get_document, open_account, get_client_info) "+
			"and reporting task_status as completed or failed based on the result.",
		state.WorkflowID, state.Request.ClientID, task.ID, task.Description)
}
