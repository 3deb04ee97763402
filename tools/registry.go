package tools

import (
	"context"
	"time"

	"github.com/nexhelm/workflow-engine/backend"
	"github.com/nexhelm/workflow-engine/events"
	"github.com/nexhelm/workflow-engine/toolerrors"
	"github.com/nexhelm/workflow-engine/workflow"
)

// Registry resolves a tool name and parameters to a Result, dispatching
// against the four simulated backends and publishing a tool_execution event
// for every call. It is the single boundary responsible for re-tagging a
// backend's internal failure as a structured Fail.
type Registry struct {
	backends *backend.Backends
	bus      events.Bus
	clock    workflow.Clock
	schemas  docSchemas
}

// NewRegistry constructs a Registry over backends, publishing tool_execution
// events to bus (which may be nil in tests that don't assert on events).
func NewRegistry(backends *backend.Backends, bus events.Bus, clock workflow.Clock) (*Registry, error) {
	schemas, err := newDefaultDocSchemas()
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = workflow.SystemClock{}
	}
	return &Registry{backends: backends, bus: bus, clock: clock, schemas: schemas}, nil
}

// Invoke resolves name against params, returning a Result and publishing the
// corresponding tool_execution event. agent and workflowID identify the
// caller for the published event's payload.
func (r *Registry) Invoke(ctx context.Context, workflowID string, agent workflow.AgentID, name string, params map[string]any) Result {
	result := r.dispatch(ctx, workflowID, name, params)
	r.publish(ctx, workflowID, agent, name, params, result)
	return result
}

func (r *Registry) publish(ctx context.Context, workflowID string, agent workflow.AgentID, name string, params map[string]any, result Result) {
	if r.bus == nil {
		return
	}
	summary := ToolResultSummary{Kind: string(result.Kind())}
	if result.IsOk() {
		summary.Kind = "ok"
		summary.Payload = result.Payload()
	}
	_ = r.bus.Publish(ctx, events.New(events.TypeToolExecution, workflowID, string(agent), ToolExecutionPayload{
		Agent:  string(agent),
		Tool:   name,
		Params: params,
		Result: summary,
	}, r.clock.Now()))
}

func (r *Registry) dispatch(ctx context.Context, workflowID, name string, params map[string]any) Result {
	switch name {
	case "get_client_info":
		return r.getClientInfo(params)
	case "check_eligibility":
		return r.checkEligibility(params)
	case "get_document":
		return r.getDocument(params)
	case "validate_document":
		return r.validateDocument(params)
	case "create_document":
		return r.createDocument(params)
	case "update_document":
		return r.updateDocument(params)
	case "open_account":
		return r.openAccount(params)
	case "send_notification":
		return r.sendNotification(ctx, workflowID, params)
	default:
		return Failf(toolerrors.KindInvalidArgument, "unknown tool %q", name)
	}
}

func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func mapParam(params map[string]any, key string) map[string]any {
	v, _ := params[key].(map[string]any)
	return v
}

func clientRecordPayload(c backend.ClientRecord) map[string]any {
	return map[string]any{
		"client_id":         c.ClientID,
		"name":              c.Name,
		"age":               c.Age,
		"income":            c.Income,
		"existing_accounts": c.ExistingAccounts,
	}
}

func documentRecordPayload(d backend.DocumentRecord) map[string]any {
	return map[string]any{
		"client_id": d.ClientID,
		"doc_type":  d.DocType,
		"status":    d.Status,
		"verified":  d.Verified,
		"valid":     d.Valid,
		"data":      d.Data,
	}
}

func (r *Registry) getClientInfo(params map[string]any) Result {
	clientID, ok := stringParam(params, "client_id")
	if !ok {
		return Failf(toolerrors.KindInvalidArgument, "get_client_info: client_id is required")
	}
	client, found := r.backends.CRM.Get(clientID)
	if !found {
		return Failf(toolerrors.KindNotFound, "unknown client %q", clientID)
	}
	return Ok(clientRecordPayload(client))
}

func (r *Registry) checkEligibility(params map[string]any) Result {
	clientID, _ := stringParam(params, "client_id")
	productType, _ := stringParam(params, "product_type")
	eligible, reason, found := r.backends.CRM.CheckEligibility(clientID, productType)
	if !found {
		return Failf(toolerrors.KindNotFound, "unknown client %q", clientID)
	}
	return Ok(map[string]any{"eligible": eligible, "reason": reason})
}

func (r *Registry) getDocument(params map[string]any) Result {
	clientID, _ := stringParam(params, "client_id")
	docType, _ := stringParam(params, "doc_type")
	doc, found := r.backends.Documents.Get(clientID, docType)
	if !found {
		return Failf(toolerrors.KindNotFound, "no %q document for client %q", docType, clientID)
	}
	return Ok(documentRecordPayload(doc))
}

func (r *Registry) validateDocument(params map[string]any) Result {
	clientID, _ := stringParam(params, "client_id")
	docType, _ := stringParam(params, "doc_type")
	valid, errs, found := r.backends.Documents.Validate(clientID, docType)
	if !found {
		return Failf(toolerrors.KindNotFound, "no %q document for client %q", docType, clientID)
	}
	return Ok(map[string]any{"valid": valid, "errors": errs})
}

func (r *Registry) createDocument(params map[string]any) Result {
	clientID, _ := stringParam(params, "client_id")
	docType, ok := stringParam(params, "doc_type")
	if clientID == "" || !ok {
		return Failf(toolerrors.KindInvalidArgument, "create_document: client_id and doc_type are required")
	}
	data := mapParam(params, "data")
	if err := r.schemas.validate(docType, data); err != nil {
		return Failf(toolerrors.KindInvalidArgument, "create_document: %s", err)
	}
	doc := r.backends.Documents.Create(clientID, docType, data, r.clock.Now())
	return Ok(documentRecordPayload(doc))
}

func (r *Registry) updateDocument(params map[string]any) Result {
	clientID, _ := stringParam(params, "client_id")
	docType, _ := stringParam(params, "doc_type")
	data := mapParam(params, "data")
	if err := r.schemas.validate(docType, data); err != nil {
		return Failf(toolerrors.KindInvalidArgument, "update_document: %s", err)
	}
	doc, found := r.backends.Documents.Update(clientID, docType, data, r.clock.Now())
	if !found {
		return Failf(toolerrors.KindNotFound, "no %q document for client %q", docType, clientID)
	}
	return Ok(documentRecordPayload(doc))
}

func (r *Registry) openAccount(params map[string]any) Result {
	clientID, _ := stringParam(params, "client_id")
	accountType, ok := stringParam(params, "account_type")
	if clientID == "" || !ok {
		return Failf(toolerrors.KindInvalidArgument, "open_account: client_id and account_type are required")
	}
	if _, found := r.backends.CRM.Get(clientID); !found {
		return Failf(toolerrors.KindNotFound, "unknown client %q", clientID)
	}
	acc, toolErr := r.backends.Accounts.OpenAccount(clientID, accountType, r.clock.Now())
	if toolErr != nil {
		return Fail(toolErr)
	}
	return Ok(map[string]any{
		"account_number": acc.Number,
		"status":         "open",
		"created_at":     acc.CreatedAt.Format(time.RFC3339),
	})
}

func (r *Registry) sendNotification(ctx context.Context, workflowID string, params map[string]any) Result {
	clientID, ok := stringParam(params, "client_id")
	if !ok {
		return Failf(toolerrors.KindInvalidArgument, "send_notification: client_id is required")
	}
	if _, found := r.backends.CRM.Get(clientID); !found {
		return Failf(toolerrors.KindNotFound, "unknown client %q", clientID)
	}
	typ, _ := stringParam(params, "type")
	content, _ := stringParam(params, "content")
	if r.backends.Notifications != nil {
		if err := r.backends.Notifications.Send(ctx, workflowID, clientID, typ, content, r.clock.Now()); err != nil {
			return Failf(toolerrors.KindInternal, "send_notification: %s", err)
		}
	}
	return Ok(map[string]any{"sent": true})
}
