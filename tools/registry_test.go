package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexhelm/workflow-engine/backend"
	"github.com/nexhelm/workflow-engine/toolerrors"
	"github.com/nexhelm/workflow-engine/workflow"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	backends := backend.NewBackends(&backend.Fixtures{
		Clients: []backend.ClientRecord{
			{ClientID: "C1", Name: "Alice Nguyen", Age: 35, Income: 120000},
		},
		Documents: []backend.DocumentRecord{
			{ClientID: "C1", DocType: "tax_return", Status: "verified", Verified: true, Valid: true},
		},
	}, nil, time.Now())
	registry, err := NewRegistry(backends, nil, workflow.SystemClock{})
	require.NoError(t, err)
	return registry
}

func TestInvokeUnknownToolReturnsInvalidArgument(t *testing.T) {
	r := newTestRegistry(t)
	result := r.Invoke(context.Background(), "wf-1", workflow.OperationsAgent, "not_a_real_tool", nil)
	require.False(t, result.IsOk())
	assert.Equal(t, toolerrors.KindInvalidArgument, result.Kind())
}

func TestCheckEligibilityUnknownClientIsNotFound(t *testing.T) {
	r := newTestRegistry(t)
	result := r.Invoke(context.Background(), "wf-1", workflow.OperationsAgent, "check_eligibility",
		map[string]any{"client_id": "ghost", "product_type": "roth_ira"})
	require.False(t, result.IsOk())
	assert.Equal(t, toolerrors.KindNotFound, result.Kind())
}

func TestCheckEligibilityEligibleClient(t *testing.T) {
	r := newTestRegistry(t)
	result := r.Invoke(context.Background(), "wf-1", workflow.OperationsAgent, "check_eligibility",
		map[string]any{"client_id": "C1", "product_type": "roth_ira"})
	require.True(t, result.IsOk())
	assert.True(t, result.Payload()["eligible"].(bool))
	assert.False(t, result.SemanticFalse())
}

func TestOpenAccountRequiresClientIDAndAccountType(t *testing.T) {
	r := newTestRegistry(t)
	result := r.Invoke(context.Background(), "wf-1", workflow.OperationsAgent, "open_account",
		map[string]any{"client_id": "C1"})
	require.False(t, result.IsOk())
	assert.Equal(t, toolerrors.KindInvalidArgument, result.Kind())
}

func TestOpenAccountIssuesAccountNumberThenRejectsDuplicate(t *testing.T) {
	r := newTestRegistry(t)
	first := r.Invoke(context.Background(), "wf-1", workflow.OperationsAgent, "open_account",
		map[string]any{"client_id": "C1", "account_type": "ROTH_IRA"})
	require.True(t, first.IsOk())
	assert.Equal(t, "ROTH_IRA-1000", first.Payload()["account_number"])

	second := r.Invoke(context.Background(), "wf-1", workflow.OperationsAgent, "open_account",
		map[string]any{"client_id": "C1", "account_type": "ROTH_IRA"})
	require.False(t, second.IsOk())
	assert.Equal(t, toolerrors.KindConflict, second.Kind())
}

func TestCreateDocumentRejectsSchemaMismatch(t *testing.T) {
	r := newTestRegistry(t)
	result := r.Invoke(context.Background(), "wf-1", workflow.AdvisorAgent, "create_document",
		map[string]any{"client_id": "C1", "doc_type": "ira_application", "data": map[string]any{
			"contribution_amount": "not-a-number",
		}})
	require.False(t, result.IsOk())
	assert.Equal(t, toolerrors.KindInvalidArgument, result.Kind())
}

func TestValidateDocumentReflectsFixtureValidity(t *testing.T) {
	r := newTestRegistry(t)
	result := r.Invoke(context.Background(), "wf-1", workflow.OperationsAgent, "validate_document",
		map[string]any{"client_id": "C1", "doc_type": "tax_return"})
	require.True(t, result.IsOk())
	assert.True(t, result.Payload()["valid"].(bool))
}
