package audit

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexhelm/workflow-engine/events"
)

func TestCSVAuditSinkWritesOneRowPerSuccessEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewCSVAuditSink(&buf)

	now := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	ev := events.New(events.TypeSuccess, "wf-1", "operations_agent", events.SuccessPayload{
		Agent: "operations_agent", ClientID: "C1", AccountType: "ROTH_IRA", AccountNumber: "ROTH_IRA-1000",
		Summary: "account opened: ROTH_IRA-1000",
	}, now)

	require.NoError(t, sink.HandleEvent(context.Background(), ev))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, "header row plus one data row")
	assert.Equal(t, "timestamp,client_id,account_type,account_number,workflow_id", lines[0])
	assert.Contains(t, lines[1], "C1,ROTH_IRA,ROTH_IRA-1000,wf-1")
}

func TestCSVAuditSinkIgnoresNonSuccessEvents(t *testing.T) {
	var buf bytes.Buffer
	sink := NewCSVAuditSink(&buf)

	require.NoError(t, sink.HandleEvent(context.Background(), events.New(events.TypeTaskUpdate, "wf-1", "", nil, time.Now())))
	assert.Empty(t, buf.String())
}

func TestCSVAuditSinkIgnoresSuccessEventsWithoutAccountNumber(t *testing.T) {
	var buf bytes.Buffer
	sink := NewCSVAuditSink(&buf)

	ev := events.New(events.TypeSuccess, "wf-1", "advisor_agent", events.SuccessPayload{
		Agent: "advisor_agent", ClientID: "C1", Summary: "notified client",
	}, time.Now())
	require.NoError(t, sink.HandleEvent(context.Background(), ev))
	assert.Empty(t, buf.String())
}

func TestCSVAuditSinkWritesHeaderOnlyOnce(t *testing.T) {
	var buf bytes.Buffer
	sink := NewCSVAuditSink(&buf)
	now := time.Now()

	for i := 0; i < 2; i++ {
		ev := events.New(events.TypeSuccess, "wf-1", "operations_agent", events.SuccessPayload{
			ClientID: "C1", AccountNumber: "ROTH_IRA-1000",
		}, now)
		require.NoError(t, sink.HandleEvent(context.Background(), ev))
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3, "one header row, two data rows")
}
