// Package audit provides an optional CSV audit sink that subscribes to the
// Event Bus and records one row per successful account creation (§6: "an
// optional CSV audit sink for successful account creations may be attached
// to the Event Bus as a subscriber; its format ... is not normative"). The
// format here is the one the spec gives as an example.
package audit

import (
	"context"
	"encoding/csv"
	"io"
	"sync"

	"github.com/nexhelm/workflow-engine/events"
)

// CSVAuditSink implements events.Subscriber, appending
// "timestamp,client_id,account_type,account_number,workflow_id" rows for
// every TypeSuccess event that carries a non-empty AccountNumber. A simple
// delimited-text format with no schema or error taxonomy needs nothing
// beyond the standard library's encoding/csv.
type CSVAuditSink struct {
	mu     sync.Mutex
	w      *csv.Writer
	header bool
}

// NewCSVAuditSink wraps w in a csv.Writer, writing a header row on first use.
func NewCSVAuditSink(w io.Writer) *CSVAuditSink {
	return &CSVAuditSink{w: csv.NewWriter(w)}
}

// HandleEvent implements events.Subscriber.
func (s *CSVAuditSink) HandleEvent(_ context.Context, event events.Event) error {
	if event.Type() != events.TypeSuccess {
		return nil
	}
	payload, ok := event.Payload().(events.SuccessPayload)
	if !ok || payload.AccountNumber == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.header {
		if err := s.w.Write([]string{"timestamp", "client_id", "account_type", "account_number", "workflow_id"}); err != nil {
			return err
		}
		s.header = true
	}
	if err := s.w.Write([]string{
		event.Timestamp().Format("2006-01-02T15:04:05Z07:00"),
		payload.ClientID,
		payload.AccountType,
		payload.AccountNumber,
		event.WorkflowID(),
	}); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}
