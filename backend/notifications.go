package backend

import (
	"context"
	"sync"
	"time"

	"github.com/nexhelm/workflow-engine/events"
)

// NotificationRecord is one append-only log entry.
type NotificationRecord struct {
	ClientID  string
	Type      string
	Content   string
	Timestamp time.Time
}

// NotificationSink is an append-only log of client notifications. Every
// successful append also publishes a TypeNotification event, independent of
// whatever agent invoked the send_notification tool.
type NotificationSink struct {
	mu  sync.Mutex
	log []NotificationRecord
	bus events.Bus
}

// NewNotificationSink constructs a sink that publishes to bus. bus may be
// nil in tests that only care about the log.
func NewNotificationSink(bus events.Bus) *NotificationSink {
	return &NotificationSink{bus: bus}
}

// Send appends a notification and publishes it to the event bus.
func (n *NotificationSink) Send(ctx context.Context, workflowID, clientID, typ, content string, now time.Time) error {
	n.mu.Lock()
	n.log = append(n.log, NotificationRecord{ClientID: clientID, Type: typ, Content: content, Timestamp: now})
	n.mu.Unlock()

	if n.bus == nil {
		return nil
	}
	return n.bus.Publish(ctx, events.New(events.TypeNotification, workflowID, "", events.NotificationPayload{
		ClientID: clientID,
		Type:     typ,
		Content:  content,
	}, now))
}

// Log returns a copy of the notifications sent so far, for tests.
func (n *NotificationSink) Log() []NotificationRecord {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]NotificationRecord(nil), n.log...)
}
