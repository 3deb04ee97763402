package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSubscribeClosesChannelOnWorkflowComplete verifies the documented
// auto-close behavior: the subscriber's channel is closed exactly once a
// workflow_complete event passes through it, and no further events arrive.
func TestSubscribeClosesChannelOnWorkflowComplete(t *testing.T) {
	bus := NewBus()
	ch, sub, err := Subscribe(bus, 4)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, bus.Publish(context.Background(), New(TypeTaskUpdate, "wf-1", "", nil, time.Now())))
	require.NoError(t, bus.Publish(context.Background(), New(TypeWorkflowComplete, "wf-1", "", nil, time.Now())))

	var received []Type
	for ev := range ch {
		received = append(received, ev.Type())
	}
	assert.Equal(t, []Type{TypeTaskUpdate, TypeWorkflowComplete}, received)
}

// TestSubscribeDropsLogEventsUnderBackpressure verifies the differentiated
// back-pressure contract: a full buffer drops non-critical (log) events
// rather than blocking the publisher, while critical events still arrive.
func TestSubscribeDropsLogEventsUnderBackpressure(t *testing.T) {
	bus := NewBus()
	ch, sub, err := Subscribe(bus, 1)
	require.NoError(t, err)
	defer sub.Close()

	// Fill the one-slot buffer with a log event nobody reads yet.
	require.NoError(t, bus.Publish(context.Background(), New(TypeLog, "wf-1", "", LogPayload{Message: "first"}, time.Now())))
	// A second log event must be dropped, not block the publisher.
	done := make(chan struct{})
	go func() {
		_ = bus.Publish(context.Background(), New(TypeLog, "wf-1", "", LogPayload{Message: "second"}, time.Now()))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish of a non-critical event blocked on a full buffer")
	}

	first := <-ch
	assert.Equal(t, "first", first.Payload().(LogPayload).Message, "only the first log event survives the full buffer")
}

// TestSubscribeBlocksForCriticalEventsUntilConsumed verifies that a critical
// event (task_update) is never dropped: Publish blocks until the reader
// drains the channel.
func TestSubscribeBlocksForCriticalEventsUntilConsumed(t *testing.T) {
	bus := NewBus()
	ch, sub, err := Subscribe(bus, 1)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, bus.Publish(context.Background(), New(TypeTaskUpdate, "wf-1", "", nil, time.Now())))

	published := make(chan struct{})
	go func() {
		_ = bus.Publish(context.Background(), New(TypeTaskUpdate, "wf-1", "", nil, time.Now()))
		close(published)
	}()

	select {
	case <-published:
		t.Fatal("Publish of a critical event must block while the buffer is full")
	case <-time.After(50 * time.Millisecond):
	}

	<-ch // drain the first event, unblocking the pending Publish
	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("Publish did not unblock after the buffer drained")
	}
}
