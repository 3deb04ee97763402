package events

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the default per-subscriber channel capacity used by
// Subscribe.
const DefaultBufferSize = 64

// chanSubscriber bridges the synchronous Bus fan-out to a buffered Go
// channel, implementing the back-pressure contract: critical events always
// block the publisher until delivered (or the context is cancelled); log
// events are dropped if the buffer is full. The channel is closed exactly
// once, on the workflow's terminal event.
type chanSubscriber struct {
	ch     chan Event
	closed atomic.Bool
	once   sync.Once
}

// HandleEvent implements Subscriber.
func (c *chanSubscriber) HandleEvent(ctx context.Context, event Event) error {
	if c.closed.Load() {
		return nil
	}
	if event.Type().Critical() {
		select {
		case c.ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	} else {
		select {
		case c.ch <- event:
		default:
			// Bounded buffer full: drop a non-critical (log) event rather
			// than block the publisher.
		}
	}
	if event.Type() == TypeWorkflowComplete {
		c.closeChannel()
	}
	return nil
}

func (c *chanSubscriber) closeChannel() {
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.ch)
	})
}

// Subscribe registers a bounded-channel subscriber on bus and returns the
// receive side of its channel along with the Subscription handle. The
// channel is closed automatically when a workflow_complete event passes
// through it; callers should also Close the returned Subscription once they
// stop reading, to unregister promptly on early exit (e.g. an observer that
// disconnects mid-stream).
func Subscribe(bus Bus, bufferSize int) (<-chan Event, Subscription, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	cs := &chanSubscriber{ch: make(chan Event, bufferSize)}
	sub, err := bus.Register(cs)
	if err != nil {
		return nil, nil, err
	}
	return cs.ch, sub, nil
}
