package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubscriber struct {
	types []Type
	fail  error
}

func (r *recordingSubscriber) HandleEvent(_ context.Context, event Event) error {
	if r.fail != nil {
		return r.fail
	}
	r.types = append(r.types, event.Type())
	return nil
}

func TestPublishDeliversToEverySubscriberInOrder(t *testing.T) {
	bus := NewBus()
	a := &recordingSubscriber{}
	b := &recordingSubscriber{}
	_, err := bus.Register(a)
	require.NoError(t, err)
	_, err = bus.Register(b)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), New(TypeWorkflowStart, "wf-1", "", nil, time.Now())))
	require.NoError(t, bus.Publish(context.Background(), New(TypeTaskUpdate, "wf-1", "operations_agent", nil, time.Now())))

	assert.Equal(t, []Type{TypeWorkflowStart, TypeTaskUpdate}, a.types)
	assert.Equal(t, []Type{TypeWorkflowStart, TypeTaskUpdate}, b.types)
}

func TestCloseUnregistersSubscriber(t *testing.T) {
	bus := NewBus()
	a := &recordingSubscriber{}
	sub, err := bus.Register(a)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), New(TypeWorkflowStart, "wf-1", "", nil, time.Now())))
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close(), "Close must be idempotent")
	require.NoError(t, bus.Publish(context.Background(), New(TypeWorkflowComplete, "wf-1", "", nil, time.Now())))

	assert.Equal(t, []Type{TypeWorkflowStart}, a.types, "events published after Close must not reach the subscriber")
}

func TestPublishStopsAtFailingSubscriberAndSurfacesError(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")
	failing := &recordingSubscriber{fail: boom}
	_, err := bus.Register(failing)
	require.NoError(t, err)

	err = bus.Publish(context.Background(), New(TypeWorkflowStart, "wf-1", "", nil, time.Now()))
	assert.ErrorIs(t, err, boom)
}

func TestRegisterRejectsNilSubscriber(t *testing.T) {
	bus := NewBus()
	_, err := bus.Register(nil)
	assert.Error(t, err)
}
