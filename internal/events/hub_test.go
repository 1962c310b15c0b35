package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToTaskSubscribers(t *testing.T) {
	hub := NewHub()

	sub := hub.Subscribe("task-1")
	defer sub.Close()
	other := hub.Subscribe("task-2")
	defer other.Close()

	hub.Publish(Event{TaskID: "task-1", Type: TypeStatus})

	select {
	case event := <-sub.C:
		assert.Equal(t, "task-1", event.TaskID)
		assert.Equal(t, TypeStatus, event.Type)
		assert.False(t, event.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}

	select {
	case event := <-other.C:
		t.Fatalf("unexpected delivery to another task's subscriber: %+v", event)
	default:
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("task-1")
	defer sub.Close()

	// Overfill the buffer; Publish must not block
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < cap(sub.C)+10; i++ {
			hub.Publish(Event{TaskID: "task-1", Type: TypeStatus})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	assert.Len(t, sub.C, cap(sub.C))
}

func TestClose(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("task-1")
	require.Equal(t, 1, hub.SubscriberCount("task-1"))

	sub.Close()
	assert.Equal(t, 0, hub.SubscriberCount("task-1"))

	_, open := <-sub.C
	assert.False(t, open)

	// Double close is safe
	sub.Close()

	// Publishing with no subscribers is a no-op
	hub.Publish(Event{TaskID: "task-1", Type: TypeStatus})
}
