package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEHub_RoutesByJob(t *testing.T) {
	hub := NewSSEHub(quiet())
	a, unsubA := hub.Subscribe("a")
	b, unsubB := hub.Subscribe("b")
	defer unsubB()

	hub.Broadcast(newEvent("a", EventProgress, 1, 2))
	ev := <-a
	assert.Equal(t, "a", ev.JobID)
	assert.Equal(t, 0.5, ev.Progress)
	assert.Empty(t, b)

	unsubA()
	unsubA()
	_, ok := <-a
	assert.False(t, ok)
	assert.Zero(t, hub.GetClientCount("a"))
	assert.Equal(t, 1, hub.GetClientCount("b"))

	// No subscribers is fine.
	hub.Broadcast(newEvent("a", EventDone, 2, 2))
}

func TestSSEHub_TerminalEventsAreNotDropped(t *testing.T) {
	hub := NewSSEHub(quiet())
	ch, unsub := hub.Subscribe("j")
	defer unsub()

	for i := 0; i < cap(ch)+5; i++ {
		hub.Broadcast(newEvent("j", EventProgress, i, 100))
	}
	require.Len(t, ch, cap(ch))
	hub.Broadcast(newEvent("j", EventFailed, 0, 100))

	var last ExportEvent
	for len(ch) > 0 {
		last = <-ch
	}
	assert.Equal(t, EventFailed, last.EventType)
	assert.True(t, last.Terminal())
}
