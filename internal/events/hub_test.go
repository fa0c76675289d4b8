package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishReachesSubscribers(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	h.Publish(`{"type":"ping"}`)

	select {
	case got := <-ch:
		assert.Equal(t, `{"type":"ping"}`, got)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestHubDropsWhenSubscriberIsSlow(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	// Channel buffer is 10; the extras must be dropped, not block.
	for i := 0; i < 50; i++ {
		h.Publish("evt")
	}
	assert.Len(t, ch, 10)
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	h.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	h.Publish("evt")
}

func TestMakeEventEnvelope(t *testing.T) {
	s := MakeEvent("req-1", "posting_created", 1, map[string]any{"id": 7})

	var e Event
	require.NoError(t, json.Unmarshal([]byte(s), &e))
	assert.Equal(t, "posting_created", e.Type)
	assert.Equal(t, 1, e.Version)
	assert.Equal(t, "req-1", e.RequestID)
	assert.JSONEq(t, `{"id":7}`, string(e.Data))
	assert.False(t, e.At.IsZero())
}
