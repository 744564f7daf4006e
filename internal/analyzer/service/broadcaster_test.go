package service

import (
	"fmt"
	"testing"
	"time"

	"golang-stock-insight/internal/analyzer/dto"
	"golang-stock-insight/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents(t *testing.T, ch <-chan dto.StreamEvent, n int) []dto.StreamEvent {
	t.Helper()
	var events []dto.StreamEvent
	timeout := time.After(2 * time.Second)
	for len(events) < n {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for %d events, got %d", n, len(events))
		}
	}
	return events
}

func TestBroadcaster_ConnectedFirst(t *testing.T) {
	b := NewBroadcaster(8, logger.NewNop())
	ch, err := b.Subscribe("client-1")
	require.NoError(t, err)
	defer b.Unsubscribe("client-1")

	b.Publish("client-1", dto.NewStreamEvent(dto.EventLog, dto.LogData{Message: "hello"}))

	events := collectEvents(t, ch, 2)
	assert.Equal(t, dto.EventConnected, events[0].Event)
	assert.Equal(t, dto.EventLog, events[1].Event)
}

func TestBroadcaster_PerClientOrdering(t *testing.T) {
	b := NewBroadcaster(64, logger.NewNop())
	ch, err := b.Subscribe("client-1")
	require.NoError(t, err)
	defer b.Unsubscribe("client-1")

	for i := 0; i < 20; i++ {
		b.Publish("client-1", dto.NewStreamEvent(dto.EventAIToken, dto.AITokenData{Content: fmt.Sprintf("%d", i)}))
	}

	events := collectEvents(t, ch, 21)
	for i, ev := range events[1:] {
		data := ev.Data.(dto.AITokenData)
		assert.Equal(t, fmt.Sprintf("%d", i), data.Content, "token order must be preserved")
	}
}

func TestBroadcaster_SlowConsumerKeepsFinalResult(t *testing.T) {
	// Tiny queue, nothing read: droppable events are shed, the final result
	// survives the flood.
	b := NewBroadcaster(4, logger.NewNop())
	ch, err := b.Subscribe("client-1")
	require.NoError(t, err)
	defer b.Unsubscribe("client-1")

	for i := 0; i < 50; i++ {
		b.Publish("client-1", dto.NewStreamEvent(dto.EventProgress, dto.ProgressData{Percent: i}))
	}
	b.Publish("client-1", dto.NewStreamEvent(dto.EventFinalResult, dto.AnalysisReport{Symbol: "600519"}))
	for i := 0; i < 50; i++ {
		b.Publish("client-1", dto.NewStreamEvent(dto.EventHeartbeat, nil))
	}

	deadline := time.After(2 * time.Second)
	var sawFinal bool
	for !sawFinal {
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "channel closed before final result")
			if ev.Event == dto.EventFinalResult {
				sawFinal = true
			}
		case <-deadline:
			t.Fatal("final result was dropped under backpressure")
		}
	}
}

func TestBroadcaster_DuplicateSubscriptionRejected(t *testing.T) {
	b := NewBroadcaster(8, logger.NewNop())
	_, err := b.Subscribe("client-1")
	require.NoError(t, err)
	defer b.Unsubscribe("client-1")

	_, err = b.Subscribe("client-1")
	require.Error(t, err)
}

func TestBroadcaster_UnsubscribeClosesChannelAndDone(t *testing.T) {
	b := NewBroadcaster(8, logger.NewNop())
	ch, err := b.Subscribe("client-1")
	require.NoError(t, err)

	done := b.Done("client-1")
	b.Unsubscribe("client-1")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("done channel not closed on unsubscribe")
	}

	// Drain until close.
	timeout := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				assert.Equal(t, 0, b.ActiveClients())
				return
			}
		case <-timeout:
			t.Fatal("delivery channel not closed after unsubscribe")
		}
	}
}

func TestBroadcaster_PublishToUnknownClientIsNoop(t *testing.T) {
	b := NewBroadcaster(8, logger.NewNop())
	b.Publish("ghost", dto.NewStreamEvent(dto.EventLog, nil))
	assert.Equal(t, 0, b.ActiveClients())

	assert.Nil(t, b.Done("ghost"), "a client that never subscribed has no disconnect signal")
}

func TestBroadcaster_ClientIsolation(t *testing.T) {
	b := NewBroadcaster(8, logger.NewNop())
	ch1, err := b.Subscribe("client-1")
	require.NoError(t, err)
	defer b.Unsubscribe("client-1")
	ch2, err := b.Subscribe("client-2")
	require.NoError(t, err)
	defer b.Unsubscribe("client-2")

	b.Publish("client-1", dto.NewStreamEvent(dto.EventLog, dto.LogData{Message: "for one"}))

	events1 := collectEvents(t, ch1, 2)
	assert.Equal(t, dto.EventLog, events1[1].Event)

	events2 := collectEvents(t, ch2, 1)
	assert.Equal(t, dto.EventConnected, events2[0].Event)
	select {
	case ev := <-ch2:
		t.Fatalf("client-2 received foreign event %s", ev.Event)
	case <-time.After(50 * time.Millisecond):
	}
}
