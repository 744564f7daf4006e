package service

import (
	"fmt"
	"sync"

	"golang-stock-insight/internal/analyzer/dto"
	"golang-stock-insight/pkg/logger"
	"golang-stock-insight/pkg/utils"
)

// Broadcaster owns the per-client event queues. It is the only writer to a
// given client's ordering; events across clients are unordered relative to
// each other.
type Broadcaster interface {
	Subscribe(clientID string) (<-chan dto.StreamEvent, error)
	Unsubscribe(clientID string)
	Publish(clientID string, event dto.StreamEvent)
	Done(clientID string) <-chan struct{}
	ActiveClients() int
}

// NewBroadcaster creates a broadcaster with the given per-client queue bound.
func NewBroadcaster(queueSize int, log *logger.Logger) Broadcaster {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &broadcaster{
		queueSize: queueSize,
		logger:    log,
		clients:   make(map[string]*streamClient),
	}
}

type broadcaster struct {
	queueSize int
	logger    *logger.Logger

	mu      sync.RWMutex
	clients map[string]*streamClient
}

// streamClient is one subscriber's bounded ordered queue plus the pump that
// drains it into the delivery channel.
type streamClient struct {
	id     string
	out    chan dto.StreamEvent
	done   chan struct{}
	notify chan struct{}

	mu    sync.Mutex
	queue []dto.StreamEvent
}

// Subscribe registers the client and emits the connected event first. A
// second subscription for a live client id is rejected.
func (b *broadcaster) Subscribe(clientID string) (<-chan dto.StreamEvent, error) {
	b.mu.Lock()
	if _, exists := b.clients[clientID]; exists {
		b.mu.Unlock()
		return nil, fmt.Errorf("client %s is already subscribed", clientID)
	}
	c := &streamClient{
		id:     clientID,
		out:    make(chan dto.StreamEvent, 1),
		done:   make(chan struct{}),
		notify: make(chan struct{}, 1),
	}
	b.clients[clientID] = c
	b.mu.Unlock()

	utils.GoSafe(func() { c.pump() })

	b.Publish(clientID, dto.NewStreamEvent(dto.EventConnected, map[string]string{"client_id": clientID}))
	b.logger.Info("Client subscribed", logger.StringField("client_id", clientID))
	return c.out, nil
}

// Unsubscribe drops the client and closes its delivery channel. Safe to call
// for unknown ids and safe to call twice.
func (b *broadcaster) Unsubscribe(clientID string) {
	b.mu.Lock()
	c, ok := b.clients[clientID]
	if ok {
		delete(b.clients, clientID)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	close(c.done)
	b.logger.Info("Client unsubscribed", logger.StringField("client_id", clientID))
}

// Publish appends an event to the owning client's queue. When the queue is at
// its bound the oldest droppable event is discarded; final results and errors
// are never dropped, so the queue may exceed the bound by the handful of
// non-droppable events. Publishing to an unknown client is a no-op.
func (b *broadcaster) Publish(clientID string, event dto.StreamEvent) {
	b.mu.RLock()
	c, ok := b.clients[clientID]
	b.mu.RUnlock()
	if !ok {
		return
	}

	c.mu.Lock()
	if len(c.queue) >= b.queueSize {
		if !c.dropOldestDroppable() && event.Droppable() {
			// Queue full of must-deliver events, shed the incoming one.
			c.mu.Unlock()
			return
		}
	}
	c.queue = append(c.queue, event)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Done returns a channel closed when the client unsubscribes. A client with
// no live subscription gets nil: never subscribing is not a disconnect, and a
// nil channel blocks forever in a select.
func (b *broadcaster) Done(clientID string) <-chan struct{} {
	b.mu.RLock()
	c, ok := b.clients[clientID]
	b.mu.RUnlock()
	if !ok {
		return nil
	}
	return c.done
}

// ActiveClients reports the number of live subscriptions.
func (b *broadcaster) ActiveClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// dropOldestDroppable removes the oldest droppable event from the queue.
// Caller holds c.mu.
func (c *streamClient) dropOldestDroppable() bool {
	for i, ev := range c.queue {
		if ev.Droppable() {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return true
		}
	}
	return false
}

// pump drains the queue into the delivery channel in order, until the client
// unsubscribes. The delivery channel is closed from here so readers see a
// clean end of stream.
func (c *streamClient) pump() {
	defer close(c.out)
	for {
		c.mu.Lock()
		var next dto.StreamEvent
		have := len(c.queue) > 0
		if have {
			next = c.queue[0]
			c.queue = c.queue[1:]
		}
		c.mu.Unlock()

		if !have {
			select {
			case <-c.notify:
				continue
			case <-c.done:
				return
			}
		}

		select {
		case c.out <- next:
		case <-c.done:
			return
		}
	}
}
