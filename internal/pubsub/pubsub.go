package pubsub

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Billy-Davies-2/chat-mock/internal/logger"
)

// Event types mirrored from the mock client
const (
	TypeMessage = "chat:message"
	TypeSignal  = "chat:signal"
	TypeAction  = "chat:action"
)

// Event represents a pubsub event
type Event struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// NewEvent builds an event whose payload is the JSON object form of v
func NewEvent(eventType string, v interface{}) (Event, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return Event{}, fmt.Errorf("%s payload is not a JSON object: %w", eventType, err)
	}

	return Event{Type: eventType, Payload: payload}, nil
}

// Upstream is an interface for upstream publishers (NATS, MQTT or the in-memory mock)
type Upstream interface {
	Publish(Event)
	Subscribe() chan Event
	Unsubscribe(chan Event)
}

// Replayer is implemented by upstreams that retain recent events
type Replayer interface {
	Recent(count int) []Event
}

// PubSub fans events out to local subscribers, optionally through an upstream
type PubSub struct {
	mu          sync.RWMutex
	subscribers []chan Event
	upstream    Upstream
	upstreamCh  chan Event
}

// New creates a new PubSub instance
func New() *PubSub {
	return &PubSub{
		subscribers: []chan Event{},
	}
}

// NewWithUpstream creates a PubSub that bridges to an upstream publisher.
// Publish sends to the upstream, which broadcasts to every instance; events
// coming back from the upstream are forwarded to local subscribers.
func NewWithUpstream(upstream Upstream) *PubSub {
	ps := &PubSub{
		subscribers: []chan Event{},
		upstream:    upstream,
		upstreamCh:  upstream.Subscribe(),
	}

	go func() {
		logger.Debug("PubSub: Subscribed to upstream, waiting for events")
		for event := range ps.upstreamCh {
			logger.Debug("PubSub: Received event from upstream, forwarding to local", "type", event.Type)
			ps.publishLocal(event)
		}
		logger.Debug("PubSub: Upstream channel closed")
	}()

	return ps
}

// Subscribe adds a new subscriber and returns a channel for receiving events
func (ps *PubSub) Subscribe() chan Event {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch := make(chan Event, 10)
	ps.subscribers = append(ps.subscribers, ch)
	logger.Debug("PubSub: New subscriber added", "totalSubscribers", len(ps.subscribers))
	return ch
}

// Unsubscribe removes a subscriber
func (ps *PubSub) Unsubscribe(ch chan Event) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for i, sub := range ps.subscribers {
		if sub == ch {
			close(ch)
			ps.subscribers = append(ps.subscribers[:i], ps.subscribers[i+1:]...)
			break
		}
	}
}

// SubscriberCount returns the number of local subscribers
func (ps *PubSub) SubscriberCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers)
}

// Publish sends an event to all subscribers, via the upstream when one is configured
func (ps *PubSub) Publish(event Event) {
	if ps.upstream != nil {
		logger.Debug("PubSub: Forwarding to upstream", "type", event.Type)
		ps.upstream.Publish(event)
		return
	}

	logger.Debug("PubSub: Publishing locally (no upstream)", "type", event.Type)
	ps.publishLocal(event)
}

// MaxRecent caps how many retained events one Recent call reads
const MaxRecent = 1000

// Recent returns up to count retained events from the upstream, if it keeps any
func (ps *PubSub) Recent(count int) []Event {
	if count > MaxRecent {
		count = MaxRecent
	}
	if r, ok := ps.upstream.(Replayer); ok && count > 0 {
		return r.Recent(count)
	}
	return nil
}

// Close detaches from the upstream and closes every local subscriber
func (ps *PubSub) Close() {
	if ps.upstream != nil {
		ps.upstream.Unsubscribe(ps.upstreamCh)
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, sub := range ps.subscribers {
		close(sub)
	}
	ps.subscribers = nil
}

// publishLocal sends an event to local subscribers only; full subscribers are skipped
func (ps *PubSub) publishLocal(event Event) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, ch := range ps.subscribers {
		select {
		case ch <- event:
		default:
			logger.Warn("PubSub: Skipping slow subscriber", "type", event.Type)
		}
	}
}
