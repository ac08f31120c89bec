package pubsub

import (
	"encoding/json"
	"sync"

	"github.com/Billy-Davies-2/chat-mock/internal/logger"
)

// MockNATSPubSub is an in-memory stand-in for the NATS upstream.
// It keeps the most recent events so late subscribers can catch up, the way JetStream would.
type MockNATSPubSub struct {
	subject     string
	subscribers []chan Event
	mu          sync.RWMutex
	messages    []Event
	maxMessages int
}

// NewMockNATSPubSub creates the in-memory upstream for local development
func NewMockNATSPubSub(subject string) *MockNATSPubSub {
	logger.Info("Using mock NATS pub/sub for local development", "subject", subject)

	return &MockNATSPubSub{
		subject:     subject,
		subscribers: make([]chan Event, 0),
		messages:    make([]Event, 0),
		maxMessages: 1000,
	}
}

// Publish stores the event and delivers it to every subscriber
func (p *MockNATSPubSub) Publish(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, event)
	if len(p.messages) > p.maxMessages {
		p.messages = p.messages[len(p.messages)-p.maxMessages:]
	}

	for _, sub := range p.subscribers {
		select {
		case sub <- event:
		default:
			logger.Warn("Mock NATS: Skipping slow subscriber", "event_type", event.Type)
		}
	}

	data, _ := json.Marshal(event)
	logger.Debug("Mock NATS: Published event", "subject", p.subject, "event_type", event.Type, "data", string(data))
}

// Subscribe creates a subscription channel for events
func (p *MockNATSPubSub) Subscribe() chan Event {
	ch := make(chan Event, 100)

	p.mu.Lock()
	p.subscribers = append(p.subscribers, ch)
	subCount := len(p.subscribers)
	p.mu.Unlock()

	logger.Debug("Mock NATS: New subscriber added", "total_subscribers", subCount)
	return ch
}

// Unsubscribe removes a subscription channel
func (p *MockNATSPubSub) Unsubscribe(ch chan Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, sub := range p.subscribers {
		if sub == ch {
			p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
			close(ch)
			logger.Debug("Mock NATS: Subscriber removed", "remaining_subscribers", len(p.subscribers))
			break
		}
	}
}

// Recent returns up to count of the newest stored events, oldest first
func (p *MockNATSPubSub) Recent(count int) []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()

	start := len(p.messages) - count
	if start < 0 {
		start = 0
	}
	out := make([]Event, len(p.messages[start:]))
	copy(out, p.messages[start:])
	return out
}

// GetMessageCount returns the number of stored events
func (p *MockNATSPubSub) GetMessageCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.messages)
}

// GetSubscriberCount returns the number of active subscribers
func (p *MockNATSPubSub) GetSubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}

// Close closes all subscriptions
func (p *MockNATSPubSub) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	logger.Info("Mock NATS: Closing all subscriptions", "active_subscriptions", len(p.subscribers))

	for _, sub := range p.subscribers {
		close(sub)
	}
	p.subscribers = nil
}
