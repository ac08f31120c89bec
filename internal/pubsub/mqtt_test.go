package pubsub

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type brokerMessage struct {
	topic   string
	payload []byte
}

func (m brokerMessage) Duplicate() bool   { return false }
func (m brokerMessage) Qos() byte         { return 0 }
func (m brokerMessage) Retained() bool    { return false }
func (m brokerMessage) Topic() string     { return m.topic }
func (m brokerMessage) MessageID() uint16 { return 0 }
func (m brokerMessage) Payload() []byte   { return m.payload }
func (m brokerMessage) Ack()              {}

// loopbackBroker delivers published payloads to handlers whose filter ends in /#
type loopbackBroker struct {
	mu           sync.Mutex
	handlers     map[string]mqtt.MessageHandler
	published    []brokerMessage
	subscribeErr error
	disconnected bool
}

func newLoopbackBroker() *loopbackBroker {
	return &loopbackBroker{handlers: map[string]mqtt.MessageHandler{}}
}

func (b *loopbackBroker) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	msg := brokerMessage{topic: topic, payload: payload.([]byte)}

	b.mu.Lock()
	b.published = append(b.published, msg)
	var targets []mqtt.MessageHandler
	for filter, h := range b.handlers {
		if strings.HasPrefix(topic, strings.TrimSuffix(filter, "#")) {
			targets = append(targets, h)
		}
	}
	b.mu.Unlock()

	for _, h := range targets {
		h(nil, msg)
	}
	return doneToken{}
}

func (b *loopbackBroker) Subscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	if b.subscribeErr != nil {
		return doneToken{err: b.subscribeErr}
	}
	b.mu.Lock()
	b.handlers[topic] = callback
	b.mu.Unlock()
	return doneToken{}
}

func (b *loopbackBroker) Unsubscribe(topics ...string) mqtt.Token {
	b.mu.Lock()
	for _, topic := range topics {
		delete(b.handlers, topic)
	}
	b.mu.Unlock()
	return doneToken{}
}

func (b *loopbackBroker) Disconnect(uint) {
	b.mu.Lock()
	b.disconnected = true
	b.mu.Unlock()
}

func TestMQTTPublishRoundTrip(t *testing.T) {
	broker := newLoopbackBroker()
	ps, err := newMQTTPubSub(broker, "chat", 1)
	if err != nil {
		t.Fatalf("newMQTTPubSub() failed: %v", err)
	}
	defer ps.Close()

	ch := ps.Subscribe()
	ps.Publish(Event{Type: TypeSignal, Payload: map[string]interface{}{"channel": "general"}})

	select {
	case received := <-ch:
		if received.Type != TypeSignal || received.Payload["channel"] != "general" {
			t.Errorf("unexpected event: %+v", received)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	if len(broker.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(broker.published))
	}
	if got := broker.published[0].topic; got != "chat/chat:signal" {
		t.Errorf("expected topic chat/chat:signal, got %s", got)
	}
	var wire Event
	if err := json.Unmarshal(broker.published[0].payload, &wire); err != nil || wire.Type != TypeSignal {
		t.Errorf("payload should be the JSON event, got %s (%v)", broker.published[0].payload, err)
	}
}

func TestMQTTIgnoresUndecodablePayloads(t *testing.T) {
	broker := newLoopbackBroker()
	ps, err := newMQTTPubSub(broker, "chat", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer ps.Close()

	ch := ps.Subscribe()
	broker.Publish("chat/garbage", 0, false, []byte("not json"))

	select {
	case ev := <-ch:
		t.Errorf("expected nothing, got %+v", ev)
	default:
	}
}

func TestMQTTSubscribeFailure(t *testing.T) {
	broker := newLoopbackBroker()
	broker.subscribeErr = errors.New("not authorized")

	if _, err := newMQTTPubSub(broker, "chat", 0); err == nil {
		t.Fatal("expected subscribe error")
	}
}

func TestMQTTClose(t *testing.T) {
	broker := newLoopbackBroker()
	ps, err := newMQTTPubSub(broker, "chat", 0)
	if err != nil {
		t.Fatal(err)
	}
	ch := ps.Subscribe()

	ps.Close()

	if !broker.disconnected {
		t.Error("expected broker disconnect")
	}
	if len(broker.handlers) != 0 {
		t.Error("expected the prefix filter to be unsubscribed")
	}
	if _, ok := <-ch; ok {
		t.Error("local subscriber should be closed")
	}
}

func TestMQTTAsUpstream(t *testing.T) {
	broker := newLoopbackBroker()
	upstream, err := newMQTTPubSub(broker, "chat", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer upstream.Close()

	bus := NewWithUpstream(upstream)
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Publish(Event{Type: TypeMessage})

	select {
	case received := <-ch:
		if received.Type != TypeMessage {
			t.Errorf("expected %s, got %s", TypeMessage, received.Type)
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for event through MQTT")
	}
	if upstream.GetSubscriberCount() != 1 {
		t.Errorf("expected the bus to hold one MQTT subscription, got %d", upstream.GetSubscriberCount())
	}
}
