package pubsub

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Billy-Davies-2/chat-mock/internal/logger"
	"github.com/nats-io/nats.go"
)

// DefaultStreamName is the JetStream stream holding mirrored chat events
const DefaultStreamName = "CHAT_EVENTS"

// DefaultStreamMaxMsgs bounds the external stream; the oldest events are discarded first
const DefaultStreamMaxMsgs int64 = 100000

// jetStreamBridge publishes events to a JetStream subject and fans every
// delivery on that subject out to local channels, so instances sharing a
// server see each other's events.
type jetStreamBridge struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	subject string
	stream  string
	fanout
}

func newJetStreamBridge(nc *nats.Conn, name string, cfg nats.StreamConfig) (*jetStreamBridge, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := ensureStream(js, cfg); err != nil {
		return nil, err
	}

	b := &jetStreamBridge{
		nc:      nc,
		js:      js,
		subject: cfg.Subjects[0],
		stream:  cfg.Name,
		fanout:  fanout{name: name},
	}

	b.sub, err = js.Subscribe(b.subject, b.deliver, nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.subject, err)
	}

	logger.Debug("Subscribed to JetStream", "stream", b.stream, "subject", b.subject)
	return b, nil
}

// ensureStream creates the stream unless one with the same name already exists
func ensureStream(js nats.JetStreamContext, cfg nats.StreamConfig) error {
	_, err := js.StreamInfo(cfg.Name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", cfg.Name, err)
	}

	if _, err := js.AddStream(&cfg); err != nil {
		return fmt.Errorf("failed to create stream %s: %w", cfg.Name, err)
	}
	logger.Info("JetStream stream created", "stream", cfg.Name, "subjects", cfg.Subjects)
	return nil
}

func (b *jetStreamBridge) deliver(msg *nats.Msg) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("Failed to unmarshal event from JetStream", "error", err)
		_ = msg.Nak()
		return
	}

	b.broadcast(event)
	_ = msg.Ack()
}

// Publish publishes an event to the JetStream subject
func (b *jetStreamBridge) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return
	}

	if _, err := b.js.Publish(b.subject, data); err != nil {
		logger.Error("Failed to publish to NATS", "error", err, "subject", b.subject, "event_type", event.Type)
		return
	}

	logger.Debug("Published event to NATS", "event_type", event.Type, "subject", b.subject)
}

// Subscribe creates a subscription channel for events
func (b *jetStreamBridge) Subscribe() chan Event {
	return b.add()
}

// Unsubscribe removes a subscription channel
func (b *jetStreamBridge) Unsubscribe(ch chan Event) {
	b.remove(ch)
}

// GetSubscriberCount returns the number of active local subscribers
func (b *jetStreamBridge) GetSubscriberCount() int {
	return b.count()
}

// Recent reads up to count of the newest events retained by the stream, oldest first
func (b *jetStreamBridge) Recent(count int) []Event {
	if count <= 0 {
		return nil
	}

	info, err := b.js.StreamInfo(b.stream)
	if err != nil {
		logger.Warn("Failed to read stream info", "stream", b.stream, "error", err)
		return nil
	}
	if count > MaxRecent {
		count = MaxRecent
	}
	if info.State.Msgs == 0 {
		return nil
	}

	first, last := info.State.FirstSeq, info.State.LastSeq
	start := first
	if n := uint64(count); last >= n && last-n+1 > first {
		start = last - n + 1
	}

	events := make([]Event, 0, last-start+1)
	for seq := start; seq <= last; seq++ {
		raw, err := b.js.GetMsg(b.stream, seq)
		if err != nil {
			// purged or deleted
			continue
		}
		var event Event
		if err := json.Unmarshal(raw.Data, &event); err != nil {
			logger.Warn("Skipping undecodable stream message", "seq", seq, "error", err)
			continue
		}
		events = append(events, event)
	}
	return events
}

func (b *jetStreamBridge) close() {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	b.closeAll()
	if b.nc != nil {
		b.nc.Close()
	}
}

// NATSPubSub mirrors events through an external NATS JetStream server
type NATSPubSub struct {
	*jetStreamBridge
}

// NewNATSPubSub connects to natsURL and binds to subject within streamName.
// An empty streamName uses DefaultStreamName.
func NewNATSPubSub(natsURL, subject, streamName string) (*NATSPubSub, error) {
	if streamName == "" {
		streamName = DefaultStreamName
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("chat-mock"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("Disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("Reconnected to NATS", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	bridge, err := newJetStreamBridge(nc, "NATS", nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{subject},
		Storage:  nats.FileStorage,
		MaxMsgs:  DefaultStreamMaxMsgs,
	})
	if err != nil {
		nc.Close()
		return nil, err
	}

	logger.Info("Connected to NATS", "url", natsURL, "stream", streamName, "subject", subject)
	return &NATSPubSub{jetStreamBridge: bridge}, nil
}

// Close unsubscribes and closes the NATS connection
func (p *NATSPubSub) Close() {
	p.close()
}
