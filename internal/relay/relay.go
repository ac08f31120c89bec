// Package relay mirrors the mock client's listener events onto the event bus.
package relay

import (
	"context"
	"time"

	"github.com/Billy-Davies-2/chat-mock/internal/chat"
	"github.com/Billy-Davies-2/chat-mock/internal/logger"
	"github.com/Billy-Davies-2/chat-mock/internal/models"
	"github.com/Billy-Davies-2/chat-mock/internal/pubsub"
)

// Publisher is the part of the bus the relay writes to
type Publisher interface {
	Publish(pubsub.Event)
}

// ActionRecorder stores message action events for analytics
type ActionRecorder interface {
	RecordMessageAction(ctx context.Context, action models.MessageAction) error
}

// Relay turns listener callbacks into bus events
type Relay struct {
	bus           Publisher
	recorder      ActionRecorder
	recordTimeout time.Duration
}

// New creates a relay. recorder may be nil.
func New(bus Publisher, recorder ActionRecorder) *Relay {
	return &Relay{
		bus:           bus,
		recorder:      recorder,
		recordTimeout: 5 * time.Second,
	}
}

// Attach registers the relay's message, signal and messageAction listeners on the client
func (r *Relay) Attach(client *chat.MockClient) {
	client.AddListener(r.Listeners())
	logger.Info("Relay attached", "uuid", client.UUID())
}

// Listeners returns the handlers the relay installs
func (r *Relay) Listeners() chat.Listeners {
	return chat.Listeners{
		Message:       r.onMessage,
		Signal:        r.onSignal,
		MessageAction: r.onMessageAction,
	}
}

func (r *Relay) onMessage(msg models.Message) {
	r.forward(pubsub.TypeMessage, msg)
}

func (r *Relay) onSignal(sig models.SignalEvent) {
	r.forward(pubsub.TypeSignal, sig)
}

func (r *Relay) onMessageAction(action models.MessageAction) {
	r.forward(pubsub.TypeAction, action)

	if r.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.recordTimeout)
	defer cancel()
	if err := r.recorder.RecordMessageAction(ctx, action); err != nil {
		logger.Error("Failed to record message action", "error", err, "action_timetoken", action.Data.ActionTimetoken)
	}
}

func (r *Relay) forward(eventType string, v interface{}) {
	event, err := pubsub.NewEvent(eventType, v)
	if err != nil {
		logger.Error("Failed to build bus event", "error", err, "type", eventType)
		return
	}
	r.bus.Publish(event)
}
