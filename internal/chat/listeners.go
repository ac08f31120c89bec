package chat

import "github.com/Billy-Davies-2/chat-mock/internal/models"

// EventName identifies a listener slot
type EventName string

const (
	EventMessage       EventName = "message"
	EventSignal        EventName = "signal"
	EventMessageAction EventName = "messageAction"
	EventPresence      EventName = "presence"
	EventStatus        EventName = "status"
)

// Listeners holds at most one handler per event. A nil field leaves the slot untouched on AddListener.
type Listeners struct {
	Message       func(models.Message)
	Signal        func(models.SignalEvent)
	MessageAction func(models.MessageAction)
	Presence      func(models.PresenceEvent)
	Status        func(models.StatusEvent)
}

// merge overwrites every slot that other sets
func (l *Listeners) merge(other Listeners) {
	if other.Message != nil {
		l.Message = other.Message
	}
	if other.Signal != nil {
		l.Signal = other.Signal
	}
	if other.MessageAction != nil {
		l.MessageAction = other.MessageAction
	}
	if other.Presence != nil {
		l.Presence = other.Presence
	}
	if other.Status != nil {
		l.Status = other.Status
	}
}

// Registered lists the events that currently have a handler
func (l Listeners) Registered() []EventName {
	var names []EventName
	if l.Message != nil {
		names = append(names, EventMessage)
	}
	if l.Signal != nil {
		names = append(names, EventSignal)
	}
	if l.MessageAction != nil {
		names = append(names, EventMessageAction)
	}
	if l.Presence != nil {
		names = append(names, EventPresence)
	}
	if l.Status != nil {
		names = append(names, EventStatus)
	}
	return names
}
