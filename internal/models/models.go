package models

// ActionEvent tags a message action as live or withdrawn
type ActionEvent string

const (
	ActionAdded   ActionEvent = "added"
	ActionRemoved ActionEvent = "removed"
)

// ActionRef records who attached an action to a message
type ActionRef struct {
	UUID            string `json:"uuid" yaml:"uuid"`
	ActionTimetoken string `json:"actionTimetoken" yaml:"actionTimetoken"`
}

// Message represents a published chat message; it is also the payload of the "message" listener
type Message struct {
	Channel           string                            `json:"channel" yaml:"channel"`
	ActualChannel     string                            `json:"actualChannel,omitempty" yaml:"actualChannel,omitempty"`
	SubscribedChannel string                            `json:"subscribedChannel,omitempty" yaml:"subscribedChannel,omitempty"`
	Message           interface{}                       `json:"message" yaml:"message"`
	Timetoken         string                            `json:"timetoken" yaml:"timetoken"`
	Publisher         string                            `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Subscription      *string                           `json:"subscription" yaml:"subscription,omitempty"`
	UUID              string                            `json:"uuid" yaml:"uuid"`
	Actions           map[string]map[string][]ActionRef `json:"actions" yaml:"actions,omitempty"`
}

// SignalEvent is a transient message delivered to the "signal" listener
type SignalEvent struct {
	Channel      string      `json:"channel"`
	Subscription *string     `json:"subscription"`
	Timetoken    string      `json:"timetoken"`
	Message      interface{} `json:"message"`
	Publisher    string      `json:"publisher"`
}

// MessageActionData is the action body shared by events and responses
type MessageActionData struct {
	MessageTimetoken string `json:"messageTimetoken"`
	ActionTimetoken  string `json:"actionTimetoken"`
	Type             string `json:"type"`
	UUID             string `json:"uuid"`
	Value            string `json:"value"`
}

// MessageAction represents a reaction or receipt attached to a message
type MessageAction struct {
	Channel   string            `json:"channel"`
	Data      MessageActionData `json:"data"`
	Event     ActionEvent       `json:"event"`
	Publisher string            `json:"publisher"`
	Timetoken string            `json:"timetoken"`
}

// PresenceEvent represents a join/leave notification
type PresenceEvent struct {
	Action    string `json:"action"`
	Channel   string `json:"channel"`
	Occupancy int    `json:"occupancy"`
	Timetoken string `json:"timetoken"`
	UUID      string `json:"uuid"`
}

// StatusEvent represents a connection status notification
type StatusEvent struct {
	Category         string   `json:"category"`
	AffectedChannels []string `json:"affectedChannels,omitempty"`
}

// Occupant is a single identity present on a channel
type Occupant struct {
	UUID string `json:"uuid"`
}

// ChannelPresence is the presence block for one channel
type ChannelPresence struct {
	Name      string     `json:"name"`
	Occupancy int        `json:"occupancy"`
	Occupants []Occupant `json:"occupants"`
}

// HereNowResponse is the result of a presence query
type HereNowResponse struct {
	TotalChannels  int                        `json:"totalChannels"`
	TotalOccupancy int                        `json:"totalOccupancy"`
	Channels       map[string]ChannelPresence `json:"channels"`
}

// FetchMessagesResponse is a page of history keyed by channel
type FetchMessagesResponse struct {
	Channels map[string][]Message `json:"channels"`
}

// PublishResponse carries the timetoken assigned to a published message
type PublishResponse struct {
	Timetoken int64 `json:"timetoken"`
}

// SignalResponse carries the timetoken assigned to a signal
type SignalResponse struct {
	Timetoken int64 `json:"timetoken"`
}

// AddMessageActionResponse wraps the stored action data
type AddMessageActionResponse struct {
	Data MessageActionData `json:"data"`
}

// RemoveMessageActionResponse is an empty success payload
type RemoveMessageActionResponse struct {
	Data struct{} `json:"data"`
}

// User is a sample user record (UUID metadata)
type User struct {
	ID         string                 `json:"id" yaml:"id"`
	Name       string                 `json:"name" yaml:"name"`
	Email      string                 `json:"email,omitempty" yaml:"email,omitempty"`
	ProfileURL string                 `json:"profileUrl,omitempty" yaml:"profileUrl,omitempty"`
	Custom     map[string]interface{} `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// Channel is a sample channel record (channel metadata)
type Channel struct {
	ID          string                 `json:"id" yaml:"id"`
	Name        string                 `json:"name" yaml:"name"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Custom      map[string]interface{} `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// Membership links the client identity to a channel
type Membership struct {
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
}

// ReactionCount is the number of live actions of one type/value on a channel
type ReactionCount struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Count int64  `json:"count"`
}
