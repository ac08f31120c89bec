package chat

// PublishParams are the arguments to Publish
type PublishParams struct {
	Channel string
	Message interface{}
}

// SignalParams are the arguments to Signal
type SignalParams struct {
	Channel string
	Message interface{}
}

// FetchMessagesParams are the arguments to FetchMessages. Only Channels[0] is honored.
// Start of zero means no upper bound; Count of zero means DefaultFetchCount.
type FetchMessagesParams struct {
	Channels []string
	Start    int64
	Count    int
}

// HereNowParams are the arguments to HereNow
type HereNowParams struct {
	Channels      []string
	ChannelGroups []string
}

// Action is the type/value pair attached by AddMessageAction
type Action struct {
	Type  string
	Value string
}

// AddMessageActionParams are the arguments to AddMessageAction
type AddMessageActionParams struct {
	Channel          string
	MessageTimetoken string
	Action           Action
}

// RemoveMessageActionParams are the arguments to RemoveMessageAction.
// The action is located by ActionTimetoken alone.
type RemoveMessageActionParams struct {
	Channel          string
	MessageTimetoken string
	ActionTimetoken  string
}

// SubscribeParams are accepted and ignored
type SubscribeParams struct {
	Channels      []string
	ChannelGroups []string
	WithPresence  bool
	Timetoken     string
}

// UnsubscribeParams are accepted and ignored
type UnsubscribeParams struct {
	Channels      []string
	ChannelGroups []string
}
