package chat

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Billy-Davies-2/chat-mock/internal/dal"
	"github.com/Billy-Davies-2/chat-mock/internal/logger"
	"github.com/Billy-Davies-2/chat-mock/internal/models"
)

const (
	// DefaultUUID is the identity a client takes when none is configured
	DefaultUUID = "user_63ea15931d8541a3bd35e5b1f09087dc"

	// DefaultFetchCount is the page size used when FetchMessages is called with Count 0
	DefaultFetchCount = 100
)

var (
	defaultSubscribedChannels = []string{"space_ce466f2e445c38976168ba78e46"}

	defaultOccupants = []string{
		"user_732277cad5264ed48172c40f0f008104",
		"user_a673547880824a0687b3041af36a5de4",
		"user_2ada61d287aa42b59d620c474493474f",
		"user_5500315bf0a34f9b9dfa0e4fffcf49c2",
	}

	defaultMemberships = []string{
		"space_ac4e67b98b34b44c4a39466e93e",
		"space_c1ee1eda28554d0a34f9b9df5cfe",
		"space_ce466f2e445c38976168ba78e46",
		"space_a204f87d215a40985d35cf84bf5",
		"space_149e60f311749f2a7c6515f7b34",
	}
)

// Options tunes a MockClient. Zero values select the built-in sample identities.
type Options struct {
	UUID               string
	SubscribedChannels []string
	// Occupants lists everyone present besides the client itself
	Occupants   []string
	Memberships []string
	Now         func() time.Time
}

// MockClient is an in-memory stand-in for a real-time chat client.
// Publish, Signal and message action calls echo straight back through the registered listeners.
//
// State is guarded by mu, which is released before a listener runs, so listeners may call back into the client.
type MockClient struct {
	uuid               string
	subscribedChannels []string
	occupants          []string
	memberships        []string

	mu        sync.RWMutex
	listeners Listeners
	messages  []models.Message
	actions   []models.MessageAction
	clock     timetokenClock

	users    []models.User
	channels []models.Channel
}

// NewMockClient creates a client seeded from the fixture collections
func NewMockClient(fixtures dal.FixtureDAL, opts Options) (*MockClient, error) {
	users, err := fixtures.Users()
	if err != nil {
		return nil, fmt.Errorf("failed to load fixture users: %w", err)
	}
	channels, err := fixtures.Channels()
	if err != nil {
		return nil, fmt.Errorf("failed to load fixture channels: %w", err)
	}
	messages, err := fixtures.Messages()
	if err != nil {
		return nil, fmt.Errorf("failed to load fixture messages: %w", err)
	}
	messages, err = orderSeedMessages(messages)
	if err != nil {
		return nil, err
	}

	if opts.UUID == "" {
		opts.UUID = DefaultUUID
	}
	if opts.SubscribedChannels == nil {
		opts.SubscribedChannels = defaultSubscribedChannels
	}
	if opts.Occupants == nil {
		opts.Occupants = defaultOccupants
	}
	if opts.Memberships == nil {
		opts.Memberships = defaultMemberships
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &MockClient{
		uuid:               opts.UUID,
		subscribedChannels: append([]string(nil), opts.SubscribedChannels...),
		occupants:          append([]string{opts.UUID}, opts.Occupants...),
		memberships:        append([]string(nil), opts.Memberships...),
		messages:           messages,
		actions:            []models.MessageAction{},
		clock:              timetokenClock{now: opts.Now},
		users:              models.CloneUsers(users),
		channels:           models.CloneChannels(channels),
	}

	for _, m := range messages {
		c.clock.observe(m.Timetoken)
	}

	logger.Debug("Mock client created", "uuid", c.uuid, "seed_messages", len(messages), "users", len(users), "channels", len(channels))
	return c, nil
}

// AddListener merges handlers into the registry; a set field replaces the previous handler for that event
func (c *MockClient) AddListener(l Listeners) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners.merge(l)
	logger.Debug("Mock client: listeners updated", "registered", c.listeners.Registered())
}

// UUID returns the client's identity
func (c *MockClient) UUID() string {
	return c.uuid
}

// SubscribedChannels returns the fixed synthetic subscription list
func (c *MockClient) SubscribedChannels() []string {
	return append([]string(nil), c.subscribedChannels...)
}

// SubscribedChannelGroups always returns an empty list
func (c *MockClient) SubscribedChannelGroups() []string {
	return []string{}
}

// Subscribe is accepted and ignored
func (c *MockClient) Subscribe(params SubscribeParams) bool {
	logger.Debug("Mock client: subscribe ignored", "channels", params.Channels)
	return true
}

// Unsubscribe is accepted and ignored
func (c *MockClient) Unsubscribe(params UnsubscribeParams) bool {
	logger.Debug("Mock client: unsubscribe ignored", "channels", params.Channels)
	return true
}

// Stop is accepted and ignored
func (c *MockClient) Stop() bool {
	return true
}

// Publish appends a message to the history and hands it to the "message" listener.
// Without a message listener nothing is stored and ErrMissingHandler is returned.
func (c *MockClient) Publish(params PublishParams) (*models.PublishResponse, error) {
	c.mu.Lock()
	handler := c.listeners.Message
	if handler == nil {
		c.mu.Unlock()
		return nil, missingHandler(EventMessage)
	}

	tt := c.clock.next()
	msg := models.Message{
		Channel:           params.Channel,
		ActualChannel:     params.Channel,
		SubscribedChannel: params.Channel,
		Message:           params.Message,
		Timetoken:         formatTimetoken(tt),
		Publisher:         c.uuid,
		UUID:              c.uuid,
		Actions:           map[string]map[string][]models.ActionRef{},
	}
	c.messages = append(c.messages, msg.Clone())
	c.mu.Unlock()

	logger.Debug("Mock client: published", "channel", params.Channel, "timetoken", msg.Timetoken)
	handler(msg.Clone())

	return &models.PublishResponse{Timetoken: tt}, nil
}

// Signal hands a transient message to the "signal" listener; signals are never stored
func (c *MockClient) Signal(params SignalParams) (*models.SignalResponse, error) {
	c.mu.Lock()
	handler := c.listeners.Signal
	if handler == nil {
		c.mu.Unlock()
		return nil, missingHandler(EventSignal)
	}
	tt := c.clock.next()
	c.mu.Unlock()

	handler(models.SignalEvent{
		Channel:   params.Channel,
		Timetoken: formatTimetoken(tt),
		Message:   params.Message,
		Publisher: c.uuid,
	})

	return &models.SignalResponse{Timetoken: tt}, nil
}

// FetchMessages returns the newest Count messages of the first requested channel,
// oldest first, optionally limited to messages strictly older than Start
func (c *MockClient) FetchMessages(params FetchMessagesParams) (*models.FetchMessagesResponse, error) {
	resp := &models.FetchMessagesResponse{Channels: map[string][]models.Message{}}
	if len(params.Channels) == 0 {
		return resp, nil
	}
	channel := params.Channels[0]

	count := params.Count
	if count == 0 {
		count = DefaultFetchCount
	}

	c.mu.RLock()
	matched := []models.Message{}
	for _, m := range c.messages {
		if m.Channel != channel {
			continue
		}
		if params.Start != 0 {
			tt, err := strconv.ParseInt(m.Timetoken, 10, 64)
			if err != nil || tt >= params.Start {
				continue
			}
		}
		matched = append(matched, m.Clone())
	}
	c.mu.RUnlock()

	if count < 0 {
		count = 0
	}
	if len(matched) > count {
		matched = matched[len(matched)-count:]
	}

	resp.Channels[channel] = matched
	return resp, nil
}

// HereNow answers from the fixed occupant list regardless of subscriptions.
// Only the first channel gets an entry; TotalChannels counts what was asked for.
func (c *MockClient) HereNow(params HereNowParams) (*models.HereNowResponse, error) {
	resp := &models.HereNowResponse{
		TotalChannels: len(params.Channels),
		Channels:      map[string]models.ChannelPresence{},
	}
	if len(params.Channels) == 0 {
		return resp, nil
	}

	occupants := make([]models.Occupant, len(c.occupants))
	for i, id := range c.occupants {
		occupants[i] = models.Occupant{UUID: id}
	}

	channel := params.Channels[0]
	resp.TotalOccupancy = len(occupants)
	resp.Channels[channel] = models.ChannelPresence{
		Name:      channel,
		Occupancy: len(occupants),
		Occupants: occupants,
	}
	return resp, nil
}

// AddMessageAction records an "added" action and hands it to the "messageAction" listener
func (c *MockClient) AddMessageAction(params AddMessageActionParams) (*models.AddMessageActionResponse, error) {
	c.mu.Lock()
	handler := c.listeners.MessageAction
	if handler == nil {
		c.mu.Unlock()
		return nil, missingHandler(EventMessageAction)
	}

	token := formatTimetoken(c.clock.next())
	action := models.MessageAction{
		Channel: params.Channel,
		Data: models.MessageActionData{
			MessageTimetoken: params.MessageTimetoken,
			ActionTimetoken:  token,
			Type:             params.Action.Type,
			UUID:             c.uuid,
			Value:            params.Action.Value,
		},
		Event:     models.ActionAdded,
		Publisher: c.uuid,
		Timetoken: token,
	}
	c.actions = append(c.actions, action)
	c.mu.Unlock()

	logger.Debug("Mock client: action added", "channel", params.Channel, "type", action.Data.Type, "action_timetoken", token)
	handler(action)

	return &models.AddMessageActionResponse{Data: action.Data}, nil
}

// RemoveMessageAction withdraws an active action by its action timetoken and hands the
// record, now tagged "removed", to the "messageAction" listener
func (c *MockClient) RemoveMessageAction(params RemoveMessageActionParams) (*models.RemoveMessageActionResponse, error) {
	c.mu.Lock()
	idx := -1
	for i := range c.actions {
		if c.actions[i].Data.ActionTimetoken == params.ActionTimetoken {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, params.ActionTimetoken)
	}

	handler := c.listeners.MessageAction
	if handler == nil {
		c.mu.Unlock()
		return nil, missingHandler(EventMessageAction)
	}

	action := c.actions[idx]
	c.actions = append(c.actions[:idx], c.actions[idx+1:]...)
	c.mu.Unlock()

	action.Event = models.ActionRemoved
	logger.Debug("Mock client: action removed", "channel", action.Channel, "action_timetoken", params.ActionTimetoken)
	handler(action)

	return &models.RemoveMessageActionResponse{}, nil
}

// Messages returns a copy of the message history
func (c *MockClient) Messages() []models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.CloneMessages(c.messages)
}

// Actions returns a copy of the active message actions
func (c *MockClient) Actions() []models.MessageAction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.MessageAction, len(c.actions))
	copy(out, c.actions)
	return out
}

// orderSeedMessages deep-copies seed history and sorts it by numeric timetoken,
// keeping file order for equal tokens
func orderSeedMessages(in []models.Message) ([]models.Message, error) {
	out := models.CloneMessages(in)
	tokens := make([]int64, len(out))
	for i, m := range out {
		tt, err := strconv.ParseInt(m.Timetoken, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("fixture message %d has invalid timetoken %q: %w", i, m.Timetoken, err)
		}
		tokens[i] = tt
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return tokens[idx[a]] < tokens[idx[b]] })

	sorted := make([]models.Message, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted, nil
}
