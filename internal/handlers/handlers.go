package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Billy-Davies-2/chat-mock/internal/chat"
	"github.com/Billy-Davies-2/chat-mock/internal/logger"
	"github.com/Billy-Davies-2/chat-mock/internal/models"
	"github.com/Billy-Davies-2/chat-mock/internal/pubsub"
)

const maxBodyBytes = 1 << 20

// ReactionSource answers live reaction counts per channel
type ReactionSource interface {
	ReactionCounts(ctx context.Context, channel string) ([]models.ReactionCount, error)
}

// APIHandlers contains all API handler methods
type APIHandlers struct {
	client    *chat.MockClient
	pubsub    *pubsub.PubSub
	reactions ReactionSource
}

// NewAPIHandlers creates a new API handlers instance. reactions may be nil.
func NewAPIHandlers(client *chat.MockClient, ps *pubsub.PubSub, reactions ReactionSource) *APIHandlers {
	return &APIHandlers{
		client:    client,
		pubsub:    ps,
		reactions: reactions,
	}
}

// Register mounts every API route on mux
func (h *APIHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/uuid", h.GetUUID)
	mux.HandleFunc("/api/subscriptions", h.ListSubscriptions)

	mux.HandleFunc("/api/publish", h.Publish)
	mux.HandleFunc("/api/signal", h.Signal)
	mux.HandleFunc("/api/history", h.History)
	mux.HandleFunc("/api/presence", h.Presence)

	mux.HandleFunc("/api/actions/add", h.AddAction)
	mux.HandleFunc("/api/actions/remove", h.RemoveAction)
	mux.HandleFunc("/api/reactions", h.Reactions)

	mux.HandleFunc("/api/objects/users", h.ListUsers)
	mux.HandleFunc("/api/objects/users/get", h.GetUser)
	mux.HandleFunc("/api/objects/channels", h.ListChannels)
	mux.HandleFunc("/api/objects/members", h.ListMembers)
	mux.HandleFunc("/api/objects/memberships", h.ListMemberships)

	mux.HandleFunc("/api/events", h.EventsSSE)
}

// GetUUID returns the client identity
func (h *APIHandlers) GetUUID(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"uuid": h.client.UUID()})
}

// ListSubscriptions returns the subscribed channels and channel groups
func (h *APIHandlers) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"channels":      h.client.SubscribedChannels(),
		"channelGroups": h.client.SubscribedChannelGroups(),
	})
}

type publishRequest struct {
	Channel string      `json:"channel"`
	Message interface{} `json:"message"`
}

// Publish publishes a message through the mock client
func (h *APIHandlers) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if !decodePost(w, r, &req) {
		return
	}
	if req.Channel == "" {
		http.Error(w, "channel is required", http.StatusBadRequest)
		return
	}

	logger.Info("Publishing message", "channel", req.Channel)
	resp, err := h.client.Publish(chat.PublishParams{Channel: req.Channel, Message: req.Message})
	if err != nil {
		writeError(w, "publish", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Signal sends a transient signal through the mock client
func (h *APIHandlers) Signal(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if !decodePost(w, r, &req) {
		return
	}
	if req.Channel == "" {
		http.Error(w, "channel is required", http.StatusBadRequest)
		return
	}

	resp, err := h.client.Signal(chat.SignalParams{Channel: req.Channel, Message: req.Message})
	if err != nil {
		writeError(w, "signal", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// History returns a page of messages: ?channel=&start=&count=
func (h *APIHandlers) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	channel := q.Get("channel")
	if channel == "" {
		http.Error(w, "channel is required", http.StatusBadRequest)
		return
	}

	params := chat.FetchMessagesParams{Channels: []string{channel}}
	if s := q.Get("start"); s != "" {
		start, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			http.Error(w, "start must be a timetoken", http.StatusBadRequest)
			return
		}
		params.Start = start
	}
	if s := q.Get("count"); s != "" {
		count, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "count must be an integer", http.StatusBadRequest)
			return
		}
		params.Count = count
	}

	resp, err := h.client.FetchMessages(params)
	if err != nil {
		writeError(w, "fetch messages", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Presence returns occupancy for ?channels=a,b
func (h *APIHandlers) Presence(w http.ResponseWriter, r *http.Request) {
	var channels []string
	for _, c := range strings.Split(r.URL.Query().Get("channels"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			channels = append(channels, c)
		}
	}

	resp, err := h.client.HereNow(chat.HereNowParams{Channels: channels})
	if err != nil {
		writeError(w, "here now", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddAction attaches a reaction or receipt to a message
func (h *APIHandlers) AddAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel          string `json:"channel"`
		MessageTimetoken string `json:"messageTimetoken"`
		Type             string `json:"type"`
		Value            string `json:"value"`
	}
	if !decodePost(w, r, &req) {
		return
	}
	if req.Channel == "" || req.MessageTimetoken == "" || req.Type == "" {
		http.Error(w, "channel, messageTimetoken and type are required", http.StatusBadRequest)
		return
	}

	logger.Info("Adding message action", "channel", req.Channel, "message_timetoken", req.MessageTimetoken, "type", req.Type)
	resp, err := h.client.AddMessageAction(chat.AddMessageActionParams{
		Channel:          req.Channel,
		MessageTimetoken: req.MessageTimetoken,
		Action:           chat.Action{Type: req.Type, Value: req.Value},
	})
	if err != nil {
		writeError(w, "add message action", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RemoveAction withdraws an action by its action timetoken
func (h *APIHandlers) RemoveAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel          string `json:"channel"`
		MessageTimetoken string `json:"messageTimetoken"`
		ActionTimetoken  string `json:"actionTimetoken"`
	}
	if !decodePost(w, r, &req) {
		return
	}
	if req.ActionTimetoken == "" {
		http.Error(w, "actionTimetoken is required", http.StatusBadRequest)
		return
	}

	logger.Info("Removing message action", "channel", req.Channel, "action_timetoken", req.ActionTimetoken)
	resp, err := h.client.RemoveMessageAction(chat.RemoveMessageActionParams{
		Channel:          req.Channel,
		MessageTimetoken: req.MessageTimetoken,
		ActionTimetoken:  req.ActionTimetoken,
	})
	if err != nil {
		writeError(w, "remove message action", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reactions returns live reaction counts for ?channel=
func (h *APIHandlers) Reactions(w http.ResponseWriter, r *http.Request) {
	if h.reactions == nil {
		http.Error(w, "reaction analytics not configured", http.StatusServiceUnavailable)
		return
	}
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		http.Error(w, "channel is required", http.StatusBadRequest)
		return
	}

	counts, err := h.reactions.ReactionCounts(r.Context(), channel)
	if err != nil {
		logger.Error("Failed to load reaction counts", "error", err, "channel", channel)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"channel": channel, "reactions": counts})
}

// ListUsers returns every fixture user
func (h *APIHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": h.client.GetAllUUIDMetadata()})
}

// GetUser returns one fixture user by ?uuid=, defaulting to the client identity
func (h *APIHandlers) GetUser(w http.ResponseWriter, r *http.Request) {
	uuid := r.URL.Query().Get("uuid")
	if uuid == "" {
		uuid = h.client.UUID()
	}

	user, err := h.client.GetUUIDMetadata(uuid)
	if err != nil {
		writeError(w, "get uuid metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": user})
}

// ListChannels returns every fixture channel
func (h *APIHandlers) ListChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": h.client.GetAllChannelMetadata()})
}

// ListMembers returns the members of ?channel=
func (h *APIHandlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		http.Error(w, "channel is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": h.client.GetChannelMembers(channel)})
}

// ListMemberships returns the channels the client belongs to
func (h *APIHandlers) ListMemberships(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": h.client.GetMemberships()})
}

// EventsSSE streams bus events. ?replay=N first sends up to N retained events.
func (h *APIHandlers) EventsSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	eventChan := h.pubsub.Subscribe()
	defer h.pubsub.Unsubscribe(eventChan)

	flush := func() {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}

	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n")
	if n, err := strconv.Atoi(r.URL.Query().Get("replay")); err == nil {
		for _, event := range h.pubsub.Recent(n) {
			writeSSE(w, event)
		}
	}
	flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			writeSSE(w, event)
			flush()
		case <-r.Context().Done():
			logger.Debug("SSE client disconnected")
			return
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event pubsub.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Warn("Dropping unencodable event", "type", event.Type, "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// decodePost enforces POST and decodes a bounded JSON body, writing the error response itself
func decodePost(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Warn("Failed to decode request", "path", r.URL.Path, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// StatusFor maps mock client errors to HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrActionNotFound), errors.Is(err, chat.ErrUUIDNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrMissingHandler):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Mock client call failed", "op", op, "error", err)
	} else {
		logger.Warn("Mock client call rejected", "op", op, "error", err)
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", "error", err)
	}
}
