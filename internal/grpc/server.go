package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Billy-Davies-2/chat-mock/internal/chat"
	"github.com/Billy-Davies-2/chat-mock/internal/logger"
	"github.com/Billy-Davies-2/chat-mock/internal/pubsub"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Server implements the MockClient gRPC service on top of a chat.MockClient
type Server struct {
	client *chat.MockClient
	pubsub *pubsub.PubSub
}

var _ MockClientServer = (*Server)(nil)

// NewServer creates a new gRPC server
func NewServer(client *chat.MockClient, ps *pubsub.PubSub) *Server {
	return &Server{
		client: client,
		pubsub: ps,
	}
}

// Publish expects {channel, message} and answers {timetoken}
func (s *Server) Publish(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	channel, err := requiredString(req, "channel")
	if err != nil {
		return nil, err
	}

	logger.Info("gRPC: Publishing message", "channel", channel)
	resp, err := s.client.Publish(chat.PublishParams{Channel: channel, Message: field(req, "message")})
	if err != nil {
		return nil, toStatus("publish", err)
	}
	return structpb.NewStruct(map[string]interface{}{"timetoken": strconv.FormatInt(resp.Timetoken, 10)})
}

// Signal expects {channel, message} and answers {timetoken}
func (s *Server) Signal(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	channel, err := requiredString(req, "channel")
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Signal(chat.SignalParams{Channel: channel, Message: field(req, "message")})
	if err != nil {
		return nil, toStatus("signal", err)
	}
	return structpb.NewStruct(map[string]interface{}{"timetoken": strconv.FormatInt(resp.Timetoken, 10)})
}

// FetchMessages expects {channels | channel, start?, count?}
func (s *Server) FetchMessages(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	params := chat.FetchMessagesParams{Channels: channelsOf(req)}

	var err error
	if params.Start, err = int64Field(req, "start"); err != nil {
		return nil, err
	}
	count, err := int64Field(req, "count")
	if err != nil {
		return nil, err
	}
	params.Count = int(count)

	resp, err := s.client.FetchMessages(params)
	if err != nil {
		return nil, toStatus("fetch messages", err)
	}
	return toStruct(resp)
}

// HereNow expects {channels, channelGroups?}
func (s *Server) HereNow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	resp, err := s.client.HereNow(chat.HereNowParams{
		Channels:      channelsOf(req),
		ChannelGroups: stringList(req, "channelGroups"),
	})
	if err != nil {
		return nil, toStatus("here now", err)
	}
	return toStruct(resp)
}

// AddMessageAction expects {channel, messageTimetoken, action: {type, value}}
func (s *Server) AddMessageAction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	channel, err := requiredString(req, "channel")
	if err != nil {
		return nil, err
	}
	messageTimetoken, err := requiredString(req, "messageTimetoken")
	if err != nil {
		return nil, err
	}

	var action chat.Action
	if a := req.GetFields()["action"].GetStructValue(); a != nil {
		action.Type = a.GetFields()["type"].GetStringValue()
		action.Value = a.GetFields()["value"].GetStringValue()
	}
	if action.Type == "" {
		return nil, status.Error(codes.InvalidArgument, "action.type is required")
	}

	logger.Info("gRPC: Adding message action", "channel", channel, "type", action.Type)
	resp, err := s.client.AddMessageAction(chat.AddMessageActionParams{
		Channel:          channel,
		MessageTimetoken: messageTimetoken,
		Action:           action,
	})
	if err != nil {
		return nil, toStatus("add message action", err)
	}
	return toStruct(resp)
}

// RemoveMessageAction expects {channel, messageTimetoken, actionTimetoken}
func (s *Server) RemoveMessageAction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actionTimetoken, err := requiredString(req, "actionTimetoken")
	if err != nil {
		return nil, err
	}

	logger.Info("gRPC: Removing message action", "action_timetoken", actionTimetoken)
	resp, err := s.client.RemoveMessageAction(chat.RemoveMessageActionParams{
		Channel:          req.GetFields()["channel"].GetStringValue(),
		MessageTimetoken: req.GetFields()["messageTimetoken"].GetStringValue(),
		ActionTimetoken:  actionTimetoken,
	})
	if err != nil {
		return nil, toStatus("remove message action", err)
	}
	return toStruct(resp)
}

// StreamEvents streams bus events as {type, payload}. An optional {types: [...]} narrows the stream.
func (s *Server) StreamEvents(req *structpb.Struct, stream MockClient_StreamEventsServer) error {
	wanted := map[string]bool{}
	for _, t := range stringList(req, "types") {
		wanted[t] = true
	}

	logger.Debug("gRPC: New client connected to event stream", "types", len(wanted))
	eventChan := s.pubsub.Subscribe()
	defer s.pubsub.Unsubscribe(eventChan)

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return nil
			}
			if len(wanted) > 0 && !wanted[event.Type] {
				continue
			}
			msg, err := eventStruct(event)
			if err != nil {
				logger.Warn("gRPC: Dropping unencodable event", "type", event.Type, "error", err)
				continue
			}
			if err := stream.Send(msg); err != nil {
				logger.Error("gRPC: Failed to send event to stream", "error", err)
				return err
			}
		case <-stream.Context().Done():
			logger.Debug("gRPC: Client disconnected from event stream")
			return nil
		}
	}
}

// CodeFor maps mock client errors to gRPC codes
func CodeFor(err error) codes.Code {
	switch {
	case errors.Is(err, chat.ErrActionNotFound), errors.Is(err, chat.ErrUUIDNotFound):
		return codes.NotFound
	case errors.Is(err, chat.ErrMissingHandler):
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

func toStatus(op string, err error) error {
	code := CodeFor(err)
	if code == codes.Internal {
		logger.Error("gRPC: Mock client call failed", "op", op, "error", err)
	} else {
		logger.Warn("gRPC: Mock client call rejected", "op", op, "error", err)
	}
	return status.Error(code, err.Error())
}

func eventStruct(event pubsub.Event) (*structpb.Struct, error) {
	payload := event.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return structpb.NewStruct(map[string]interface{}{
		"type":    event.Type,
		"payload": payload,
	})
}

// toStruct converts a response model through its JSON form, so field names match the HTTP API
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func field(req *structpb.Struct, name string) interface{} {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil
	}
	return v.AsInterface()
}

func requiredString(req *structpb.Struct, name string) (string, error) {
	s := req.GetFields()[name].GetStringValue()
	if s == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return s, nil
}

// int64Field accepts a number or a decimal string; timetokens need the string form to stay exact
func int64Field(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(kind.StringValue, 10, 64)
		if err != nil {
			return 0, status.Errorf(codes.InvalidArgument, "%s: %v", name, err)
		}
		return n, nil
	case *structpb.Value_NumberValue:
		return int64(kind.NumberValue), nil
	case *structpb.Value_NullValue:
		return 0, nil
	default:
		return 0, status.Error(codes.InvalidArgument, fmt.Sprintf("%s must be a number or string", name))
	}
}

func stringList(req *structpb.Struct, name string) []string {
	var out []string
	for _, v := range req.GetFields()[name].GetListValue().GetValues() {
		if s := v.GetStringValue(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func channelsOf(req *structpb.Struct) []string {
	if channels := stringList(req, "channels"); len(channels) > 0 {
		return channels
	}
	if c := req.GetFields()["channel"].GetStringValue(); c != "" {
		return []string{c}
	}
	return nil
}
