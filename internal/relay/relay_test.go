package relay

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/Billy-Davies-2/chat-mock/internal/chat"
	"github.com/Billy-Davies-2/chat-mock/internal/dal"
	"github.com/Billy-Davies-2/chat-mock/internal/logger"
	"github.com/Billy-Davies-2/chat-mock/internal/mocks"
	"github.com/Billy-Davies-2/chat-mock/internal/models"
	"github.com/Billy-Davies-2/chat-mock/internal/pubsub"
)

func init() {
	logger.Init()
}

func setup(t *testing.T) (*chat.MockClient, chan pubsub.Event, *mocks.MockClickHouseClient) {
	t.Helper()

	client, err := chat.NewMockClient(dal.NewMemoryDAL(), chat.Options{})
	if err != nil {
		t.Fatalf("NewMockClient() failed: %v", err)
	}
	bus := pubsub.New()
	recorder := mocks.NewMockClickHouseClient()

	New(bus, recorder).Attach(client)
	return client, bus.Subscribe(), recorder
}

func next(t *testing.T, ch chan pubsub.Event) pubsub.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for bus event")
		return pubsub.Event{}
	}
}

func TestRelayPublish(t *testing.T) {
	client, events, _ := setup(t)

	resp, err := client.Publish(chat.PublishParams{Channel: "general", Message: map[string]interface{}{"text": "hi"}})
	if err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	ev := next(t, events)
	if ev.Type != pubsub.TypeMessage {
		t.Fatalf("expected %s, got %s", pubsub.TypeMessage, ev.Type)
	}
	if ev.Payload["channel"] != "general" || ev.Payload["publisher"] != client.UUID() {
		t.Errorf("unexpected payload: %+v", ev.Payload)
	}
	if ev.Payload["timetoken"] != strconv.FormatInt(resp.Timetoken, 10) {
		t.Errorf("event timetoken %v does not match response %d", ev.Payload["timetoken"], resp.Timetoken)
	}
}

func TestRelaySignal(t *testing.T) {
	client, events, _ := setup(t)

	if _, err := client.Signal(chat.SignalParams{Channel: "general", Message: "typing"}); err != nil {
		t.Fatalf("Signal() failed: %v", err)
	}

	ev := next(t, events)
	if ev.Type != pubsub.TypeSignal || ev.Payload["message"] != "typing" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestRelayActionsAreRecorded(t *testing.T) {
	client, events, recorder := setup(t)

	added, err := client.AddMessageAction(chat.AddMessageActionParams{
		Channel:          "general",
		MessageTimetoken: "16165851271766362",
		Action:           chat.Action{Type: "reaction", Value: "smiley_face"},
	})
	if err != nil {
		t.Fatalf("AddMessageAction() failed: %v", err)
	}
	if ev := next(t, events); ev.Type != pubsub.TypeAction || ev.Payload["event"] != "added" {
		t.Errorf("unexpected add event: %+v", ev)
	}

	counts, _ := recorder.ReactionCounts(context.Background(), "general")
	if len(counts) != 1 || counts[0].Count != 1 || counts[0].Value != "smiley_face" {
		t.Fatalf("unexpected counts after add: %+v", counts)
	}

	_, err = client.RemoveMessageAction(chat.RemoveMessageActionParams{
		Channel:          "general",
		MessageTimetoken: "16165851271766362",
		ActionTimetoken:  added.Data.ActionTimetoken,
	})
	if err != nil {
		t.Fatalf("RemoveMessageAction() failed: %v", err)
	}
	if ev := next(t, events); ev.Payload["event"] != "removed" {
		t.Errorf("unexpected remove event: %+v", ev)
	}

	recorded := recorder.Recorded()
	if len(recorded) != 2 || recorded[1].Event != models.ActionRemoved {
		t.Errorf("expected add then remove recorded, got %+v", recorded)
	}
	if counts, _ := recorder.ReactionCounts(context.Background(), "general"); len(counts) != 0 {
		t.Errorf("expected no live reactions, got %+v", counts)
	}
}

type failingRecorder struct{ calls int }

func (f *failingRecorder) RecordMessageAction(context.Context, models.MessageAction) error {
	f.calls++
	return errors.New("clickhouse down")
}

func TestRelayRecorderFailureDoesNotFailAction(t *testing.T) {
	client, err := chat.NewMockClient(dal.NewMemoryDAL(), chat.Options{})
	if err != nil {
		t.Fatal(err)
	}
	bus := pubsub.New()
	events := bus.Subscribe()
	recorder := &failingRecorder{}
	New(bus, recorder).Attach(client)

	_, err = client.AddMessageAction(chat.AddMessageActionParams{Channel: "general", MessageTimetoken: "1", Action: chat.Action{Type: "receipt", Value: "read"}})
	if err != nil {
		t.Fatalf("AddMessageAction() should succeed even when recording fails: %v", err)
	}
	next(t, events)
	if recorder.calls != 1 {
		t.Errorf("expected one record attempt, got %d", recorder.calls)
	}
}

func TestRelayWithoutRecorder(t *testing.T) {
	client, err := chat.NewMockClient(dal.NewMemoryDAL(), chat.Options{})
	if err != nil {
		t.Fatal(err)
	}
	bus := pubsub.New()
	events := bus.Subscribe()
	New(bus, nil).Attach(client)

	if _, err := client.AddMessageAction(chat.AddMessageActionParams{Channel: "general", MessageTimetoken: "1", Action: chat.Action{Type: "reaction", Value: "+1"}}); err != nil {
		t.Fatal(err)
	}
	if ev := next(t, events); ev.Type != pubsub.TypeAction {
		t.Errorf("expected action event, got %s", ev.Type)
	}
}

func TestListenersLeavePresenceAndStatusEmpty(t *testing.T) {
	l := New(pubsub.New(), nil).Listeners()
	if l.Presence != nil || l.Status != nil {
		t.Error("relay should only claim message, signal and messageAction")
	}
	if got := len(l.Registered()); got != 3 {
		t.Errorf("expected 3 registered events, got %d", got)
	}
}
