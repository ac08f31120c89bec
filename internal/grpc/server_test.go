package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/Billy-Davies-2/chat-mock/internal/chat"
	"github.com/Billy-Davies-2/chat-mock/internal/dal"
	"github.com/Billy-Davies-2/chat-mock/internal/logger"
	"github.com/Billy-Davies-2/chat-mock/internal/pubsub"
	"github.com/Billy-Davies-2/chat-mock/internal/relay"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func init() {
	logger.Init()
}

const standup = "space_ce466f2e445c38976168ba78e46"

// dial serves a Server over an in-memory listener and returns a typed client
func dial(t *testing.T, withRelay bool) (*MockClientClient, *grpc.ClientConn) {
	t.Helper()

	client, err := chat.NewMockClient(dal.NewMemoryDAL(), chat.Options{})
	if err != nil {
		t.Fatalf("NewMockClient() failed: %v", err)
	}
	bus := pubsub.New()
	if withRelay {
		relay.New(bus, nil).Attach(client)
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterMockClientServer(srv, NewServer(client, bus))
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient() failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewMockClientClient(conn), conn
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPublishAndFetch(t *testing.T) {
	c, _ := dial(t, true)
	ctx := testContext(t)

	resp, err := c.Publish(ctx, mustStruct(t, map[string]interface{}{
		"channel": "general",
		"message": map[string]interface{}{"text": "hi"},
	}))
	if err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	token := resp.GetFields()["timetoken"].GetStringValue()
	if len(token) != 17 {
		t.Errorf("expected a 17 digit timetoken string, got %q", token)
	}

	page, err := c.FetchMessages(ctx, mustStruct(t, map[string]interface{}{"channels": []interface{}{"general"}}))
	if err != nil {
		t.Fatalf("FetchMessages() failed: %v", err)
	}
	msgs := page.GetFields()["channels"].GetStructValue().GetFields()["general"].GetListValue().GetValues()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	msg := msgs[0].GetStructValue().GetFields()
	if msg["timetoken"].GetStringValue() != token {
		t.Errorf("history token %q does not match publish token %q", msg["timetoken"].GetStringValue(), token)
	}
	if msg["message"].GetStructValue().GetFields()["text"].GetStringValue() != "hi" {
		t.Errorf("unexpected message body: %v", msg["message"])
	}
}

func TestFetchWithStringStartAndCount(t *testing.T) {
	c, _ := dial(t, true)
	ctx := testContext(t)

	page, err := c.FetchMessages(ctx, mustStruct(t, map[string]interface{}{
		"channel": standup,
		"start":   "16165852688741227",
		"count":   2,
	}))
	if err != nil {
		t.Fatalf("FetchMessages() failed: %v", err)
	}
	msgs := page.GetFields()["channels"].GetStructValue().GetFields()[standup].GetListValue().GetValues()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	for _, m := range msgs {
		if tt := m.GetStructValue().GetFields()["timetoken"].GetStringValue(); tt >= "16165852688741227" {
			t.Errorf("message %s is not before the start bound", tt)
		}
	}

	_, err = c.FetchMessages(ctx, mustStruct(t, map[string]interface{}{"channel": standup, "start": "soon"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument for a bad start, got %v", err)
	}
}

func TestHereNow(t *testing.T) {
	c, _ := dial(t, true)

	resp, err := c.HereNow(testContext(t), mustStruct(t, map[string]interface{}{"channels": []interface{}{"a", "b"}}))
	if err != nil {
		t.Fatalf("HereNow() failed: %v", err)
	}
	fields := resp.GetFields()
	if fields["totalChannels"].GetNumberValue() != 2 || fields["totalOccupancy"].GetNumberValue() != 5 {
		t.Errorf("unexpected totals: %v", resp)
	}
}

func TestErrorCodes(t *testing.T) {
	c, _ := dial(t, false)
	ctx := testContext(t)

	_, err := c.Publish(ctx, mustStruct(t, map[string]interface{}{"channel": "general", "message": "hi"}))
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("publish without listener: expected FailedPrecondition, got %v", err)
	}

	_, err = c.Publish(ctx, mustStruct(t, map[string]interface{}{"message": "hi"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("publish without channel: expected InvalidArgument, got %v", err)
	}

	_, err = c.RemoveMessageAction(ctx, mustStruct(t, map[string]interface{}{"actionTimetoken": "1"}))
	if status.Code(err) != codes.NotFound {
		t.Errorf("unknown action: expected NotFound, got %v", err)
	}

	_, err = c.AddMessageAction(ctx, mustStruct(t, map[string]interface{}{"channel": "general", "messageTimetoken": "1"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("action without type: expected InvalidArgument, got %v", err)
	}
}

func TestActionsRoundTrip(t *testing.T) {
	c, _ := dial(t, true)
	ctx := testContext(t)

	added, err := c.AddMessageAction(ctx, mustStruct(t, map[string]interface{}{
		"channel":          "general",
		"messageTimetoken": "16165851271766362",
		"action":           map[string]interface{}{"type": "reaction", "value": "smiley_face"},
	}))
	if err != nil {
		t.Fatalf("AddMessageAction() failed: %v", err)
	}
	data := added.GetFields()["data"].GetStructValue().GetFields()
	actionToken := data["actionTimetoken"].GetStringValue()
	if actionToken == "" || data["value"].GetStringValue() != "smiley_face" {
		t.Fatalf("unexpected action data: %v", data)
	}

	remove := mustStruct(t, map[string]interface{}{"channel": "general", "actionTimetoken": actionToken})
	if _, err := c.RemoveMessageAction(ctx, remove); err != nil {
		t.Fatalf("RemoveMessageAction() failed: %v", err)
	}
	if _, err := c.RemoveMessageAction(ctx, remove); status.Code(err) != codes.NotFound {
		t.Errorf("second removal: expected NotFound, got %v", err)
	}
}

func TestStreamEvents(t *testing.T) {
	c, _ := dial(t, true)
	ctx := testContext(t)

	stream, err := c.StreamEvents(ctx, mustStruct(t, map[string]interface{}{"types": []interface{}{pubsub.TypeMessage}}))
	if err != nil {
		t.Fatalf("StreamEvents() failed: %v", err)
	}

	// The server subscribes asynchronously; keep signalling and publishing until the first message arrives
	received := make(chan *structpb.Struct, 1)
	go func() {
		ev, err := stream.Recv()
		if err == nil {
			received <- ev
		}
	}()

	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case ev := <-received:
			fields := ev.GetFields()
			if fields["type"].GetStringValue() != pubsub.TypeMessage {
				t.Fatalf("filter let through %v", fields["type"])
			}
			payload := fields["payload"].GetStructValue().GetFields()
			if payload["channel"].GetStringValue() != "general" {
				t.Errorf("unexpected payload: %v", payload)
			}
			return
		case <-tick.C:
			if _, err := c.Signal(ctx, mustStruct(t, map[string]interface{}{"channel": "general", "message": "typing"})); err != nil {
				t.Fatal(err)
			}
			if _, err := c.Publish(ctx, mustStruct(t, map[string]interface{}{"channel": "general", "message": "hi"})); err != nil {
				t.Fatal(err)
			}
		case <-ctx.Done():
			t.Fatal("timeout waiting for streamed event")
		}
	}
}

func TestHealthService(t *testing.T) {
	_, conn := dial(t, true)

	resp, err := healthpb.NewHealthClient(conn).Check(testContext(t), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %v", resp.GetStatus())
	}
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{chat.ErrActionNotFound, codes.NotFound},
		{chat.ErrUUIDNotFound, codes.NotFound},
		{chat.ErrMissingHandler, codes.FailedPrecondition},
		{context.DeadlineExceeded, codes.Internal},
	}
	for _, tt := range tests {
		if got := CodeFor(tt.err); got != tt.want {
			t.Errorf("CodeFor(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
