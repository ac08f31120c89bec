package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "chatmock.v1.MockClient"

// MockClientServer is the server API for the MockClient service.
// Every request and response is a google.protobuf.Struct.
type MockClientServer interface {
	Publish(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Signal(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FetchMessages(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HereNow(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddMessageAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveMessageAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StreamEvents(*structpb.Struct, MockClient_StreamEventsServer) error
}

// MockClient_StreamEventsServer is the server side of StreamEvents
type MockClient_StreamEventsServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type streamEventsServer struct {
	grpc.ServerStream
}

func (x *streamEventsServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

type unaryCall func(MockClientServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MockClientServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(MockClientServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func streamEventsHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(MockClientServer).StreamEvents(in, &streamEventsServer{stream})
}

// ServiceDesc describes the MockClient service for grpc.Server
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MockClientServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Publish", MockClientServer.Publish),
		unaryMethod("Signal", MockClientServer.Signal),
		unaryMethod("FetchMessages", MockClientServer.FetchMessages),
		unaryMethod("HereNow", MockClientServer.HereNow),
		unaryMethod("AddMessageAction", MockClientServer.AddMessageAction),
		unaryMethod("RemoveMessageAction", MockClientServer.RemoveMessageAction),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamEvents",
			Handler:       streamEventsHandler,
			ServerStreams: true,
		},
	},
}

// RegisterMockClientServer registers srv on s
func RegisterMockClientServer(s grpc.ServiceRegistrar, srv MockClientServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// MockClientClient is a typed client for the MockClient service
type MockClientClient struct {
	cc grpc.ClientConnInterface
}

// NewMockClientClient wraps a client connection
func NewMockClientClient(cc grpc.ClientConnInterface) *MockClientClient {
	return &MockClientClient{cc: cc}
}

func (c *MockClientClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MockClientClient) Publish(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Publish", in, opts)
}

func (c *MockClientClient) Signal(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Signal", in, opts)
}

func (c *MockClientClient) FetchMessages(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "FetchMessages", in, opts)
}

func (c *MockClientClient) HereNow(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "HereNow", in, opts)
}

func (c *MockClientClient) AddMessageAction(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "AddMessageAction", in, opts)
}

func (c *MockClientClient) RemoveMessageAction(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "RemoveMessageAction", in, opts)
}

// MockClient_StreamEventsClient is the client side of StreamEvents
type MockClient_StreamEventsClient interface {
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type streamEventsClient struct {
	grpc.ClientStream
}

func (x *streamEventsClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// StreamEvents opens the server stream of bus events
func (c *MockClientClient) StreamEvents(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (MockClient_StreamEventsClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/StreamEvents", opts...)
	if err != nil {
		return nil, err
	}
	x := &streamEventsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
