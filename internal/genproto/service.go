package genproto

import (
	"context"

	"google.golang.org/grpc"

	"github.com/basecamp-overlay/overlay/internal/model"
)

const (
	serviceName = "overlay.OverlayService"
)

// OverlayServiceClient is the client API for OverlayService, the shape
// protoc-gen-go-grpc would emit from proto/overlay.proto.
type OverlayServiceClient interface {
	QueryData(ctx context.Context, in *model.Query, opts ...grpc.CallOption) (*model.QueryResponse, error)
	GatherData(ctx context.Context, in *model.PeerRequest, opts ...grpc.CallOption) (*model.PeerResponse, error)
	SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error)
	SubscribeToUpdates(ctx context.Context, in *SubscriptionRequest, opts ...grpc.CallOption) (OverlayService_SubscribeToUpdatesClient, error)
	SendMultipleMessages(ctx context.Context, opts ...grpc.CallOption) (OverlayService_SendMultipleMessagesClient, error)
	Chat(ctx context.Context, opts ...grpc.CallOption) (OverlayService_ChatClient, error)
}

type overlayServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewOverlayServiceClient wraps a ClientConn with the OverlayService stub.
func NewOverlayServiceClient(cc grpc.ClientConnInterface) OverlayServiceClient {
	return &overlayServiceClient{cc}
}

func (c *overlayServiceClient) QueryData(ctx context.Context, in *model.Query, opts ...grpc.CallOption) (*model.QueryResponse, error) {
	out := new(model.QueryResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/QueryData", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *overlayServiceClient) GatherData(ctx context.Context, in *model.PeerRequest, opts ...grpc.CallOption) (*model.PeerResponse, error) {
	out := new(model.PeerResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/GatherData", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *overlayServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	out := new(SendMessageResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/SendMessage", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *overlayServiceClient) SubscribeToUpdates(ctx context.Context, in *SubscriptionRequest, opts ...grpc.CallOption) (OverlayService_SubscribeToUpdatesClient, error) {
	stream, err := c.cc.NewStream(ctx, &overlayServiceServiceDesc.Streams[0], "/"+serviceName+"/SubscribeToUpdates", opts...)
	if err != nil {
		return nil, err
	}
	x := &overlayServiceSubscribeToUpdatesClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type OverlayService_SubscribeToUpdatesClient interface {
	Recv() (*UpdateResponse, error)
	grpc.ClientStream
}

type overlayServiceSubscribeToUpdatesClient struct {
	grpc.ClientStream
}

func (x *overlayServiceSubscribeToUpdatesClient) Recv() (*UpdateResponse, error) {
	m := new(UpdateResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *overlayServiceClient) SendMultipleMessages(ctx context.Context, opts ...grpc.CallOption) (OverlayService_SendMultipleMessagesClient, error) {
	stream, err := c.cc.NewStream(ctx, &overlayServiceServiceDesc.Streams[1], "/"+serviceName+"/SendMultipleMessages", opts...)
	if err != nil {
		return nil, err
	}
	return &overlayServiceSendMultipleMessagesClient{stream}, nil
}

type OverlayService_SendMultipleMessagesClient interface {
	Send(*SendMessageRequest) error
	CloseAndRecv() (*BatchResponse, error)
	grpc.ClientStream
}

type overlayServiceSendMultipleMessagesClient struct {
	grpc.ClientStream
}

func (x *overlayServiceSendMultipleMessagesClient) Send(m *SendMessageRequest) error {
	return x.ClientStream.SendMsg(m)
}

func (x *overlayServiceSendMultipleMessagesClient) CloseAndRecv() (*BatchResponse, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	m := new(BatchResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *overlayServiceClient) Chat(ctx context.Context, opts ...grpc.CallOption) (OverlayService_ChatClient, error) {
	stream, err := c.cc.NewStream(ctx, &overlayServiceServiceDesc.Streams[2], "/"+serviceName+"/Chat", opts...)
	if err != nil {
		return nil, err
	}
	return &overlayServiceChatClient{stream}, nil
}

type OverlayService_ChatClient interface {
	Send(*ChatMessage) error
	Recv() (*ChatMessage, error)
	grpc.ClientStream
}

type overlayServiceChatClient struct {
	grpc.ClientStream
}

func (x *overlayServiceChatClient) Send(m *ChatMessage) error {
	return x.ClientStream.SendMsg(m)
}

func (x *overlayServiceChatClient) Recv() (*ChatMessage, error) {
	m := new(ChatMessage)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// OverlayServiceServer is the server API for OverlayService.
type OverlayServiceServer interface {
	QueryData(context.Context, *model.Query) (*model.QueryResponse, error)
	GatherData(context.Context, *model.PeerRequest) (*model.PeerResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	SubscribeToUpdates(*SubscriptionRequest, OverlayService_SubscribeToUpdatesServer) error
	SendMultipleMessages(OverlayService_SendMultipleMessagesServer) error
	Chat(OverlayService_ChatServer) error
}

// UnimplementedOverlayServiceServer must be embedded by server
// implementations for forward compatibility, the same convention
// protoc-gen-go-grpc applies to every generated server interface.
type UnimplementedOverlayServiceServer struct{}

func (UnimplementedOverlayServiceServer) QueryData(context.Context, *model.Query) (*model.QueryResponse, error) {
	return nil, errUnimplemented("QueryData")
}
func (UnimplementedOverlayServiceServer) GatherData(context.Context, *model.PeerRequest) (*model.PeerResponse, error) {
	return nil, errUnimplemented("GatherData")
}
func (UnimplementedOverlayServiceServer) SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error) {
	return nil, errUnimplemented("SendMessage")
}
func (UnimplementedOverlayServiceServer) SubscribeToUpdates(*SubscriptionRequest, OverlayService_SubscribeToUpdatesServer) error {
	return errUnimplemented("SubscribeToUpdates")
}
func (UnimplementedOverlayServiceServer) SendMultipleMessages(OverlayService_SendMultipleMessagesServer) error {
	return errUnimplemented("SendMultipleMessages")
}
func (UnimplementedOverlayServiceServer) Chat(OverlayService_ChatServer) error {
	return errUnimplemented("Chat")
}

type OverlayService_SubscribeToUpdatesServer interface {
	Send(*UpdateResponse) error
	grpc.ServerStream
}

type overlayServiceSubscribeToUpdatesServer struct {
	grpc.ServerStream
}

func (x *overlayServiceSubscribeToUpdatesServer) Send(m *UpdateResponse) error {
	return x.ServerStream.SendMsg(m)
}

type OverlayService_SendMultipleMessagesServer interface {
	Recv() (*SendMessageRequest, error)
	SendAndClose(*BatchResponse) error
	grpc.ServerStream
}

type overlayServiceSendMultipleMessagesServer struct {
	grpc.ServerStream
}

func (x *overlayServiceSendMultipleMessagesServer) Recv() (*SendMessageRequest, error) {
	m := new(SendMessageRequest)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (x *overlayServiceSendMultipleMessagesServer) SendAndClose(m *BatchResponse) error {
	return x.ServerStream.SendMsg(m)
}

type OverlayService_ChatServer interface {
	Send(*ChatMessage) error
	Recv() (*ChatMessage, error)
	grpc.ServerStream
}

type overlayServiceChatServer struct {
	grpc.ServerStream
}

func (x *overlayServiceChatServer) Send(m *ChatMessage) error {
	return x.ServerStream.SendMsg(m)
}

func (x *overlayServiceChatServer) Recv() (*ChatMessage, error) {
	m := new(ChatMessage)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func overlayServiceQueryDataHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(model.Query)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OverlayServiceServer).QueryData(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/QueryData"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OverlayServiceServer).QueryData(ctx, req.(*model.Query))
	}
	return interceptor(ctx, in, info, handler)
}

func overlayServiceGatherDataHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(model.PeerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OverlayServiceServer).GatherData(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GatherData"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OverlayServiceServer).GatherData(ctx, req.(*model.PeerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func overlayServiceSendMessageHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SendMessageRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OverlayServiceServer).SendMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/SendMessage"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OverlayServiceServer).SendMessage(ctx, req.(*SendMessageRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func overlayServiceSubscribeToUpdatesHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(SubscriptionRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(OverlayServiceServer).SubscribeToUpdates(m, &overlayServiceSubscribeToUpdatesServer{stream})
}

func overlayServiceSendMultipleMessagesHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(OverlayServiceServer).SendMultipleMessages(&overlayServiceSendMultipleMessagesServer{stream})
}

func overlayServiceChatHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(OverlayServiceServer).Chat(&overlayServiceChatServer{stream})
}

var overlayServiceServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*OverlayServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "QueryData", Handler: overlayServiceQueryDataHandler},
		{MethodName: "GatherData", Handler: overlayServiceGatherDataHandler},
		{MethodName: "SendMessage", Handler: overlayServiceSendMessageHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "SubscribeToUpdates", Handler: overlayServiceSubscribeToUpdatesHandler, ServerStreams: true},
		{StreamName: "SendMultipleMessages", Handler: overlayServiceSendMultipleMessagesHandler, ClientStreams: true},
		{StreamName: "Chat", Handler: overlayServiceChatHandler, ServerStreams: true, ClientStreams: true},
	},
	Metadata: "overlay.proto",
}

// RegisterOverlayServiceServer registers srv with s, the same convention
// protoc-gen-go-grpc's RegisterXServer function follows.
func RegisterOverlayServiceServer(s grpc.ServiceRegistrar, srv OverlayServiceServer) {
	s.RegisterService(&overlayServiceServiceDesc, srv)
}

func errUnimplemented(method string) error {
	return &unimplementedError{method}
}

type unimplementedError struct{ method string }

func (e *unimplementedError) Error() string { return "overlay: method " + e.method + " not implemented" }
