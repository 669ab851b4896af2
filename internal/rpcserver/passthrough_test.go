package rpcserver_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/basecamp-overlay/overlay/internal/genproto"
	"github.com/basecamp-overlay/overlay/internal/model"
	"github.com/basecamp-overlay/overlay/internal/rpcserver"
)

// fakeServerStream is a minimal grpc.ServerStream stand-in for unit-testing
// streaming handlers without a real network connection. Only Context is
// meaningful here; the other grpc.ServerStream methods are never called by
// the handlers under test.
type fakeServerStream struct {
	ctx context.Context
}

func (f *fakeServerStream) SetHeader(metadata.MD) error  { return nil }
func (f *fakeServerStream) SendHeader(metadata.MD) error { return nil }
func (f *fakeServerStream) SetTrailer(metadata.MD)       {}
func (f *fakeServerStream) Context() context.Context     { return f.ctx }
func (f *fakeServerStream) SendMsg(m interface{}) error  { panic("unused in these tests") }
func (f *fakeServerStream) RecvMsg(m interface{}) error  { panic("unused in these tests") }

var _ grpc.ServerStream = (*fakeServerStream)(nil)

// fakeSendMultipleMessagesStream feeds a fixed sequence of requests to
// SendMultipleMessages and captures the final BatchResponse.
type fakeSendMultipleMessagesStream struct {
	fakeServerStream
	pending []*genproto.SendMessageRequest
	pos     int
	resp    *genproto.BatchResponse
}

func (f *fakeSendMultipleMessagesStream) Recv() (*genproto.SendMessageRequest, error) {
	if f.pos >= len(f.pending) {
		return nil, io.EOF
	}
	req := f.pending[f.pos]
	f.pos++
	return req, nil
}

func (f *fakeSendMultipleMessagesStream) SendAndClose(resp *genproto.BatchResponse) error {
	f.resp = resp
	return nil
}

var _ genproto.OverlayService_SendMultipleMessagesServer = (*fakeSendMultipleMessagesStream)(nil)

func TestQueryDataRefusesOnNonPortal(t *testing.T) {
	srv := rpcserver.New("B", false, nil, nil, zap.NewNop())
	resp, err := srv.QueryData(context.Background(), &model.Query{QueryID: "q1", Kind: model.QueryAll})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "portal")
	assert.Empty(t, resp.Results)
}

func TestSendMessageStoresAndReturnsID(t *testing.T) {
	srv := rpcserver.New("A", true, nil, nil, zap.NewNop())
	resp, err := srv.SendMessage(context.Background(), &genproto.SendMessageRequest{
		Sender: "alice", Receiver: "bob", Content: "hi",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.MessageID)
}

func TestSendMultipleMessagesAccumulatesUntilEOF(t *testing.T) {
	srv := rpcserver.New("A", true, nil, nil, zap.NewNop())
	stream := &fakeSendMultipleMessagesStream{
		fakeServerStream: fakeServerStream{ctx: context.Background()},
		pending: []*genproto.SendMessageRequest{
			{Sender: "a", Content: "1"},
			{Sender: "a", Content: "2"},
			{Sender: "a", Content: "3"},
		},
	}
	err := srv.SendMultipleMessages(stream)
	require.NoError(t, err)
	require.NotNil(t, stream.resp)
	assert.Equal(t, int32(3), stream.resp.SuccessCount)
	assert.Empty(t, stream.resp.ErrorMessage)
	assert.Len(t, stream.resp.Ids, 3)
}

func TestChatEchoesUntilEOF(t *testing.T) {
	srv := rpcserver.New("A", true, nil, nil, zap.NewNop())
	stream := &fakeChatStream{
		fakeServerStream: fakeServerStream{ctx: context.Background()},
		pending: []*genproto.ChatMessage{
			{Sender: "alice", Content: "hello"},
		},
	}
	err := srv.Chat(stream)
	require.NoError(t, err)
	require.Len(t, stream.sent, 1)
	assert.Equal(t, "alice", stream.sent[0].Receiver)
	assert.Contains(t, stream.sent[0].Content, "hello")
}

type fakeChatStream struct {
	fakeServerStream
	pending []*genproto.ChatMessage
	pos     int
	sent    []*genproto.ChatMessage
}

func (f *fakeChatStream) Recv() (*genproto.ChatMessage, error) {
	if f.pos >= len(f.pending) {
		return nil, io.EOF
	}
	m := f.pending[f.pos]
	f.pos++
	return m, nil
}

func (f *fakeChatStream) Send(m *genproto.ChatMessage) error {
	f.sent = append(f.sent, m)
	return nil
}

var _ genproto.OverlayService_ChatServer = (*fakeChatStream)(nil)

// fakeSubscribeStream captures every UpdateResponse SubscribeToUpdates
// sends, and is used to confirm the handler stops promptly once the
// stream's context is cancelled instead of running through all of its
// simulated ticks.
type fakeSubscribeStream struct {
	fakeServerStream
	sent []*genproto.UpdateResponse
}

func (f *fakeSubscribeStream) Send(u *genproto.UpdateResponse) error {
	f.sent = append(f.sent, u)
	return nil
}

var _ genproto.OverlayService_SubscribeToUpdatesServer = (*fakeSubscribeStream)(nil)

func TestSubscribeToUpdatesStopsOnContextCancellation(t *testing.T) {
	srv := rpcserver.New("A", true, nil, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stream := &fakeSubscribeStream{fakeServerStream: fakeServerStream{ctx: ctx}}

	done := make(chan error, 1)
	go func() { done <- srv.SubscribeToUpdates(&genproto.SubscriptionRequest{Topics: []string{"t1"}}, stream) }()

	cancel()
	err := <-done
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(stream.sent), 1)
	assert.Equal(t, "t1", stream.sent[0].Topic)
}
