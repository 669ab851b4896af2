package rpcserver

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/basecamp-overlay/overlay/internal/genproto"
)

// batchBudget bounds SendMultipleMessages' accumulation loop, matching
// the original implementation's 4-second per-operation timeout.
const batchBudget = 4 * time.Second

// subscribeTickInterval and subscribeMaxTicks bound the simulated
// periodic-update loop SubscribeToUpdates runs after its initial burst.
const (
	subscribeTickInterval = 500 * time.Millisecond
	subscribeMaxTicks     = 10
)

// messagingHandlers implements the out-of-scope pass-through RPCs (spec
// §1's "generic messaging surface... this spec does not design them"):
// SendMessage, SubscribeToUpdates, SendMultipleMessages, and Chat.
// Grounded in original_source/basecamp's BasecampServiceImpl — an
// in-memory message store keyed by generated id and an echoing chat loop.
type messagingHandlers struct {
	mu       sync.Mutex
	messages map[string]*genproto.SendMessageRequest
	logger   *zap.Logger
}

func newMessagingHandlers(logger *zap.Logger) *messagingHandlers {
	return &messagingHandlers{
		messages: make(map[string]*genproto.SendMessageRequest),
		logger:   logger,
	}
}

func (m *messagingHandlers) store(req *genproto.SendMessageRequest) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.messages[id] = req
	return id
}

// SendMessage stores one message and returns its generated id.
func (s *Server) SendMessage(ctx context.Context, req *genproto.SendMessageRequest) (*genproto.SendMessageResponse, error) {
	id := s.messaging.store(req)
	return &genproto.SendMessageResponse{
		Success:   true,
		MessageID: id,
		Ts:        time.Now().UnixMilli(),
	}, nil
}

// SubscribeToUpdates sends one initial update per requested topic, then a
// bounded number of simulated periodic updates, stopping promptly if the
// stream's context is cancelled (spec §5: "the streaming subscribe
// handler checks cancellation each tick").
func (s *Server) SubscribeToUpdates(req *genproto.SubscriptionRequest, stream genproto.OverlayService_SubscribeToUpdatesServer) error {
	now := time.Now().UnixMilli()
	for _, topic := range req.Topics {
		update := &genproto.UpdateResponse{Topic: topic, Content: "subscribed to " + topic, Ts: now}
		if err := stream.Send(update); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(subscribeTickInterval)
	defer ticker.Stop()

	for tick := 0; tick < subscribeMaxTicks; tick++ {
		select {
		case <-stream.Context().Done():
			return nil
		case <-ticker.C:
			for _, topic := range req.Topics {
				update := &genproto.UpdateResponse{Topic: topic, Content: "update", Ts: time.Now().UnixMilli()}
				if err := stream.Send(update); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// SendMultipleMessages accumulates messages from the client stream until
// EOF or a 4-second budget elapses. Per the truncation open question
// (spec §9, resolved option (a)): when the budget fires before EOF, the
// handler reports the cut explicitly rather than silently returning a
// success-only response — it spends a brief grace period continuing to
// drain the reader (without storing) to count what it can no longer
// process, then gives up on counting precisely beyond that.
func (s *Server) SendMultipleMessages(stream genproto.OverlayService_SendMultipleMessagesServer) error {
	type recv struct {
		req *genproto.SendMessageRequest
		err error
	}
	msgCh := make(chan recv)
	go func() {
		for {
			req, err := stream.Recv()
			msgCh <- recv{req, err}
			if err != nil {
				return
			}
		}
	}()

	resp := &genproto.BatchResponse{}
	deadline := time.NewTimer(batchBudget)
	defer deadline.Stop()

	truncated := false
drain:
	for {
		select {
		case r := <-msgCh:
			if r.err == io.EOF {
				break drain
			}
			if r.err != nil {
				return r.err
			}
			id := s.messaging.store(r.req)
			resp.SuccessCount++
			resp.Ids = append(resp.Ids, id)
		case <-deadline.C:
			truncated = true
			break drain
		}
	}

	if truncated {
		grace := time.NewTimer(200 * time.Millisecond)
		defer grace.Stop()
	graceDrain:
		for {
			select {
			case r := <-msgCh:
				if r.err != nil {
					break graceDrain
				}
				resp.FailureCount++
			case <-grace.C:
				break graceDrain
			}
		}
		s.logger.Warn("SendMultipleMessages: batch budget exceeded, truncating",
			zap.Int32("success_count", resp.SuccessCount), zap.Int32("failure_count", resp.FailureCount))
		resp.ErrorMessage = "batch truncated: exceeded 4s accumulation budget"
	}

	return stream.SendAndClose(resp)
}

// Chat echoes every inbound chat message back to the sender, per the
// original's trivial echo loop.
func (s *Server) Chat(stream genproto.OverlayService_ChatServer) error {
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		echo := &genproto.ChatMessage{
			Sender:   "server",
			Receiver: msg.Sender,
			Content:  "echo: " + msg.Content,
			Ts:       time.Now().UnixMilli(),
		}
		if err := stream.Send(echo); err != nil {
			return err
		}
	}
}
