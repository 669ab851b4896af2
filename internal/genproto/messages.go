// Package genproto holds the wire-message and service-stub types that a
// protoc-gen-go / protoc-gen-go-grpc run would normally generate from
// proto/overlay.proto. This environment has no protoc toolchain available,
// so the generated-code shape (service interfaces, Unimplemented types,
// Register/New-client functions, grpc.ServiceDesc) is hand-authored here
// instead, paired with the JSON wire codec in internal/rpccodec so the
// messages below need not implement proto.Message/protoreflect — see
// DESIGN.md for the full rationale.
//
// QueryData and GatherData reuse internal/model's domain types directly as
// their request/response bodies (model.Query, model.PeerRequest, ...);
// only the out-of-scope message/stream pass-through RPCs get dedicated
// wire types, since they have no corresponding domain model.
package genproto

// SendMessageRequest is the unary SendMessage RPC's request.
type SendMessageRequest struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Content  string `json:"content"`
	Ts       int64  `json:"ts"`
}

// SendMessageResponse is the unary SendMessage RPC's response.
type SendMessageResponse struct {
	Success      bool   `json:"success"`
	MessageID    string `json:"message_id"`
	Ts           int64  `json:"ts"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// SubscriptionRequest is the SubscribeToUpdates server-stream RPC's request.
type SubscriptionRequest struct {
	Subscriber string   `json:"subscriber"`
	Topics     []string `json:"topics"`
}

// UpdateResponse is one item the SubscribeToUpdates server-stream emits.
type UpdateResponse struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
	Ts      int64  `json:"ts"`
}

// BatchResponse is the SendMultipleMessages client-stream RPC's response.
type BatchResponse struct {
	SuccessCount int32    `json:"success_count"`
	FailureCount int32    `json:"failure_count"`
	Ids          []string `json:"ids"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// ChatMessage is both the request and response element of the Chat
// bidi-stream RPC.
type ChatMessage struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Content  string `json:"content"`
	Ts       int64  `json:"ts"`
}
