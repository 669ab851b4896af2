// Package rpccodec registers a JSON-based grpc.Codec under the name
// "proto" so the hand-authored message types in internal/genproto can
// travel over the wire without implementing proto.Message/protoreflect.
// grpc-go selects a codec by the content-subtype negotiated on the
// connection, defaulting to "proto"; registering under that same name
// here means no client or server dial option needs to change, only the
// registration performed once at process startup (see internal/controller
// and cmd/client). This package imports grpc's own proto codec package so
// that package's init, which registers the built-in codec, always runs
// first and this package's registration replaces it.
package rpccodec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
	_ "google.golang.org/grpc/encoding/proto" // must initialize before this package's init
)

// Name is the codec name this package registers under, overriding
// grpc-go's built-in protobuf codec of the same name.
const Name = "proto"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return Name }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpccodec: marshal: %w", err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpccodec: unmarshal: %w", err)
	}
	return nil
}
