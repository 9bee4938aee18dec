package service

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec lets Connect carry plain Go structs. It is registered under the
// name "json", replacing Connect's protobuf-only JSON codec, so the wire
// format for Connect, gRPC-Web and gRPC+json clients stays application/json.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// codecOption is prepended to every handler and client option list.
var codecOption = connect.WithCodec(jsonCodec{})
