// Package rpc is the hand-written Connect surface of the splitbill server:
// request/response payloads, procedure paths and handler/client
// constructors for the three services (auth, splitbill, expense). Payloads
// travel as JSON through a codec registered on every handler and client, so
// the wire format works with curl and browser fetch as well as the Go
// clients used in tests.
package rpc

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec marshals payload structs with encoding/json. Registering it
// under the name "json" makes Connect speak application/json for these
// services.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		// Empty body means an empty request message.
		return nil
	}
	return json.Unmarshal(data, v)
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
}
