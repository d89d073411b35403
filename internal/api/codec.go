package api

import (
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

// CodecName is the gRPC content-subtype carrying irondb messages
// ("application/grpc+irondb").
const CodecName = "irondb"

func init() {
	encoding.RegisterCodec(codec{})
}

// Codec returns the codec to force on servers with grpc.ForceServerCodec.
// It decodes irondb messages whatever content-subtype the caller sent, so
// clients generated from irondb.proto using the default "proto" subtype are
// served, and it hands generated protobuf messages (health checks) to the
// protobuf runtime.
func Codec() encoding.Codec {
	return codec{}
}

// codec encodes irondb messages in protocol buffers wire format.
type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case wireMessage:
		return m.appendWire(nil), nil
	case proto.Message:
		return proto.Marshal(m)
	default:
		return nil, fmt.Errorf("irondb codec: cannot marshal %T", v)
	}
}

func (codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case wireMessage:
		return m.unmarshalWire(data)
	case proto.Message:
		return proto.Unmarshal(data, m)
	default:
		return fmt.Errorf("irondb codec: cannot unmarshal into %T", v)
	}
}

func (codec) Name() string {
	return CodecName
}
