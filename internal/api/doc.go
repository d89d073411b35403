// Package api defines the Irondb gRPC service: its messages, a codec that
// encodes them in protocol buffers wire format (schema in irondb.proto), and
// the client and server bindings. Calls are carried under the "irondb"
// content-subtype, so any protobuf implementation of irondb.proto
// interoperates as long as it requests that subtype. FromClock, ToClock and
// their Versioned counterparts convert between wire and clock types.
package api
