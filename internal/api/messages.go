package api

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// wireMessage is implemented by every message carried by the irondb codec.
type wireMessage interface {
	appendWire(b []byte) []byte
	unmarshalWire(b []byte) error
}

// ClockEntry is one writer's counter in a VectorClock.
type ClockEntry struct {
	WriterId uint32
	Counter  uint64
}

// VectorClock is the wire form of a vector clock.
type VectorClock struct {
	Entries     []*ClockEntry
	TimestampMs int64
}

// Versioned is a value together with the clock that produced it.
type Versioned struct {
	Value   []byte
	Version *VectorClock
}

type AreYouOkayRequest struct {
	Name string
}

type AreYouOkayReply struct {
	Message string
}

type GetRequest struct {
	Key       string
	RequestId string
}

type GetReply struct {
	Results []*Versioned
}

type PutRequest struct {
	Key   string
	Value []byte
	// Version is nil for a first write with no causal history.
	Version   *VectorClock
	RequestId string
}

type PutReply struct {
	Key      string
	Previous []*Versioned
}

func (m *ClockEntry) appendWire(b []byte) []byte {
	b = appendVarint(b, 1, uint64(m.WriterId))
	b = appendVarint(b, 2, m.Counter)
	return b
}

func (m *ClockEntry) unmarshalWire(b []byte) error {
	*m = ClockEntry{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(num, typ, b)
			m.WriterId = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(num, typ, b)
			m.Counter = v
			return n, err
		}
		return 0, nil
	})
}

func (m *VectorClock) appendWire(b []byte) []byte {
	for _, e := range m.Entries {
		b = appendMessage(b, 1, e)
	}
	b = appendVarint(b, 2, uint64(m.TimestampMs))
	return b
}

func (m *VectorClock) unmarshalWire(b []byte) error {
	*m = VectorClock{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			e := &ClockEntry{}
			n, err := consumeMessage(num, typ, b, e)
			m.Entries = append(m.Entries, e)
			return n, err
		case 2:
			v, n, err := consumeVarint(num, typ, b)
			m.TimestampMs = int64(v)
			return n, err
		}
		return 0, nil
	})
}

func (m *Versioned) appendWire(b []byte) []byte {
	b = appendBytes(b, 1, m.Value)
	if m.Version != nil {
		b = appendMessage(b, 2, m.Version)
	}
	return b
}

func (m *Versioned) unmarshalWire(b []byte) error {
	*m = Versioned{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeBytes(num, typ, b)
			m.Value = v
			return n, err
		case 2:
			m.Version = &VectorClock{}
			return consumeMessage(num, typ, b, m.Version)
		}
		return 0, nil
	})
}

func (m *AreYouOkayRequest) appendWire(b []byte) []byte {
	return appendBytes(b, 1, []byte(m.Name))
}

func (m *AreYouOkayRequest) unmarshalWire(b []byte) error {
	*m = AreYouOkayRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeBytes(num, typ, b)
			m.Name = string(v)
			return n, err
		}
		return 0, nil
	})
}

func (m *AreYouOkayReply) appendWire(b []byte) []byte {
	return appendBytes(b, 1, []byte(m.Message))
}

func (m *AreYouOkayReply) unmarshalWire(b []byte) error {
	*m = AreYouOkayReply{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeBytes(num, typ, b)
			m.Message = string(v)
			return n, err
		}
		return 0, nil
	})
}

func (m *GetRequest) appendWire(b []byte) []byte {
	b = appendBytes(b, 1, []byte(m.Key))
	b = appendBytes(b, 2, []byte(m.RequestId))
	return b
}

func (m *GetRequest) unmarshalWire(b []byte) error {
	*m = GetRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeBytes(num, typ, b)
			m.Key = string(v)
			return n, err
		case 2:
			v, n, err := consumeBytes(num, typ, b)
			m.RequestId = string(v)
			return n, err
		}
		return 0, nil
	})
}

func (m *GetReply) appendWire(b []byte) []byte {
	for _, r := range m.Results {
		b = appendMessage(b, 1, r)
	}
	return b
}

func (m *GetReply) unmarshalWire(b []byte) error {
	*m = GetReply{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			r := &Versioned{}
			n, err := consumeMessage(num, typ, b, r)
			m.Results = append(m.Results, r)
			return n, err
		}
		return 0, nil
	})
}

func (m *PutRequest) appendWire(b []byte) []byte {
	b = appendBytes(b, 1, []byte(m.Key))
	b = appendBytes(b, 2, m.Value)
	if m.Version != nil {
		b = appendMessage(b, 3, m.Version)
	}
	b = appendBytes(b, 4, []byte(m.RequestId))
	return b
}

func (m *PutRequest) unmarshalWire(b []byte) error {
	*m = PutRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeBytes(num, typ, b)
			m.Key = string(v)
			return n, err
		case 2:
			v, n, err := consumeBytes(num, typ, b)
			m.Value = v
			return n, err
		case 3:
			m.Version = &VectorClock{}
			return consumeMessage(num, typ, b, m.Version)
		case 4:
			v, n, err := consumeBytes(num, typ, b)
			m.RequestId = string(v)
			return n, err
		}
		return 0, nil
	})
}

func (m *PutReply) appendWire(b []byte) []byte {
	b = appendBytes(b, 1, []byte(m.Key))
	for _, p := range m.Previous {
		b = appendMessage(b, 2, p)
	}
	return b
}

func (m *PutReply) unmarshalWire(b []byte) error {
	*m = PutReply{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeBytes(num, typ, b)
			m.Key = string(v)
			return n, err
		case 2:
			p := &Versioned{}
			n, err := consumeMessage(num, typ, b, p)
			m.Previous = append(m.Previous, p)
			return n, err
		}
		return 0, nil
	})
}

// appendVarint appends a varint field, omitting the proto3 zero value.
func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// appendBytes appends a length-delimited scalar field, omitting empty values.
func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// appendMessage appends an embedded message field. Empty messages are still
// written so repeated entries keep their position.
func appendMessage(b []byte, num protowire.Number, m wireMessage) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.appendWire(nil))
}

// consumeFields walks the fields in b. fn returns the number of bytes it
// consumed for a known field, or 0 to have the field skipped.
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
		}
		b = b[m:]
	}
	return nil
}

func consumeVarint(num protowire.Number, typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("irondb: field %d: unexpected wire type %d", num, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeBytes(num protowire.Number, typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("irondb: field %d: unexpected wire type %d", num, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	// Copy out of the transport buffer.
	return append([]byte(nil), v...), n, nil
}

func consumeMessage(num protowire.Number, typ protowire.Type, b []byte, m wireMessage) (int, error) {
	v, n, err := consumeBytes(num, typ, b)
	if err != nil {
		return 0, err
	}
	if err := m.unmarshalWire(v); err != nil {
		return 0, fmt.Errorf("irondb: field %d: %w", num, err)
	}
	return n, nil
}
