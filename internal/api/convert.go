package api

import (
	"fmt"
	"math"

	"irondb/internal/clock"
)

// FromClock converts vc to its wire form with entries sorted by writer id.
func FromClock(vc clock.VectorClock) *VectorClock {
	writers := vc.Writers()
	pb := &VectorClock{
		Entries:     make([]*ClockEntry, 0, len(writers)),
		TimestampMs: vc.Timestamp(),
	}
	for _, w := range writers {
		pb.Entries = append(pb.Entries, &ClockEntry{WriterId: uint32(w), Counter: vc.Get(w)})
	}
	return pb
}

// ToClock converts a wire clock. A nil clock yields an empty clock at
// timestamp zero.
func ToClock(pb *VectorClock) (clock.VectorClock, error) {
	if pb == nil {
		return clock.NewAt(0), nil
	}
	entries := make(map[uint16]uint64, len(pb.Entries))
	for _, e := range pb.Entries {
		if e == nil {
			continue
		}
		if e.WriterId > math.MaxUint16 {
			return clock.VectorClock{}, fmt.Errorf("writer id %d out of range", e.WriterId)
		}
		w := uint16(e.WriterId)
		if _, dup := entries[w]; dup {
			return clock.VectorClock{}, fmt.Errorf("duplicate writer id %d", w)
		}
		entries[w] = e.Counter
	}
	return clock.FromEntries(entries, pb.TimestampMs), nil
}

// FromVersioned converts a slice of versioned values to wire form.
func FromVersioned(values []clock.Versioned[[]byte]) []*Versioned {
	out := make([]*Versioned, 0, len(values))
	for _, v := range values {
		out = append(out, &Versioned{Value: v.Value, Version: FromClock(v.Version)})
	}
	return out
}

// ToVersioned converts wire versioned values.
func ToVersioned(values []*Versioned) ([]clock.Versioned[[]byte], error) {
	out := make([]clock.Versioned[[]byte], 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		vc, err := ToClock(v.Version)
		if err != nil {
			return nil, err
		}
		out = append(out, clock.WithVersion(vc, v.Value))
	}
	return out, nil
}
