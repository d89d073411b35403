package clock

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// VectorClock is a causality token: per-writer counters plus the wall-clock
// time (Unix milliseconds) at which the clock was created or last advanced.
// A VectorClock is immutable; every update returns a new clock.
type VectorClock struct {
	versions map[uint16]uint64
	ts       int64
}

// Ordering is the result of comparing two vector clocks.
type Ordering int

const (
	// Equal indicates both clocks carry identical counters.
	Equal Ordering = iota
	// Less indicates this clock happened before the other.
	Less
	// Greater indicates this clock happened after the other.
	Greater
	// Concurrent indicates neither clock is ordered before the other.
	Concurrent
)

// String returns the string representation of the ordering.
func (o Ordering) String() string {
	switch o {
	case Equal:
		return "EQUAL"
	case Less:
		return "LESS"
	case Greater:
		return "GREATER"
	case Concurrent:
		return "CONCURRENT"
	default:
		return "UNKNOWN"
	}
}

// NowMillis returns the current wall-clock time in Unix milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// New creates an empty vector clock timestamped now.
func New() VectorClock {
	return NewAt(NowMillis())
}

// NewAt creates an empty vector clock with the given timestamp.
func NewAt(ts int64) VectorClock {
	return VectorClock{ts: ts}
}

// FromEntries builds a clock from writer counters. The map is copied.
func FromEntries(entries map[uint16]uint64, ts int64) VectorClock {
	vc := VectorClock{ts: ts}
	if len(entries) > 0 {
		vc.versions = make(map[uint16]uint64, len(entries))
		for writer, counter := range entries {
			vc.versions[writer] = counter
		}
	}
	return vc
}

// Incremented returns a copy of the clock with the writer's counter raised by
// delta (an absent writer starts at zero) and the timestamp replaced by ts.
func (vc VectorClock) Incremented(writer uint16, delta uint64, ts int64) VectorClock {
	next := VectorClock{
		versions: make(map[uint16]uint64, len(vc.versions)+1),
		ts:       ts,
	}
	for w, c := range vc.versions {
		next.versions[w] = c
	}
	next.versions[writer] += delta
	return next
}

// Get returns the counter for the writer, or 0 if absent.
func (vc VectorClock) Get(writer uint16) uint64 {
	return vc.versions[writer]
}

// Has reports whether the writer has an entry in the clock.
func (vc VectorClock) Has(writer uint16) bool {
	_, ok := vc.versions[writer]
	return ok
}

// Len returns the number of writers in the clock.
func (vc VectorClock) Len() int {
	return len(vc.versions)
}

// IsEmpty reports whether the clock has no writer entries.
func (vc VectorClock) IsEmpty() bool {
	return len(vc.versions) == 0
}

// Timestamp returns the wall-clock milliseconds carried by the clock.
func (vc VectorClock) Timestamp() int64 {
	return vc.ts
}

// Writers returns the writer ids in ascending order.
func (vc VectorClock) Writers() []uint16 {
	writers := make([]uint16, 0, len(vc.versions))
	for w := range vc.versions {
		writers = append(writers, w)
	}
	sort.Slice(writers, func(i, j int) bool { return writers[i] < writers[j] })
	return writers
}

// Entries returns a copy of the writer counters.
func (vc VectorClock) Entries() map[uint16]uint64 {
	entries := make(map[uint16]uint64, len(vc.versions))
	for w, c := range vc.versions {
		entries[w] = c
	}
	return entries
}

// Equal reports whether both clocks carry identical counters.
// Timestamps are not compared.
func (vc VectorClock) Equal(other VectorClock) bool {
	if len(vc.versions) != len(other.versions) {
		return false
	}
	for w, c := range vc.versions {
		oc, ok := other.versions[w]
		if !ok || oc != c {
			return false
		}
	}
	return true
}

// LessThan reports whether vc happened before other: the clocks differ and
// every writer in vc is present in other with a strictly larger counter.
// Writers only present in other are not examined, so an empty clock is less
// than any non-empty clock, while two empty clocks are equal.
func (vc VectorClock) LessThan(other VectorClock) bool {
	if vc.Equal(other) {
		return false
	}
	for w, c := range vc.versions {
		oc, ok := other.versions[w]
		if !ok || c >= oc {
			return false
		}
	}
	return true
}

// Compare returns the causal relationship of vc to other.
func (vc VectorClock) Compare(other VectorClock) Ordering {
	switch {
	case vc.Equal(other):
		return Equal
	case vc.LessThan(other):
		return Less
	case other.LessThan(vc):
		return Greater
	default:
		return Concurrent
	}
}

// Dominates returns true if this clock happened after the other.
func (vc VectorClock) Dominates(other VectorClock) bool {
	return other.LessThan(vc)
}

// Merge returns a new clock holding the maximum counter for each writer of
// both clocks and the later of the two timestamps.
func (vc VectorClock) Merge(other VectorClock) VectorClock {
	merged := FromEntries(vc.versions, max(vc.ts, other.ts))
	if merged.versions == nil && len(other.versions) > 0 {
		merged.versions = make(map[uint16]uint64, len(other.versions))
	}
	for w, c := range other.versions {
		if merged.versions[w] < c {
			merged.versions[w] = c
		}
	}
	return merged
}

// String returns a deterministic representation such as "{0:1, 3:2}@1700000000000".
func (vc VectorClock) String() string {
	parts := make([]string, 0, len(vc.versions))
	for _, w := range vc.Writers() {
		parts = append(parts, fmt.Sprintf("%d:%d", w, vc.versions[w]))
	}
	return "{" + strings.Join(parts, ", ") + "}@" + fmt.Sprint(vc.ts)
}
