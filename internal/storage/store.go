package storage

import (
	"fmt"

	"irondb/internal/clock"
)

// Store defines the get/put contract for causally versioned storage.
// Implementations keep every mutually concurrent version of a key as a
// sibling until a later write dominates it.
type Store[K comparable, V any] interface {
	// Get returns the sibling set for key. An unknown key yields an empty
	// slice and a nil error.
	Get(key K) ([]clock.Versioned[V], error)
	// Put applies v to key and returns the siblings present before the write.
	// It fails with a *StaleWriteError when a stored sibling's version is
	// greater than or equal to v's.
	Put(key K, v clock.Versioned[V]) ([]clock.Versioned[V], error)
}

// InMemoryStore is a map-backed Store.
// It is not safe for concurrent use; wrap it in an Actor to share it.
type InMemoryStore[K comparable, V any] struct {
	data  map[K][]clock.Versioned[V]
	clone func(V) V
}

// NewInMemoryStore creates an empty in-memory store. clone deep-copies values
// on the way in and out so callers never alias stored data; nil means values
// are copied by assignment.
func NewInMemoryStore[K comparable, V any](clone func(V) V) *InMemoryStore[K, V] {
	if clone == nil {
		clone = func(v V) V { return v }
	}
	return &InMemoryStore[K, V]{
		data:  make(map[K][]clock.Versioned[V]),
		clone: clone,
	}
}

// Get returns copies of the siblings stored for key, newest first.
func (s *InMemoryStore[K, V]) Get(key K) ([]clock.Versioned[V], error) {
	return s.copySiblings(s.data[key]), nil
}

// Put stores v under key.
//
// The write is rejected when any existing sibling is greater than or equal to
// v.Version. Otherwise siblings strictly less than v.Version are evicted,
// concurrent siblings are kept, and v is prepended.
func (s *InMemoryStore[K, V]) Put(key K, v clock.Versioned[V]) ([]clock.Versioned[V], error) {
	current := s.data[key]

	kept := make([]clock.Versioned[V], 0, len(current)+1)
	kept = append(kept, clock.Versioned[V]{Version: v.Version, Value: s.clone(v.Value)})

	for _, sibling := range current {
		switch sibling.Version.Compare(v.Version) {
		case clock.Greater, clock.Equal:
			return nil, &StaleWriteError{
				Key:        fmt.Sprint(key),
				Incoming:   v.Version,
				Dominating: sibling.Version,
			}
		case clock.Concurrent:
			kept = append(kept, sibling)
		}
	}

	previous := s.copySiblings(current)
	s.data[key] = kept
	return previous, nil
}

// Len returns the number of keys with at least one stored version.
func (s *InMemoryStore[K, V]) Len() int {
	return len(s.data)
}

// copySiblings returns a fresh slice with cloned values. Clocks are
// immutable and shared as-is.
func (s *InMemoryStore[K, V]) copySiblings(siblings []clock.Versioned[V]) []clock.Versioned[V] {
	out := make([]clock.Versioned[V], 0, len(siblings))
	for _, sibling := range siblings {
		out = append(out, clock.Versioned[V]{Version: sibling.Version, Value: s.clone(sibling.Value)})
	}
	return out
}
