package clock

// Versioned pairs a value with the vector clock that produced it.
type Versioned[T any] struct {
	Version VectorClock
	Value   T
}

// NewVersioned wraps value with a fresh empty clock timestamped now.
func NewVersioned[T any](value T) Versioned[T] {
	return Versioned[T]{Version: New(), Value: value}
}

// WithVersion wraps value with a caller-supplied clock, typically one read
// earlier and advanced by the writer.
func WithVersion[T any](version VectorClock, value T) Versioned[T] {
	return Versioned[T]{Version: version, Value: value}
}

// CompareVersions returns the causal relationship of v's clock to other's.
func (v Versioned[T]) CompareVersions(other Versioned[T]) Ordering {
	return v.Version.Compare(other.Version)
}
