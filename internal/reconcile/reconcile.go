package reconcile

import (
	"irondb/internal/clock"
)

// Result represents the result of reconciling multiple versions.
type Result[V any] struct {
	// Winners is the maximal set of non-dominated versions (siblings).
	// If len(Winners) == 1, there's a single winner.
	// If len(Winners) > 1, there are concurrent versions (conflicts).
	Winners []clock.Versioned[V]

	// Stale holds every version dominated by at least one other version.
	Stale []clock.Versioned[V]
}

// Reconcile computes the maximal set of versions from the given list.
// Versions with equal clocks are collapsed into the first one seen.
func Reconcile[V any](values []clock.Versioned[V]) Result[V] {
	winners := make([]clock.Versioned[V], 0, len(values))
	stale := make([]clock.Versioned[V], 0)

	for i, v1 := range values {
		isDominated := false

		// Check if v1 is dominated by any other version
		for j, v2 := range values {
			if i == j {
				continue
			}
			if v2.Version.Dominates(v1.Version) {
				isDominated = true
				break
			}
		}

		if isDominated {
			stale = append(stale, v1)
			continue
		}

		isDuplicate := false
		for _, winner := range winners {
			if v1.Version.Equal(winner.Version) {
				isDuplicate = true
				break
			}
		}
		if !isDuplicate {
			winners = append(winners, v1)
		}
	}

	return Result[V]{
		Winners: winners,
		Stale:   stale,
	}
}

// HasConflict returns true if there are multiple winners (conflicts).
func (r *Result[V]) HasConflict() bool {
	return len(r.Winners) > 1
}

// IsResolved returns true if there's exactly one winner (no conflict).
func (r *Result[V]) IsResolved() bool {
	return len(r.Winners) == 1
}

// IsNotFound returns true if there are no winners.
func (r *Result[V]) IsNotFound() bool {
	return len(r.Winners) == 0
}

// MergedClock returns the pointwise maximum of all version clocks.
func MergedClock[V any](values []clock.Versioned[V]) clock.VectorClock {
	merged := clock.NewAt(0)
	for _, v := range values {
		merged = merged.Merge(v.Version)
	}
	return merged
}

// Successor returns a clock, timestamped ts, that is greater than every
// given version, so a write carrying it replaces all of them.
//
// Because a clock is only ordered before another when every shared writer's
// counter is strictly smaller, every writer of the merged clock is advanced
// by one, and writer is added when absent.
func Successor[V any](writer uint16, ts int64, values []clock.Versioned[V]) clock.VectorClock {
	merged := MergedClock(values)
	next := merged
	for _, w := range merged.Writers() {
		next = next.Incremented(w, 1, ts)
	}
	if !merged.Has(writer) {
		next = next.Incremented(writer, 1, ts)
	}
	return next
}
