package storage

import (
	"errors"
	"fmt"

	"irondb/internal/clock"
)

var (
	// ErrStaleWrite matches any *StaleWriteError via errors.Is.
	ErrStaleWrite = errors.New("stale write")
	// ErrActorUnavailable is returned when the store worker has terminated.
	ErrActorUnavailable = errors.New("store actor unavailable")
	// ErrResponseLost is returned when the worker terminated before replying
	// to an accepted request. The outcome of the operation is unknown.
	ErrResponseLost = errors.New("store response lost")
)

// StaleWriteError reports a put rejected because a stored sibling's clock is
// greater than or equal to the incoming clock.
type StaleWriteError struct {
	Key        string
	Incoming   clock.VectorClock
	Dominating clock.VectorClock
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("stale write for key %q: incoming version %s is dominated by stored version %s",
		e.Key, e.Incoming, e.Dominating)
}

// Is reports whether target is ErrStaleWrite.
func (e *StaleWriteError) Is(target error) bool {
	return target == ErrStaleWrite
}
