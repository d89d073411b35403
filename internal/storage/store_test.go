package storage

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"irondb/internal/clock"
)

func newBytesStore() *InMemoryStore[string, []byte] {
	return NewInMemoryStore[string, []byte](bytes.Clone)
}

func vc(entries map[uint16]uint64) clock.VectorClock {
	return clock.FromEntries(entries, 1)
}

func TestInMemoryStore_GetNotFound(t *testing.T) {
	store := newBytesStore()
	siblings, err := store.Get("nonexistent")
	if err != nil {
		t.Fatalf("Get on unknown key should not fail: %v", err)
	}
	if len(siblings) != 0 {
		t.Errorf("Expected no siblings, got %d", len(siblings))
	}
}

// Scenario A: first write with a fresh clock.
func TestInMemoryStore_FirstWrite(t *testing.T) {
	store := NewInMemoryStore[string, string](nil)
	v := clock.NewVersioned("bar")

	previous, err := store.Put("foo", v)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if len(previous) != 0 {
		t.Errorf("Expected empty previous, got %d entries", len(previous))
	}

	siblings, _ := store.Get("foo")
	if len(siblings) != 1 {
		t.Fatalf("Expected 1 sibling, got %d", len(siblings))
	}
	if siblings[0].Value != "bar" {
		t.Errorf("Expected bar, got %s", siblings[0].Value)
	}
	if !siblings[0].Version.Equal(v.Version) {
		t.Errorf("Expected version %s, got %s", v.Version, siblings[0].Version)
	}
}

// Scenario B: a second fresh (empty) clock equals the stored empty clock and
// is rejected as stale.
func TestInMemoryStore_FreshClockOverFreshClockIsStale(t *testing.T) {
	store := NewInMemoryStore[string, string](nil)
	if _, err := store.Put("foo", clock.NewVersioned("bar")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	_, err := store.Put("foo", clock.NewVersioned("quux"))
	if !errors.Is(err, ErrStaleWrite) {
		t.Fatalf("Expected ErrStaleWrite, got %v", err)
	}

	siblings, _ := store.Get("foo")
	if len(siblings) != 1 || siblings[0].Value != "bar" {
		t.Errorf("Stored state changed after stale write: %+v", siblings)
	}
}

// Scenario C: incrementing the stored clock dominates and evicts it.
func TestInMemoryStore_IncrementedClockReplaces(t *testing.T) {
	store := NewInMemoryStore[string, string](nil)
	v0 := clock.NewVersioned("bar")
	if _, err := store.Put("foo", v0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	clock1 := v0.Version.Incremented(0, 1, clock.NowMillis())
	previous, err := store.Put("foo", clock.WithVersion(clock1, "quux"))
	if err != nil {
		t.Fatalf("Put with incremented clock failed: %v", err)
	}
	if len(previous) != 1 || previous[0].Value != "bar" {
		t.Errorf("Expected previous [bar], got %+v", previous)
	}

	siblings, _ := store.Get("foo")
	if len(siblings) != 1 {
		t.Fatalf("Expected 1 sibling, got %d", len(siblings))
	}
	if siblings[0].Value != "quux" || !siblings[0].Version.Equal(clock1) {
		t.Errorf("Expected quux@%s, got %s@%s", clock1, siblings[0].Value, siblings[0].Version)
	}
}

func TestInMemoryStore_ConcurrentWritesBecomeSiblings(t *testing.T) {
	store := newBytesStore()
	v1 := clock.WithVersion(vc(map[uint16]uint64{0: 1}), []byte("left"))
	v2 := clock.WithVersion(vc(map[uint16]uint64{1: 1}), []byte("right"))

	if _, err := store.Put("k", v1); err != nil {
		t.Fatalf("Put v1 failed: %v", err)
	}
	previous, err := store.Put("k", v2)
	if err != nil {
		t.Fatalf("Put v2 failed: %v", err)
	}
	if len(previous) != 1 {
		t.Errorf("Expected 1 previous sibling, got %d", len(previous))
	}

	siblings, _ := store.Get("k")
	if len(siblings) != 2 {
		t.Fatalf("Expected 2 siblings, got %d", len(siblings))
	}
	// Newest first.
	if string(siblings[0].Value) != "right" || string(siblings[1].Value) != "left" {
		t.Errorf("Unexpected sibling order: %s, %s", siblings[0].Value, siblings[1].Value)
	}
}

func TestInMemoryStore_DominatingWriteEvictsOnlyDominated(t *testing.T) {
	store := NewInMemoryStore[string, string](nil)
	mustPut := func(v clock.Versioned[string]) {
		t.Helper()
		if _, err := store.Put("k", v); err != nil {
			t.Fatalf("Put %s failed: %v", v.Value, err)
		}
	}

	mustPut(clock.WithVersion(vc(map[uint16]uint64{0: 1}), "a"))
	mustPut(clock.WithVersion(vc(map[uint16]uint64{1: 1}), "b"))

	// Dominates a ({0:1}) but is concurrent with b ({1:1}: writer 1 absent).
	mustPut(clock.WithVersion(vc(map[uint16]uint64{0: 2}), "c"))

	siblings, _ := store.Get("k")
	values := make([]string, 0, len(siblings))
	for _, s := range siblings {
		values = append(values, s.Value)
	}
	if !reflect.DeepEqual(values, []string{"c", "b"}) {
		t.Errorf("Expected [c b], got %v", values)
	}

	// Dominates both remaining siblings.
	mustPut(clock.WithVersion(vc(map[uint16]uint64{0: 3, 1: 2}), "d"))
	siblings, _ = store.Get("k")
	if len(siblings) != 1 || siblings[0].Value != "d" {
		t.Errorf("Expected only d, got %+v", siblings)
	}
}

func TestInMemoryStore_StaleWriteRejected(t *testing.T) {
	tests := []struct {
		name     string
		stored   clock.VectorClock
		incoming clock.VectorClock
	}{
		{
			name:     "older version",
			stored:   vc(map[uint16]uint64{0: 2}),
			incoming: vc(map[uint16]uint64{0: 1}),
		},
		{
			name:     "equal version resubmitted",
			stored:   vc(map[uint16]uint64{0: 2, 1: 1}),
			incoming: vc(map[uint16]uint64{0: 2, 1: 1}),
		},
		{
			name:     "empty clock under non-empty",
			stored:   vc(map[uint16]uint64{0: 1}),
			incoming: clock.New(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewInMemoryStore[string, string](nil)
			if _, err := store.Put("k", clock.WithVersion(tt.stored, "stored")); err != nil {
				t.Fatalf("Initial put failed: %v", err)
			}
			before, _ := store.Get("k")

			_, err := store.Put("k", clock.WithVersion(tt.incoming, "incoming"))
			if !errors.Is(err, ErrStaleWrite) {
				t.Fatalf("Expected ErrStaleWrite, got %v", err)
			}
			var stale *StaleWriteError
			if !errors.As(err, &stale) {
				t.Fatalf("Expected *StaleWriteError, got %T", err)
			}
			if !stale.Dominating.Equal(tt.stored) {
				t.Errorf("Expected dominating %s, got %s", tt.stored, stale.Dominating)
			}
			if stale.Key != "k" {
				t.Errorf("Expected key k, got %s", stale.Key)
			}

			after, _ := store.Get("k")
			if !reflect.DeepEqual(before, after) {
				t.Errorf("Stored siblings changed after stale write")
			}
		})
	}
}

func TestInMemoryStore_GetIsIdempotent(t *testing.T) {
	store := newBytesStore()
	store.Put("k", clock.WithVersion(vc(map[uint16]uint64{0: 1}), []byte("a")))
	store.Put("k", clock.WithVersion(vc(map[uint16]uint64{1: 1}), []byte("b")))

	first, _ := store.Get("k")
	for i := 0; i < 5; i++ {
		again, _ := store.Get("k")
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Get %d returned a different sequence", i)
		}
	}
}

func TestInMemoryStore_DistinctKeysDoNotInteract(t *testing.T) {
	store := NewInMemoryStore[string, string](nil)
	store.Put("a", clock.WithVersion(vc(map[uint16]uint64{0: 5}), "a"))
	if _, err := store.Put("b", clock.WithVersion(vc(map[uint16]uint64{0: 1}), "b")); err != nil {
		t.Fatalf("Write to another key should not be stale: %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("Expected 2 keys, got %d", store.Len())
	}
}

func TestInMemoryStore_GetReturnsCopy(t *testing.T) {
	store := newBytesStore()
	store.Put("key1", clock.NewVersioned([]byte("value1")))

	vv1, _ := store.Get("key1")
	vv2, _ := store.Get("key1")

	// Modify the returned value
	vv1[0].Value[0] = 'X'

	// Second get should not be affected
	if reflect.DeepEqual(vv1[0].Value, vv2[0].Value) {
		t.Error("Get should return independent copies")
	}
}

func TestInMemoryStore_PutCopiesInput(t *testing.T) {
	store := newBytesStore()
	value := []byte("value1")
	store.Put("key1", clock.NewVersioned(value))

	value[0] = 'X'

	siblings, _ := store.Get("key1")
	if string(siblings[0].Value) != "value1" {
		t.Errorf("Store should not alias caller's value, got %s", siblings[0].Value)
	}
}
