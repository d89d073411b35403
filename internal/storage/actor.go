package storage

import (
	"context"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"irondb/internal/clock"
)

type opKind int

const (
	opGet opKind = iota
	opPut
)

// queueCapacity bounds the request queue: a second caller blocks until the
// worker has taken the first request.
const queueCapacity = 1

type request[K comparable, V any] struct {
	op    opKind
	key   K
	value clock.Versioned[V]
	reply chan result[V]
}

type result[V any] struct {
	siblings []clock.Versioned[V]
	err      error
}

// ActorOption configures an Actor.
type ActorOption func(*actorOptions)

type actorOptions struct {
	logger zerolog.Logger
	onKeys func(int)
}

// WithLogger sets the logger used to report worker termination.
func WithLogger(logger zerolog.Logger) ActorOption {
	return func(o *actorOptions) {
		o.logger = logger
	}
}

// WithKeyCountHook registers fn to receive the number of stored keys after
// every successful put. Only used when the store exposes Len() int.
func WithKeyCountHook(fn func(int)) ActorOption {
	return func(o *actorOptions) {
		o.onKeys = fn
	}
}

// Actor serializes all access to a Store through a single worker goroutine.
// The worker owns the store exclusively; callers send requests over a
// one-slot queue and wait on a private reply channel.
type Actor[K comparable, V any] struct {
	requests  chan request[K, V]
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	log       zerolog.Logger
	onKeys    func(int)
}

// NewActor starts a worker that takes ownership of store. The caller must not
// touch store afterwards.
func NewActor[K comparable, V any](store Store[K, V], opts ...ActorOption) *Actor[K, V] {
	o := actorOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	a := &Actor[K, V]{
		requests: make(chan request[K, V], queueCapacity),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		log:      o.logger.With().Str("component", "store-actor").Logger(),
		onKeys:   o.onKeys,
	}
	go a.run(store)
	return a
}

// Get returns the siblings stored for key.
func (a *Actor[K, V]) Get(ctx context.Context, key K) ([]clock.Versioned[V], error) {
	return a.call(ctx, request[K, V]{op: opGet, key: key})
}

// Put applies v to key and returns the siblings present before the write.
func (a *Actor[K, V]) Put(ctx context.Context, key K, v clock.Versioned[V]) ([]clock.Versioned[V], error) {
	return a.call(ctx, request[K, V]{op: opPut, key: key, value: v})
}

// Done returns a channel that is closed once the worker has exited.
func (a *Actor[K, V]) Done() <-chan struct{} {
	return a.done
}

// Close stops the worker and waits for it to exit. Requests still queued
// fail with ErrActorUnavailable. Close is idempotent.
func (a *Actor[K, V]) Close() {
	a.closeOnce.Do(func() {
		close(a.quit)
	})
	<-a.done
}

func (a *Actor[K, V]) call(ctx context.Context, req request[K, V]) ([]clock.Versioned[V], error) {
	// Reply has room for one result so the worker never blocks on a caller
	// that gave up waiting.
	req.reply = make(chan result[V], 1)

	select {
	case <-a.done:
		return nil, ErrActorUnavailable
	default:
	}

	select {
	case a.requests <- req:
	case <-a.done:
		return nil, ErrActorUnavailable
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.siblings, res.err
	case <-a.done:
		select {
		case res := <-req.reply:
			return res.siblings, res.err
		default:
			return nil, ErrResponseLost
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Actor[K, V]) run(store Store[K, V]) {
	// The worker keeps its own OS thread for its whole lifetime.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	defer close(a.done)
	defer a.drain()
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Interface("panic", r).Msg("store worker terminated")
		}
	}()

	counter, _ := store.(interface{ Len() int })

	for {
		select {
		case <-a.quit:
			a.log.Debug().Msg("store worker stopped")
			return
		case req := <-a.requests:
			var res result[V]
			switch req.op {
			case opGet:
				res.siblings, res.err = store.Get(req.key)
			case opPut:
				res.siblings, res.err = store.Put(req.key, req.value)
				if res.err == nil && counter != nil && a.onKeys != nil {
					a.onKeys(counter.Len())
				}
			}
			req.reply <- res
		}
	}
}

// drain fails requests left in the queue after the worker stops.
func (a *Actor[K, V]) drain() {
	for {
		select {
		case req := <-a.requests:
			req.reply <- result[V]{err: ErrActorUnavailable}
		default:
			return
		}
	}
}
