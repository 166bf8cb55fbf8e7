package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/dmitrymomot/keyrelay/core/logger"
)

// shard is one independently locked partition of the key map.
type shard struct {
	mu     sync.RWMutex
	relays map[string]*Relay
}

// Registry maps keys to open relays. It creates a relay on the first Listen
// for a key, routes publishes to it and evicts it once it completes or is
// removed. A key is present only while its relay is open, so a later Listen
// with the same key starts a fresh relay.
//
// Registry is safe for concurrent use. Operations on different keys only
// contend when the keys hash to the same shard.
type Registry struct {
	shards      []*shard
	shardCount  int
	maxBuffered int
	logger      *slog.Logger
	observer    Observer
	closed      atomic.Bool

	relaysCreated     atomic.Int64
	relaysCompleted   atomic.Int64
	relaysClosed      atomic.Int64
	messagesPublished atomic.Int64
	messagesRejected  atomic.Int64
}

// RegistryStats provides observability counters for a Registry.
type RegistryStats struct {
	RelaysCreated     int64 // Relays created by Listen
	RelaysCompleted   int64 // Relays that reached their expected count
	RelaysClosed      int64 // Relays terminated by RemovePublisher or Close
	MessagesPublished int64 // Messages accepted into a relay
	MessagesRejected  int64 // Publishes that failed (unknown key, full buffer)
	ActiveRelays      int   // Relays currently present in the registry
}

// NewRegistry creates an empty registry.
//
// Example:
//
//	reg := relay.NewRegistry(relay.WithLogger(log), relay.WithMaxBuffered(1000))
//	defer reg.Close()
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		shardCount: DefaultShards,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer:   noopObserver{},
	}

	for _, opt := range opts {
		opt(r)
	}

	r.shards = make([]*shard, r.shardCount)
	for i := range r.shards {
		r.shards[i] = &shard{relays: make(map[string]*Relay)}
	}

	return r
}

// NewRegistryFromConfig creates a registry from cfg. Options are applied
// after the config and override it.
func NewRegistryFromConfig(cfg Config, opts ...RegistryOption) *Registry {
	base := []RegistryOption{
		WithShards(cfg.Shards),
		WithMaxBuffered(cfg.MaxBuffered),
	}
	return NewRegistry(append(base, opts...)...)
}

func (r *Registry) shard(key string) *shard {
	return r.shards[xxhash.Sum64String(key)%uint64(len(r.shards))]
}

// Listen returns the message sequence for key, creating a relay sized to
// expected if none is open. When a relay already exists its original size
// is kept. A relay accepts a single subscriber; a second Listen on the same
// open key fails with ErrAlreadySubscribed.
func (r *Registry) Listen(ctx context.Context, key string, expected int) (<-chan string, error) {
	rl, err := r.open(key, expected)
	if err != nil {
		return nil, err
	}

	ch, err := rl.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("listen on %q: %w", key, err)
	}

	r.logger.DebugContext(ctx, "relay subscribed",
		logger.RelayKey(key),
		logger.RelayID(rl.ID()),
		logger.Expected(rl.Expected()))

	return ch, nil
}

// open returns the open relay for key, creating it if necessary.
func (r *Registry) open(key string, expected int) (*Relay, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if expected < 1 {
		return nil, ErrInvalidExpectedCount
	}
	if r.closed.Load() {
		return nil, ErrRegistryClosed
	}

	s := r.shard(key)

	s.mu.RLock()
	rl, ok := s.relays[key]
	s.mu.RUnlock()
	if ok && rl.Reason() == ReasonOpen {
		return rl, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Close sets the flag before sweeping the shards, so a relay inserted
	// under the shard lock after this check is swept too.
	if r.closed.Load() {
		return nil, ErrRegistryClosed
	}

	// A terminal relay may linger between its completion and its eviction;
	// it is replaced rather than reused.
	if rl, ok := s.relays[key]; ok && rl.Reason() == ReasonOpen {
		return rl, nil
	}

	rl, err := NewRelay(key, expected, r.maxBuffered)
	if err != nil {
		return nil, err
	}
	s.relays[key] = rl
	r.relaysCreated.Add(1)
	r.observer.RelayOpened(key, expected)

	r.logger.Info("relay created",
		logger.RelayKey(key),
		logger.RelayID(rl.ID()),
		logger.Expected(expected))

	return rl, nil
}

func (r *Registry) lookup(key string) (*shard, *Relay, bool) {
	s := r.shard(key)
	s.mu.RLock()
	rl, ok := s.relays[key]
	s.mu.RUnlock()
	return s, rl, ok
}

// evict removes key from s only if it still maps to rl.
func (r *Registry) evict(s *shard, key string, rl *Relay) {
	s.mu.Lock()
	if cur, ok := s.relays[key]; ok && cur == rl {
		delete(s.relays, key)
	}
	s.mu.Unlock()
}

// Publish routes message to the relay open for key. It fails with
// ErrUnknownKey if no relay is open for key, including when the relay has
// just completed. A publish that finds the relay already terminal matches
// both ErrUnknownKey and ErrRelayClosed. When the message completes the relay, the relay is
// evicted and its subscriber's sequence ends after delivering it.
func (r *Registry) Publish(key, message string) error {
	if key == "" {
		return ErrEmptyKey
	}

	s, rl, ok := r.lookup(key)
	if !ok {
		return r.reject(key, fmt.Errorf("publish to %q: %w", key, ErrUnknownKey))
	}

	completed, err := rl.Publish(message)
	switch {
	case errors.Is(err, ErrRelayClosed):
		// The relay terminated between lookup and publish. Still an unknown
		// key to the caller, but marked so retry logic can tell a late
		// message from an early one.
		return r.reject(key, fmt.Errorf("publish to %q: %w: %w", key, ErrUnknownKey, ErrRelayClosed))
	case err != nil:
		return r.reject(key, fmt.Errorf("publish to %q: %w", key, err))
	}

	r.messagesPublished.Add(1)
	r.observer.MessagePublished(key)

	if completed {
		r.evict(s, key, rl)
		r.relaysCompleted.Add(1)
		r.observer.RelayFinished(key, ReasonCompleted, rl.Expected())
		r.logger.Info("relay completed",
			logger.RelayKey(key),
			logger.RelayID(rl.ID()),
			logger.Delivered(rl.Expected()))
	}

	return nil
}

func (r *Registry) reject(key string, err error) error {
	r.messagesRejected.Add(1)
	r.observer.MessageRejected(key, err)
	r.logger.Debug("publish rejected", logger.RelayKey(key), logger.Error(err))
	return err
}

// RemovePublisher force-closes the relay open for key and evicts it. Its
// subscriber's sequence ends gracefully after the messages already accepted.
// It fails with ErrUnknownKey if no relay is open for key, so a second call
// for the same key fails.
func (r *Registry) RemovePublisher(key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	s := r.shard(key)

	s.mu.Lock()
	rl, ok := s.relays[key]
	if ok {
		delete(s.relays, key)
	}
	s.mu.Unlock()

	if !ok || !rl.ForceClose() {
		return fmt.Errorf("remove %q: %w", key, ErrUnknownKey)
	}

	r.finishClosed(rl)
	return nil
}

func (r *Registry) finishClosed(rl *Relay) {
	received := rl.Received()
	r.relaysClosed.Add(1)
	r.observer.RelayFinished(rl.Key(), ReasonClosed, received)
	r.logger.Info("relay closed",
		logger.RelayKey(rl.Key()),
		logger.RelayID(rl.ID()),
		logger.Expected(rl.Expected()),
		logger.Delivered(received))
}

// Len returns the number of relays currently open.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.relays)
		s.mu.RUnlock()
	}
	return n
}

// Stats returns current registry counters. It is safe to call at any time.
func (r *Registry) Stats() RegistryStats {
	return RegistryStats{
		RelaysCreated:     r.relaysCreated.Load(),
		RelaysCompleted:   r.relaysCompleted.Load(),
		RelaysClosed:      r.relaysClosed.Load(),
		MessagesPublished: r.messagesPublished.Load(),
		MessagesRejected:  r.messagesRejected.Load(),
		ActiveRelays:      r.Len(),
	}
}

// Healthcheck reports an error once the registry has been closed.
func (r *Registry) Healthcheck(ctx context.Context) error {
	if r.closed.Load() {
		return ErrRegistryClosed
	}
	return nil
}

// Close force-closes and evicts every open relay. Listen fails afterwards.
// Close is idempotent.
func (r *Registry) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	var drained []*Relay
	for _, s := range r.shards {
		s.mu.Lock()
		for key, rl := range s.relays {
			drained = append(drained, rl)
			delete(s.relays, key)
		}
		s.mu.Unlock()
	}

	for _, rl := range drained {
		if rl.ForceClose() {
			r.finishClosed(rl)
		}
	}

	r.logger.Info("relay registry closed", logger.Count("relays_closed", len(drained)))
	return nil
}
