package relay

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Reason describes how a relay reached its terminal state.
type Reason int

const (
	// ReasonOpen means the relay has not terminated yet.
	ReasonOpen Reason = iota
	// ReasonCompleted means the expected number of messages was received.
	ReasonCompleted
	// ReasonClosed means the relay was force-closed before reaching its expected count.
	ReasonClosed
)

// String returns the lowercase name of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonCompleted:
		return "completed"
	case ReasonClosed:
		return "closed"
	default:
		return "open"
	}
}

// Relay buffers messages published under one key and delivers them, in
// publish order, to a single subscriber. It terminates after a fixed number
// of messages or when force-closed.
//
// Relay is safe for concurrent use by one publisher side and one consumer.
type Relay struct {
	id          string
	key         string
	expected    int
	maxBuffered int

	mu       sync.Mutex
	queue     []string
	received  int
	delivered int
	reason    Reason

	subscribed atomic.Bool
	ready      chan struct{} // signalled (non-blocking) on every state change
	done       chan struct{} // closed once the relay is terminal
}

// NewRelay creates an open relay that completes after expected messages.
// maxBuffered caps the number of undelivered messages; zero means unbounded.
func NewRelay(key string, expected, maxBuffered int) (*Relay, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if expected < 1 {
		return nil, ErrInvalidExpectedCount
	}
	if maxBuffered < 0 {
		maxBuffered = 0
	}

	return &Relay{
		id:          uuid.New().String(),
		key:         key,
		expected:    expected,
		maxBuffered: maxBuffered,
		ready:       make(chan struct{}, 1),
		done:        make(chan struct{}),
	}, nil
}

// ID returns the unique identifier assigned to this relay instance.
func (r *Relay) ID() string { return r.id }

// Key returns the key the relay was created for.
func (r *Relay) Key() string { return r.key }

// Expected returns the number of messages after which the relay completes.
func (r *Relay) Expected() int { return r.expected }

// Received returns how many messages have been accepted so far.
func (r *Relay) Received() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.received
}

// Buffered returns how many accepted messages are waiting for the subscriber.
func (r *Relay) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Delivered returns how many messages the subscriber has taken from the
// sequence channel.
func (r *Relay) Delivered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.delivered
}

// Drained reports whether the relay is terminal and every accepted message
// reached the subscriber.
func (r *Relay) Drained() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reason != ReasonOpen && r.delivered == r.received
}

// Reason reports the terminal state of the relay, or ReasonOpen.
func (r *Relay) Reason() Reason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reason
}

// Done returns a channel that is closed once the relay has completed or been closed.
func (r *Relay) Done() <-chan struct{} { return r.done }

// Publish appends message to the buffer. It reports true when this call
// made the relay reach its expected count; the caller owns eviction then.
// Messages are buffered even when nobody has subscribed yet.
func (r *Relay) Publish(message string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reason != ReasonOpen {
		return false, ErrRelayClosed
	}
	if r.maxBuffered > 0 && len(r.queue) >= r.maxBuffered {
		return false, ErrBufferFull
	}

	r.queue = append(r.queue, message)
	r.received++

	completed := r.received == r.expected
	if completed {
		r.terminate(ReasonCompleted)
	}
	r.signal()

	return completed, nil
}

// ForceClose terminates the relay regardless of how many messages were
// received. Messages already accepted are still delivered before the
// subscription ends. It reports whether this call closed the relay.
func (r *Relay) ForceClose() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reason != ReasonOpen {
		return false
	}
	r.terminate(ReasonClosed)
	r.signal()
	return true
}

// Subscribe returns the relay's message sequence. The channel yields every
// message in publish order and is closed when the relay has terminated and
// its buffer is drained, or when ctx is done. Only one subscription is
// allowed per relay; later calls return ErrAlreadySubscribed.
func (r *Relay) Subscribe(ctx context.Context) (<-chan string, error) {
	if !r.subscribed.CompareAndSwap(false, true) {
		return nil, ErrAlreadySubscribed
	}

	out := make(chan string)
	go r.pump(ctx, out)
	return out, nil
}

// terminate must be called with mu held.
func (r *Relay) terminate(reason Reason) {
	r.reason = reason
	close(r.done)
}

// signal must be called with mu held.
func (r *Relay) signal() {
	select {
	case r.ready <- struct{}{}:
	default:
	}
}

func (r *Relay) pump(ctx context.Context, out chan<- string) {
	defer close(out)

	for {
		msg, ok, finished := r.peek()
		if finished {
			return
		}
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-r.ready:
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case out <- msg:
			r.ack()
		}
	}
}

// peek returns the oldest buffered message without removing it. finished is
// true once the relay is terminal and nothing is left to deliver.
func (r *Relay) peek() (msg string, ok, finished bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.queue) > 0 {
		return r.queue[0], true, false
	}
	return "", false, r.reason != ReasonOpen
}

// ack drops the head of the queue after the subscriber has received it.
// Only the pump removes from the queue, so the head is the peeked message.
func (r *Relay) ack() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queue[0] = ""
	r.queue = r.queue[1:]
	r.delivered++
}
