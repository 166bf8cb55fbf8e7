package ingress

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dmitrymomot/keyrelay/core/logger"
	"github.com/dmitrymomot/keyrelay/core/relay"
)

// Adapter feeds messages from a Source into a Publisher. Per-key publish
// order matches the order the source delivered them.
//
// A message whose key has no open relay may be retried with backoff (see
// WithRetry); it covers messages that arrive just before their consumer
// starts listening. A retrying message parks its key in a retry lane: later
// messages for that key queue behind it while other keys keep flowing.
// Messages that still fail are logged and counted as dropped.
type Adapter struct {
	source    Source
	publisher Publisher
	logger    *slog.Logger

	retryAttempts int
	retryInterval time.Duration
	retryable     func(error) bool

	lanesMu sync.Mutex
	lanes   map[string][]Message
	lanesWG sync.WaitGroup

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
	running atomic.Bool

	received  atomic.Int64
	published atomic.Int64
	dropped   atomic.Int64
}

// AdapterStats provides observability counters for an Adapter.
type AdapterStats struct {
	Received  int64 // Messages read from the source
	Published int64 // Messages accepted by the publisher
	Dropped   int64 // Messages that failed after all retries
	IsRunning bool
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithAdapterLogger sets the adapter logger.
func WithAdapterLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithRetry retries retryable publish failures up to attempts times with
// exponential backoff starting at interval. Zero attempts disables retries.
//
// A message for a key whose relay was already evicted looks the same as one
// that arrived before its listener, so with retries enabled a late duplicate
// can land in the next relay opened for that key. Enable retries only when
// keys are not reused.
func WithRetry(attempts int, interval time.Duration) AdapterOption {
	return func(a *Adapter) {
		if attempts >= 0 {
			a.retryAttempts = attempts
		}
		if interval > 0 {
			a.retryInterval = interval
		}
	}
}

// WithRetryable overrides which publish errors are retried. By default only
// relay.ErrUnknownKey is, unless the error also matches relay.ErrRelayClosed
// (the relay terminated under the publish).
func WithRetryable(fn func(error) bool) AdapterOption {
	return func(a *Adapter) {
		if fn != nil {
			a.retryable = fn
		}
	}
}

// NewAdapter creates an adapter that publishes everything from source.
func NewAdapter(source Source, publisher Publisher, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		source:        source,
		publisher:     publisher,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		retryInterval: 50 * time.Millisecond,
		retryable:     defaultRetryable,
		lanes:         make(map[string][]Message),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Start consumes the source until ctx is cancelled, Stop is called or the
// source's channel closes. It blocks; use Run for errgroup integration.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.cancel != nil {
		a.mu.Unlock()
		return ErrAdapterAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.stopped = make(chan struct{})
	stopped := a.stopped
	a.mu.Unlock()

	a.running.Store(true)
	defer func() {
		cancel()
		a.lanesWG.Wait()
		a.running.Store(false)
		a.mu.Lock()
		if a.stopped == stopped {
			a.cancel = nil
		}
		a.mu.Unlock()
		close(stopped)
	}()

	msgs, err := a.source.Messages(ctx)
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "ingress adapter started", logger.Component("ingress"))

	for {
		select {
		case <-ctx.Done():
			a.logger.InfoContext(context.Background(), "ingress adapter stopping", logger.Component("ingress"))
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				a.logger.InfoContext(ctx, "ingress source closed", logger.Component("ingress"))
				a.lanesWG.Wait()
				return nil
			}
			a.handle(ctx, msg)
		}
	}
}

// Stop cancels a running Start and waits for it to return.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	if a.cancel == nil {
		a.mu.Unlock()
		return ErrAdapterNotStarted
	}
	cancel, stopped := a.cancel, a.stopped
	a.cancel = nil
	a.mu.Unlock()

	cancel()
	<-stopped
	return nil
}

// Run returns a function suitable for errgroup.Group.Go. Cancellation of ctx
// is treated as a normal shutdown.
func (a *Adapter) Run(ctx context.Context) func() error {
	return func() error {
		err := a.Start(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}
}

// Stats returns the adapter counters.
func (a *Adapter) Stats() AdapterStats {
	return AdapterStats{
		Received:  a.received.Load(),
		Published: a.published.Load(),
		Dropped:   a.dropped.Load(),
		IsRunning: a.running.Load(),
	}
}

func defaultRetryable(err error) bool {
	return errors.Is(err, relay.ErrUnknownKey) && !errors.Is(err, relay.ErrRelayClosed)
}

// handle runs on the consumer goroutine. It publishes directly unless the
// key already has a retry lane, and opens a lane on a retryable failure.
func (a *Adapter) handle(ctx context.Context, msg Message) {
	a.received.Add(1)

	a.lanesMu.Lock()
	if q, ok := a.lanes[msg.Key]; ok {
		a.lanes[msg.Key] = append(q, msg)
		a.lanesMu.Unlock()
		return
	}
	a.lanesMu.Unlock()

	err := a.publisher.Publish(msg.Key, msg.Body)
	switch {
	case err == nil:
		a.published.Add(1)
	case a.retryAttempts == 0 || !a.retryable(err):
		a.drop(ctx, msg, 0, err)
	default:
		a.lanesMu.Lock()
		a.lanes[msg.Key] = []Message{msg}
		a.lanesMu.Unlock()

		a.lanesWG.Add(1)
		go a.retryLane(ctx, msg.Key)
	}
}

// retryLane drains the lane for key in order, then removes it. The head
// message has already failed once.
func (a *Adapter) retryLane(ctx context.Context, key string) {
	defer a.lanesWG.Done()

	tried := true
	for {
		a.lanesMu.Lock()
		q := a.lanes[key]
		if len(q) == 0 {
			delete(a.lanes, key)
			a.lanesMu.Unlock()
			return
		}
		msg := q[0]
		a.lanesMu.Unlock()

		attempts, err := a.publishWithRetry(ctx, msg, tried)
		tried = false

		a.lanesMu.Lock()
		a.lanes[key] = a.lanes[key][1:]
		a.lanesMu.Unlock()

		if err != nil {
			a.drop(ctx, msg, attempts-1, err)
			continue
		}
		a.published.Add(1)
	}
}

// publishWithRetry publishes msg, retrying retryable errors with exponential
// backoff. When tried is set the first attempt already happened, so it waits
// one interval and spends one retry less. It returns the number of attempts.
func (a *Adapter) publishWithRetry(ctx context.Context, msg Message, tried bool) (int, error) {
	attempts := 0
	maxRetries := a.retryAttempts
	if tried {
		attempts = 1
		maxRetries--

		timer := time.NewTimer(a.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempts, ctx.Err()
		case <-timer.C:
		}
	}

	op := func() error {
		attempts++
		err := a.publisher.Publish(msg.Key, msg.Body)
		if err == nil || a.retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.retryInterval
	b.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(maxRetries, 0))), ctx))
	return attempts, err
}

func (a *Adapter) drop(ctx context.Context, msg Message, retries int, err error) {
	a.dropped.Add(1)
	a.logger.WarnContext(ctx, "ingress message dropped",
		logger.Component("ingress"),
		logger.RelayKey(msg.Key),
		logger.RetryCount(retries),
		logger.Error(err))
}
