package redis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/keyrelay/core/ingress"
	"github.com/dmitrymomot/keyrelay/core/logger"
)

// SourceConfig selects which Redis channels feed the relay.
type SourceConfig struct {
	// ChannelPrefix is subscribed to with a pattern; the rest of the channel
	// name becomes the relay key. "relay:order:42" publishes to "order:42".
	ChannelPrefix string `env:"INGRESS_CHANNEL_PREFIX" envDefault:"relay:"`
}

// Source is an ingress.Source fed by Redis pub/sub.
type Source struct {
	client *redis.Client
	prefix string
	logger *slog.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
}

var _ ingress.Source = (*Source)(nil)

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithSourceLogger sets the source logger.
func WithSourceLogger(l *slog.Logger) SourceOption {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSource creates a Source that subscribes on client.
func NewSource(client *redis.Client, cfg SourceConfig, opts ...SourceOption) *Source {
	s := &Source{
		client: client,
		prefix: cfg.ChannelPrefix,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Messages subscribes to "<prefix>*" and returns the translated messages.
// The channel closes when ctx is done or Close is called.
func (s *Source) Messages(ctx context.Context) (<-chan ingress.Message, error) {
	pattern := s.prefix + "*"
	ps := s.client.PSubscribe(ctx, pattern)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	s.mu.Lock()
	s.pubsub = ps
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "redis ingress subscribed",
		logger.Component("ingress"),
		logger.Source(pattern))

	out := make(chan ingress.Message)
	go forward(ctx, ps.Channel(), out, s.prefix, s.logger)
	return out, nil
}

// Close ends the subscription.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pubsub == nil {
		return nil
	}
	err := s.pubsub.Close()
	s.pubsub = nil
	return err
}

// forward translates Redis messages into ingress messages until in closes
// or ctx is done. Messages on channels without a key are skipped.
func forward(ctx context.Context, in <-chan *redis.Message, out chan<- ingress.Message, prefix string, log *slog.Logger) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			key := strings.TrimPrefix(m.Channel, prefix)
			if key == "" {
				log.WarnContext(ctx, "redis message without relay key skipped",
					logger.Component("ingress"),
					logger.Source(m.Channel))
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- ingress.Message{Key: key, Body: m.Payload}:
			}
		}
	}
}
