package ingress

import (
	"context"
	"sync"
)

// DefaultChannelBufferSize is the default buffer size of a ChannelSource.
const DefaultChannelBufferSize = 100

// ChannelSource is an in-process Source backed by a buffered channel.
// Producers that live in the same process call Dispatch; an Adapter drains it.
type ChannelSource struct {
	mu     sync.RWMutex
	ch     chan Message
	closed bool
}

// NewChannelSource creates a channel-backed source. Sizes below one use
// DefaultChannelBufferSize.
func NewChannelSource(bufferSize int) *ChannelSource {
	if bufferSize < 1 {
		bufferSize = DefaultChannelBufferSize
	}
	return &ChannelSource{ch: make(chan Message, bufferSize)}
}

// Dispatch enqueues a message without blocking. It returns ErrBufferFull
// when the buffer is full and ErrSourceClosed after Close.
func (s *ChannelSource) Dispatch(ctx context.Context, key, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSourceClosed
	}

	select {
	case s.ch <- Message{Key: key, Body: body}:
		return nil
	default:
		return ErrBufferFull
	}
}

// Messages returns the channel of dispatched messages.
func (s *ChannelSource) Messages(ctx context.Context) (<-chan Message, error) {
	return s.ch, nil
}

// Close stops accepting messages and closes the channel once. Messages
// already buffered remain readable.
func (s *ChannelSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}
