package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/keyrelay/core/logger"
)

// Collect listens on key and gathers every delivered message until the
// relay terminates. When ctx ends before every accepted message has been
// delivered, Collect removes the relay so the publisher side sees
// ErrUnknownKey, and returns the messages received so far together with
// ctx.Err(). A nil error always comes with every message the relay accepted.
//
// Example:
//
//	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
//	defer cancel()
//	msgs, err := reg.Collect(ctx, "order:42", 3)
func (r *Registry) Collect(ctx context.Context, key string, expected int) ([]string, error) {
	rl, err := r.open(key, expected)
	if err != nil {
		return nil, err
	}

	ch, err := rl.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect on %q: %w", key, err)
	}

	msgs := make([]string, 0, rl.Expected())
	for msg := range ch {
		msgs = append(msgs, msg)
	}

	if rl.Drained() && len(msgs) == rl.Delivered() {
		return msgs, nil
	}

	if rmErr := r.RemovePublisher(key); rmErr != nil && !errors.Is(rmErr, ErrUnknownKey) {
		r.logger.WarnContext(ctx, "failed to remove relay after cancellation",
			logger.RelayKey(key),
			logger.Error(rmErr))
	}

	r.logger.DebugContext(ctx, "collect ended early",
		logger.RelayKey(key),
		logger.Delivered(len(msgs)),
		logger.Error(ctx.Err()))

	return msgs, ctx.Err()
}
