package ingress

import "context"

// Message is a keyed message received from an upstream queue.
type Message struct {
	Key  string
	Body string
}

// Publisher accepts messages for a key. *relay.Registry implements it.
type Publisher interface {
	Publish(key, message string) error
}

// Source yields messages from an upstream queue subscription.
// The channel is closed when the source is closed or its subscription ends.
type Source interface {
	Messages(ctx context.Context) (<-chan Message, error)
	Close() error
}
