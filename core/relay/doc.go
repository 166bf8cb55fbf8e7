// Package relay implements an in-process keyed message relay.
//
// Producers publish string messages under a key; a single consumer listens
// on that key and receives every message published to it, in publish order,
// as a channel. Each relay is sized by an expected message count: once that
// many messages have been published the relay completes, the consumer's
// channel closes after the last message, and the key is evicted so a later
// Listen starts a fresh relay.
//
// # Core Components
//
// Relay is the per-key buffer. Publish never blocks on the consumer: messages
// queue until the subscriber reads them, so nothing published before
// Subscribe is lost. A buffer cap can be set with WithMaxBuffered; it is
// unbounded by default.
//
// Registry maps keys to open relays. It is an ordinary value owned by the
// component that composes the system; there is no package-level instance.
// The key map is split into shards with one lock each, so unrelated keys do
// not serialize on a single mutex.
//
// # Basic Usage
//
//	reg := relay.NewRegistry(relay.WithLogger(log))
//	defer reg.Close()
//
//	msgs, err := reg.Listen(ctx, "order:42", 3)
//	if err != nil {
//		return err
//	}
//
//	go func() {
//		_ = reg.Publish("order:42", "created")
//		_ = reg.Publish("order:42", "paid")
//		_ = reg.Publish("order:42", "shipped")
//	}()
//
//	for m := range msgs {
//		fmt.Println(m)
//	}
//
// # Timeouts
//
// The registry never times out on its own. A consumer that gives up calls
// RemovePublisher, which closes the relay gracefully and evicts the key.
// Collect wraps this pattern around a context deadline.
//
// # Errors
//
//   - ErrUnknownKey: Publish or RemovePublisher on a key with no open relay
//   - ErrAlreadySubscribed: a second Listen on a key that already has a consumer
//   - ErrBufferFull: the relay's buffer cap was reached
//   - ErrInvalidExpectedCount, ErrEmptyKey: invalid arguments
//
// Completion and forced close both end the sequence without an error; use
// Relay.Reason or an Observer to tell them apart.
package relay
