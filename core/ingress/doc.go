// Package ingress connects upstream message queues to a relay registry.
//
// A Source yields keyed messages from some subscription; an Adapter reads
// them in order and hands each to a Publisher, normally a
// *relay.Registry. ChannelSource is the in-process Source; the redis
// integration provides one backed by Redis pub/sub.
//
//	reg := relay.NewRegistry()
//	src := ingress.NewChannelSource(100)
//
//	adapter := ingress.NewAdapter(src, reg,
//		ingress.WithAdapterLogger(log),
//		ingress.WithRetry(3, 50*time.Millisecond),
//	)
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(adapter.Run(ctx))
//
//	_ = src.Dispatch(ctx, "order:42", "created")
//
// Publish failures are never retried by the registry itself. The adapter
// retries only errors accepted by its retryable predicate (by default
// relay.ErrUnknownKey, except when the relay terminated under the publish)
// and logs and counts everything else as dropped. Retries run in per-key
// lanes so one stray key does not hold up the others.
package ingress
