// Package redis connects the relay to Redis.
//
// Connect builds a go-redis client from a URL and waits for it to answer a
// ping, retrying with exponential backoff. Healthcheck wraps a ping for
// readiness probes.
//
// Source is the Redis pub/sub ingress. It pattern-subscribes to every
// channel that starts with a prefix and turns each message into a relay
// publish: the channel name minus the prefix is the key and the payload is
// the message.
//
//	client, err := redis.Connect(ctx, redis.Config{
//		ConnectionURL:  "redis://localhost:6379/0",
//		RetryAttempts:  3,
//		RetryInterval:  time.Second,
//		ConnectTimeout: 30 * time.Second,
//	})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	src := redis.NewSource(client, redis.SourceConfig{ChannelPrefix: "relay:"})
//	adapter := ingress.NewAdapter(src, registry)
//	g.Go(adapter.Run(ctx))
//
//	// Elsewhere: redis-cli PUBLISH relay:order:42 shipped
//
// Errors:
//
//   - ErrEmptyConnectionURL: no URL configured
//   - ErrFailedToParseRedisConnString: the URL is not redis:// or rediss://
//   - ErrRedisNotReady: the server did not answer in time
//   - ErrHealthcheckFailed: ping failed during a health check
//   - ErrSubscribeFailed: the pattern subscription could not be confirmed
package redis
