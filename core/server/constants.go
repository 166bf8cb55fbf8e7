package server

import "time"

const (
	// DefaultAddr is the address the relay API listens on.
	DefaultAddr = ":8080"

	// DefaultReadTimeout bounds reading a request, body included.
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout is zero: listen responses stream until the relay
	// completes, so a write deadline would cut them off.
	DefaultWriteTimeout = 0

	// DefaultIdleTimeout is the keep-alive idle timeout.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultShutdownTimeout is how long Stop waits for in-flight requests.
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultMaxHeaderBytes is the maximum size of request headers.
	DefaultMaxHeaderBytes = 1 << 20 // 1 MB
)
