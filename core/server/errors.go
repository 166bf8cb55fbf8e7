package server

import "errors"

var (
	// ErrMissingAddress is returned by NewFromConfig when no address is configured.
	ErrMissingAddress = errors.New("server address is required")

	// ErrServerAlreadyRunning is returned when Start is called on a running server.
	ErrServerAlreadyRunning = errors.New("server is already running")

	// ErrHTTPShutdown wraps a failed graceful shutdown.
	ErrHTTPShutdown = errors.New("http shutdown error")
)
