package ingress

import "errors"

var (
	// ErrBufferFull is returned when the in-process source buffer is full.
	ErrBufferFull = errors.New("ingress buffer is full")

	// ErrSourceClosed is returned when dispatching to a closed source.
	ErrSourceClosed = errors.New("ingress source closed")

	// ErrAdapterAlreadyStarted is returned when starting an adapter that is already running.
	ErrAdapterAlreadyStarted = errors.New("ingress adapter already started")

	// ErrAdapterNotStarted is returned when stopping an adapter that is not running.
	ErrAdapterNotStarted = errors.New("ingress adapter not started")
)
