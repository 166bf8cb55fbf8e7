package relay

import "errors"

var (
	// ErrUnknownKey is returned when publishing to or removing a key that has no open relay.
	ErrUnknownKey = errors.New("no such relay")

	// ErrAlreadySubscribed is returned when a relay that already has a consumer is subscribed again.
	ErrAlreadySubscribed = errors.New("relay already subscribed")

	// ErrRelayClosed is returned when publishing to a relay that has completed or been closed.
	ErrRelayClosed = errors.New("relay closed")

	// ErrBufferFull is returned when a relay with a buffer cap cannot accept another message.
	ErrBufferFull = errors.New("relay buffer is full")

	// ErrInvalidExpectedCount is returned when a relay is requested with an expected count below one.
	ErrInvalidExpectedCount = errors.New("expected count must be at least 1")

	// ErrEmptyKey is returned when an operation is given an empty key.
	ErrEmptyKey = errors.New("relay key is empty")
)

// ErrRegistryClosed is returned by Listen after the registry has been closed.
var ErrRegistryClosed = errors.New("relay registry closed")
