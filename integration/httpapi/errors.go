package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/keyrelay/core/relay"
)

var (
	// ErrMissingExpected is returned when a listen request has no expected parameter.
	ErrMissingExpected = errors.New("expected query parameter is required")

	// ErrInvalidExpected is returned when expected is not a positive integer.
	ErrInvalidExpected = errors.New("expected must be a positive integer")

	// ErrInvalidTimeout is returned when timeout is not a positive Go duration.
	ErrInvalidTimeout = errors.New("timeout must be a positive duration")

	// ErrMessageTooLarge is returned when a published body exceeds the configured limit.
	ErrMessageTooLarge = errors.New("message body too large")
)

// statusFor maps relay and request errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, relay.ErrUnknownKey):
		return http.StatusNotFound
	case errors.Is(err, relay.ErrAlreadySubscribed):
		return http.StatusConflict
	case errors.Is(err, relay.ErrBufferFull):
		return http.StatusTooManyRequests
	case errors.Is(err, relay.ErrRegistryClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrMessageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, relay.ErrInvalidExpectedCount),
		errors.Is(err, relay.ErrEmptyKey),
		errors.Is(err, ErrMissingExpected),
		errors.Is(err, ErrInvalidExpected),
		errors.Is(err, ErrInvalidTimeout):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
