package relay

// Observer receives relay lifecycle notifications. Implementations must be
// safe for concurrent use and must not block; they are called on the
// publisher's and remover's goroutines.
type Observer interface {
	RelayOpened(key string, expected int)
	MessagePublished(key string)
	MessageRejected(key string, err error)
	RelayFinished(key string, reason Reason, delivered int)
}

type noopObserver struct{}

func (noopObserver) RelayOpened(string, int)            {}
func (noopObserver) MessagePublished(string)            {}
func (noopObserver) MessageRejected(string, error)      {}
func (noopObserver) RelayFinished(string, Reason, int) {}
