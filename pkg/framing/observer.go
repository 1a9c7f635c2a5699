package framing

// Observer receives framing events. Implementations must be safe for
// concurrent use because different channels are analysed from different
// goroutines. The metrics package provides a Prometheus implementation.
type Observer interface {
	ChannelAdded(key string)
	ChannelRemoved(key string)

	// Packet is called after the result callback returns.
	Packet(key string, size int, accepted bool)

	// Evicted is called when overflow eviction dropped n bytes.
	Evicted(key string, n int)

	// DataError is called when a strategy reports corrupt data.
	DataError(key string, err error)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) ChannelAdded(string) {}
func (NopObserver) ChannelRemoved(string) {}
func (NopObserver) Packet(string, int, bool) {}
func (NopObserver) Evicted(string, int) {}
func (NopObserver) DataError(string, error) {}
