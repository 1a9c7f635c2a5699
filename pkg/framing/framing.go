// Package framing turns a continuous byte stream into discrete packets.
//
// A Framer owns a registry of channels (one per source, e.g. per serial port
// or TCP connection) and one Strategy that decides where packets begin and
// end. Transport code registers a channel, feeds it chunks of any size, and
// receives complete packets through a callback:
//
//	f, err := framing.New(framing.MustTerminator([]byte("\r\n")))
//	if err != nil {
//	    return err
//	}
//	defer f.Dispose()
//
//	_ = f.AddChannel("COM3")
//	handled, err := f.Analyse("COM3", chunk, func(key string, packet []byte) bool {
//	    fmt.Printf("%s: %q\n", key, packet)
//	    return true // consume
//	})
//
// Partial packets are retained across calls. Returning false from the
// callback leaves the packet bytes in the buffer and moves the scan cursor
// past them; they are dropped on the next accepted packet or by overflow
// eviction.
//
// Analyse is not synchronized per key: callers must ensure at most one
// in-flight Analyse call per channel. Registering and removing channels is
// safe from any goroutine.
package framing

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/praetorian-inc/framer/pkg/channel"
)

const (
	// DefaultCapacity is the initial buffer allocation for AddChannel.
	DefaultCapacity = 1024

	// DefaultMaxSize is the buffer cap for AddChannel.
	DefaultMaxSize = 64 * 1024
)

// Strategy kinds, as returned by Strategy.Name and used in profiles.
const (
	KindFixed      = "fixed"
	KindTerminator = "terminator"
	KindHeader     = "header"
	KindMarkers    = "markers"
)

// ResultFunc receives a complete packet. Returning true consumes the packet
// bytes; returning false marks them inspected but not accepted.
// The packet slice is a copy owned by the callee.
type ResultFunc func(key string, packet []byte) bool

// Strategy cuts packets out of a channel buffer.
type Strategy interface {
	// Name returns the strategy kind (KindFixed, KindTerminator, ...).
	Name() string

	// MinBufferSize is the smallest channel MaxSize that can hold one packet.
	MinBufferSize() int

	// Scan extracts every complete packet at or after the channel cursor,
	// calling fn for each in buffer order. It returns true if at least one
	// packet was accepted. A *DataError stops the scan without consuming
	// the offending bytes.
	Scan(ch *channel.Channel, fn ResultFunc) (bool, error)
}

// Framer applies one Strategy to any number of keyed channels.
type Framer struct {
	strategy Strategy
	channels *channel.Registry
	logger   *zap.Logger
	observer Observer
	capacity int
	maxSize  int
}

// Option configures a Framer.
type Option func(*Framer)

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Framer) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(f *Framer) {
		if o != nil {
			f.observer = o
		}
	}
}

// WithDefaultSize sets the capacity and max size used by AddChannel.
func WithDefaultSize(capacity, maxSize int) Option {
	return func(f *Framer) {
		f.capacity = capacity
		f.maxSize = maxSize
	}
}

// New creates a Framer for strategy.
func New(strategy Strategy, opts ...Option) (*Framer, error) {
	if strategy == nil {
		return nil, fmt.Errorf("%w: nil strategy", ErrInvalidArgument)
	}

	f := &Framer{
		strategy: strategy,
		channels: channel.NewRegistry(),
		logger:   zap.NewNop(),
		observer: NopObserver{},
		capacity: DefaultCapacity,
		maxSize:  DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(f)
	}

	// A strategy whose packets exceed the default cap would never see one.
	if f.maxSize < strategy.MinBufferSize() {
		f.maxSize = strategy.MinBufferSize()
	}
	if err := f.checkSize(f.capacity, f.maxSize); err != nil {
		return nil, fmt.Errorf("default channel size: %w", err)
	}

	return f, nil
}

// Strategy returns the framing strategy.
func (f *Framer) Strategy() Strategy {
	return f.strategy
}

// AddChannel registers a channel with the default capacity and max size.
func (f *Framer) AddChannel(key string) error {
	return f.AddChannelSize(key, f.capacity, f.maxSize)
}

// AddChannelSize registers a channel with an explicit initial capacity and
// hard size cap. It fails if the key is empty or already registered,
// capacity <= 0, maxSize < capacity, or maxSize cannot hold one packet of
// the framer's strategy.
func (f *Framer) AddChannelSize(key string, capacity, maxSize int) error {
	if key == "" {
		return fmt.Errorf("%w: empty channel key", ErrInvalidArgument)
	}
	if err := f.checkSize(capacity, maxSize); err != nil {
		return err
	}

	ch, err := channel.New(key, capacity, maxSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := f.channels.Add(ch); err != nil {
		if errors.Is(err, channel.ErrExists) {
			return fmt.Errorf("%w: %q", ErrChannelExists, key)
		}
		return err
	}

	f.observer.ChannelAdded(key)
	f.logger.Debug("channel added",
		zap.String("key", key),
		zap.Int("capacity", capacity),
		zap.Int("max_size", maxSize))
	return nil
}

// RemoveChannel unregisters and clears the channel. It returns false if the
// key is not registered.
func (f *Framer) RemoveChannel(key string) bool {
	if !f.channels.Remove(key) {
		return false
	}
	f.observer.ChannelRemoved(key)
	f.logger.Debug("channel removed", zap.String("key", key))
	return true
}

// HasChannel reports whether key is registered.
func (f *Framer) HasChannel(key string) bool {
	_, ok := f.channels.Get(key)
	return ok
}

// Channels returns the registered keys in sorted order.
func (f *Framer) Channels() []string {
	return f.channels.Keys()
}

// Len returns the number of registered channels.
func (f *Framer) Len() int {
	return f.channels.Len()
}

// Buffered returns the number of bytes buffered for key and the cursor.
func (f *Framer) Buffered(key string) (length, offset int, ok bool) {
	ch, ok := f.channels.Get(key)
	if !ok {
		return 0, 0, false
	}
	return ch.Len(), ch.Offset(), true
}

// Analyse appends data to the channel for key and extracts every complete
// packet, calling fn for each in stream order. It returns true if at least
// one packet was accepted during this call.
//
// An unknown key returns ErrChannelNotFound without side effects. Corrupt
// headers return a *DataError (errors.Is(err, ErrCorruptData)); packets
// accepted before the corruption stay accepted. Not having enough bytes for
// a packet is not an error.
//
// If the buffer exceeds the channel's max size after scanning, the oldest
// bytes are evicted. Eviction is logged and reported to the Observer, never
// returned as an error.
func (f *Framer) Analyse(key string, data []byte, fn ResultFunc) (bool, error) {
	if fn == nil {
		return false, fmt.Errorf("%w: nil result callback", ErrInvalidArgument)
	}
	ch, ok := f.channels.Get(key)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrChannelNotFound, key)
	}

	ch.AddRange(data)

	handled, err := f.strategy.Scan(ch, f.observe(fn))
	if err != nil {
		f.observer.DataError(key, err)
		f.logger.Warn("corrupt data",
			zap.String("key", key),
			zap.String("strategy", f.strategy.Name()),
			zap.Error(err))
	}

	if n := ch.CheckOverflow(); n > 0 {
		f.observer.Evicted(key, n)
		f.logger.Warn("channel overflow, oldest bytes evicted",
			zap.String("key", key),
			zap.Int("evicted", n),
			zap.Int("max_size", ch.MaxSize()))
	}

	return handled, err
}

// Discard drops n unconsumed bytes at the cursor of the channel for key.
// It is the resynchronisation primitive after a *DataError.
func (f *Framer) Discard(key string, n int) error {
	ch, ok := f.channels.Get(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrChannelNotFound, key)
	}
	if n < 0 || n > ch.Available() {
		return fmt.Errorf("%w: discard %d of %d available bytes", ErrInvalidArgument, n, ch.Available())
	}
	return ch.RemoveRange(ch.Offset(), n)
}

// Reset clears the buffer of the channel for key but keeps it registered.
func (f *Framer) Reset(key string) error {
	ch, ok := f.channels.Get(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrChannelNotFound, key)
	}
	ch.Clear()
	return nil
}

// Dispose clears and removes every channel. It is safe to call repeatedly.
func (f *Framer) Dispose() {
	for _, key := range f.channels.Clear() {
		f.observer.ChannelRemoved(key)
	}
}

func (f *Framer) checkSize(capacity, maxSize int) error {
	if capacity <= 0 {
		return fmt.Errorf("%w: capacity %d must be positive", ErrInvalidArgument, capacity)
	}
	if maxSize < capacity {
		return fmt.Errorf("%w: max size %d below capacity %d", ErrInvalidArgument, maxSize, capacity)
	}
	if min := f.strategy.MinBufferSize(); maxSize < min {
		return fmt.Errorf("%w: max size %d cannot hold a %s packet of %d bytes",
			ErrInvalidArgument, maxSize, f.strategy.Name(), min)
	}
	return nil
}

func (f *Framer) observe(fn ResultFunc) ResultFunc {
	return func(key string, packet []byte) bool {
		accepted := fn(key, packet)
		f.observer.Packet(key, len(packet), accepted)
		return accepted
	}
}
