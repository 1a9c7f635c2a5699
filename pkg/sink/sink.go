// Package sink delivers framed packets to their destination: a packet
// store, an NDJSON stream, a NATS subject or a Redis stream.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/praetorian-inc/framer/pkg/store"
	"github.com/praetorian-inc/framer/pkg/types"
)

// Sink receives packets. Implementations must be safe for concurrent use:
// the listener writes from one goroutine per connection.
type Sink interface {
	Write(ctx context.Context, p *types.Packet) error
	Close() error
}

// StoreSink persists packets to a store.Store.
type StoreSink struct {
	store store.Store
}

// NewStoreSink creates a sink over s. Closing the sink closes the store.
func NewStoreSink(s store.Store) *StoreSink {
	return &StoreSink{store: s}
}

// Write implements Sink.
func (s *StoreSink) Write(ctx context.Context, p *types.Packet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.AddPacket(p); err != nil {
		return fmt.Errorf("storing packet %s: %w", p.ID, err)
	}
	return nil
}

// Close implements Sink.
func (s *StoreSink) Close() error {
	return s.store.Close()
}

// WriterSink writes one JSON object per packet to an io.Writer.
type WriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriterSink creates an NDJSON sink. Close does not close w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{enc: json.NewEncoder(w)}
}

// Write implements Sink.
func (s *WriterSink) Write(ctx context.Context, p *types.Packet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(p)
}

// Close implements Sink.
func (s *WriterSink) Close() error {
	return nil
}

// Multi fans every packet out to several sinks.
type Multi []Sink

// Write delivers p to every sink, even when an earlier one fails.
func (m Multi) Write(ctx context.Context, p *types.Packet) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every packet.
type Discard struct{}

func (Discard) Write(context.Context, *types.Packet) error { return nil }
func (Discard) Close() error                               { return nil }
