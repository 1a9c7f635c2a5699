package framing

import (
	"fmt"

	"github.com/praetorian-inc/framer/pkg/channel"
)

// FixedSize cuts packets of exactly Size bytes.
type FixedSize struct {
	size int
}

// NewFixedSize returns a strategy for packets of size bytes.
func NewFixedSize(size int) (*FixedSize, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: packet size %d must be positive", ErrInvalidArgument, size)
	}
	return &FixedSize{size: size}, nil
}

// Size returns the packet size.
func (s *FixedSize) Size() int { return s.size }

// Name implements Strategy.
func (s *FixedSize) Name() string { return KindFixed }

// MinBufferSize implements Strategy.
func (s *FixedSize) MinBufferSize() int { return s.size }

// Scan implements Strategy. A rejected packet is skipped and stays buffered.
func (s *FixedSize) Scan(ch *channel.Channel, fn ResultFunc) (bool, error) {
	handled := false
	for ch.Available() >= s.size {
		start := ch.Offset()
		end := start + s.size

		packet, err := ch.GetRange(start, s.size)
		if err != nil {
			return handled, err
		}
		if fn(ch.Key(), packet) {
			handled = true
			if err := ch.Consume(end); err != nil {
				return handled, err
			}
			continue
		}
		if err := ch.SetOffset(end); err != nil {
			return handled, err
		}
	}
	return handled, nil
}
