// Package channel provides the per-source byte buffer used by the framing
// strategies and a concurrent registry of buffers keyed by source.
package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned for an empty channel key.
	ErrInvalidKey = errors.New("invalid channel key")

	// ErrInvalidSize is returned when capacity <= 0 or maxSize < capacity.
	ErrInvalidSize = errors.New("invalid channel size")

	// ErrOutOfRange is returned when a range does not lie within the buffer.
	ErrOutOfRange = errors.New("range out of bounds")
)

// Channel is an identified, growable byte buffer with a hard size cap and a
// scan cursor (offset) marking the start of the unconsumed region.
//
// Bytes are appended at the tail and removed from the head; the backing
// array is compacted lazily on append instead of on every removal.
//
// Invariant after every method returns: 0 <= Offset() <= Len(). Len() may
// exceed MaxSize() only between AddRange and CheckOverflow.
//
// Thread Safety: a Channel is NOT safe for concurrent use. The owner of the
// key (one reader per connection) is its only writer.
type Channel struct {
	key      string
	buf      []byte // backing array; live data is buf[head:]
	head     int
	offset   int   // relative to head
	removed  int64 // total bytes ever dropped from the head
	capacity int
	maxSize  int
}

// New creates a channel with an initial allocation of capacity bytes and a
// hard upper bound of maxSize bytes.
func New(key string, capacity, maxSize int) (*Channel, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d must be positive", ErrInvalidSize, capacity)
	}
	if maxSize < capacity {
		return nil, fmt.Errorf("%w: max size %d below capacity %d", ErrInvalidSize, maxSize, capacity)
	}

	return &Channel{
		key:      key,
		buf:      make([]byte, 0, capacity),
		capacity: capacity,
		maxSize:  maxSize,
	}, nil
}

// Key returns the channel key.
func (c *Channel) Key() string { return c.key }

// Capacity returns the initial allocation hint.
func (c *Channel) Capacity() int { return c.capacity }

// MaxSize returns the hard upper bound on buffered bytes.
func (c *Channel) MaxSize() int { return c.maxSize }

// Len returns the number of buffered bytes.
func (c *Channel) Len() int { return len(c.buf) - c.head }

// Offset returns the scan cursor.
func (c *Channel) Offset() int { return c.offset }

// Available returns the number of bytes at or after the cursor.
func (c *Channel) Available() int { return c.Len() - c.offset }

// Removed returns the total number of bytes dropped from the head since the
// channel was created, by consumption or eviction.
func (c *Channel) Removed() int64 { return c.removed }

// SetOffset moves the scan cursor.
func (c *Channel) SetOffset(offset int) error {
	if offset < 0 || offset > c.Len() {
		return fmt.Errorf("%w: offset %d outside [0, %d]", ErrOutOfRange, offset, c.Len())
	}
	c.offset = offset
	return nil
}

// Bytes returns a view of the buffered bytes. The view is only valid until
// the next mutating call and must not be modified.
func (c *Channel) Bytes() []byte {
	return c.buf[c.head:]
}

// AddRange appends data to the tail of the buffer.
func (c *Channel) AddRange(data []byte) {
	if len(data) == 0 {
		return
	}

	// Reclaim the consumed prefix before the backing array has to grow.
	if c.head > 0 && len(c.buf)+len(data) > cap(c.buf) {
		n := copy(c.buf, c.buf[c.head:])
		c.buf = c.buf[:n]
		c.head = 0
	}
	c.buf = append(c.buf, data...)
}

// GetRange returns a copy of n bytes starting at start.
func (c *Channel) GetRange(start, n int) ([]byte, error) {
	if err := c.checkRange(start, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, c.buf[c.head+start:])
	return out, nil
}

// RemoveRange deletes n bytes beginning at start. If the cursor points
// into or past the removed window it moves left by the part of the window
// that lay before it, so it keeps pointing at the same unconsumed byte.
func (c *Channel) RemoveRange(start, n int) error {
	if err := c.checkRange(start, n); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	if start == 0 {
		c.head += n
		c.removed += int64(n)
	} else {
		from := c.head + start
		copy(c.buf[from:], c.buf[from+n:])
		c.buf = c.buf[:len(c.buf)-n]
	}

	if c.offset > start {
		c.offset -= min(c.offset, start+n) - start
	}

	if c.head == len(c.buf) {
		c.buf = c.buf[:0]
		c.head = 0
	}
	return nil
}

// Consume drops everything before end and resets the cursor to the new head.
func (c *Channel) Consume(end int) error {
	return c.RemoveRange(0, end)
}

// CheckOverflow keeps only the newest MaxSize bytes and returns the number
// of bytes evicted. This is a lossy last-resort safety valve for streams in
// which no packet boundary is ever found, not a framing mechanism.
func (c *Channel) CheckOverflow() int {
	excess := c.Len() - c.maxSize
	if excess <= 0 {
		return 0
	}
	_ = c.RemoveRange(0, excess)
	return excess
}

// Clear discards all buffered bytes and resets the cursor.
func (c *Channel) Clear() {
	c.removed += int64(c.Len())
	c.buf = c.buf[:0]
	c.head = 0
	c.offset = 0
}

func (c *Channel) checkRange(start, n int) error {
	if start < 0 || n < 0 || start+n > c.Len() {
		return fmt.Errorf("%w: [%d, %d) of %d bytes", ErrOutOfRange, start, start+n, c.Len())
	}
	return nil
}
