package framing

import (
	"fmt"

	"github.com/praetorian-inc/framer/pkg/channel"
	"github.com/praetorian-inc/framer/pkg/matcher"
)

// Terminator cuts packets ending in a fixed byte sequence. The terminator is
// not part of the delivered packet.
type Terminator struct {
	search matcher.Searcher
}

// NewTerminator returns a terminator strategy using a Horspool matcher.
func NewTerminator(terminator []byte) (*Terminator, error) {
	m, err := matcher.New(terminator)
	if err != nil {
		return nil, fmt.Errorf("%w: terminator: %v", ErrInvalidArgument, err)
	}
	return &Terminator{search: m}, nil
}

// MustTerminator is like NewTerminator but panics on an empty terminator.
func MustTerminator(terminator []byte) *Terminator {
	t, err := NewTerminator(terminator)
	if err != nil {
		panic(err)
	}
	return t
}

// NewTerminatorSearcher returns a terminator strategy using s, e.g. a full
// Boyer-Moore matcher for long terminators.
func NewTerminatorSearcher(s matcher.Searcher) (*Terminator, error) {
	if s == nil || s.Len() == 0 {
		return nil, fmt.Errorf("%w: nil or empty terminator searcher", ErrInvalidArgument)
	}
	return &Terminator{search: s}, nil
}

// Terminator returns a copy of the terminator bytes.
func (t *Terminator) Terminator() []byte { return t.search.Pattern() }

// Name implements Strategy.
func (t *Terminator) Name() string { return KindTerminator }

// MinBufferSize implements Strategy.
func (t *Terminator) MinBufferSize() int { return t.search.Len() }

// Scan implements Strategy.
//
// On reject the cursor moves past the terminator, so the same terminator is
// never matched twice, and the body stays buffered until the next accepted
// packet or overflow eviction drops it.
func (t *Terminator) Scan(ch *channel.Channel, fn ResultFunc) (bool, error) {
	handled := false
	for ch.Available() >= t.search.Len() {
		start := ch.Offset()
		i, err := t.search.Search(ch.Bytes(), start)
		if err != nil {
			return handled, err
		}
		if i < 0 {
			break
		}
		end := i + t.search.Len()

		packet, err := ch.GetRange(start, i-start)
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
