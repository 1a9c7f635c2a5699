package framing

import (
	"fmt"

	"github.com/praetorian-inc/framer/pkg/channel"
	"github.com/praetorian-inc/framer/pkg/matcher"
)

// BetweenMarkers cuts packets enclosed by a start and an end marker. Only
// the bytes strictly between the markers are delivered; bytes before the
// start marker are discarded with the next accepted packet.
type BetweenMarkers struct {
	start matcher.Searcher
	end   matcher.Searcher
}

// NewBetweenMarkers returns a marker strategy using Horspool matchers.
func NewBetweenMarkers(start, end []byte) (*BetweenMarkers, error) {
	sm, err := matcher.New(start)
	if err != nil {
		return nil, fmt.Errorf("%w: start marker: %v", ErrInvalidArgument, err)
	}
	em, err := matcher.New(end)
	if err != nil {
		return nil, fmt.Errorf("%w: end marker: %v", ErrInvalidArgument, err)
	}
	return &BetweenMarkers{start: sm, end: em}, nil
}

// NewBetweenMarkersSearcher returns a marker strategy using the given searchers.
func NewBetweenMarkersSearcher(start, end matcher.Searcher) (*BetweenMarkers, error) {
	if start == nil || start.Len() == 0 {
		return nil, fmt.Errorf("%w: nil or empty start marker", ErrInvalidArgument)
	}
	if end == nil || end.Len() == 0 {
		return nil, fmt.Errorf("%w: nil or empty end marker", ErrInvalidArgument)
	}
	return &BetweenMarkers{start: start, end: end}, nil
}

// Markers returns copies of the start and end markers.
func (b *BetweenMarkers) Markers() (start, end []byte) {
	return b.start.Pattern(), b.end.Pattern()
}

// Name implements Strategy.
func (b *BetweenMarkers) Name() string { return KindMarkers }

// MinBufferSize implements Strategy.
func (b *BetweenMarkers) MinBufferSize() int { return b.start.Len() + b.end.Len() }

// Scan implements Strategy. A missing end marker leaves the partial body
// buffered for the next call.
func (b *BetweenMarkers) Scan(ch *channel.Channel, fn ResultFunc) (bool, error) {
	handled := false
	for ch.Available() >= b.MinBufferSize() {
		buf := ch.Bytes()

		s, err := b.start.Search(buf, ch.Offset())
		if err != nil {
			return handled, err
		}
		if s < 0 {
			break
		}
		bodyStart := s + b.start.Len()

		e, err := b.end.Search(buf, bodyStart)
		if err != nil {
			return handled, err
		}
		if e < 0 {
			break
		}
		end := e + b.end.Len()

		packet, err := ch.GetRange(bodyStart, e-bodyStart)
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
