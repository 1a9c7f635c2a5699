package profile

import (
	"encoding/binary"
	"fmt"

	"github.com/praetorian-inc/framer/pkg/framing"
	"github.com/praetorian-inc/framer/pkg/matcher"
	"github.com/praetorian-inc/framer/pkg/types"
)

// Kinds lists the strategy kinds a profile may name.
var Kinds = []string{framing.KindFixed, framing.KindTerminator, framing.KindHeader, framing.KindMarkers}

// Build constructs the framing strategy a profile describes.
func Build(p *types.Profile) (framing.Strategy, error) {
	if p == nil {
		return nil, fmt.Errorf("profile is nil")
	}

	algo, err := matcher.ParseAlgorithm(p.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.ID, err)
	}

	switch p.Kind {
	case framing.KindFixed:
		return strategy(framing.NewFixedSize(p.PacketSize))

	case framing.KindTerminator:
		s, err := matcher.Compile(matcher.Config{Pattern: p.Terminator, Algorithm: algo})
		if err != nil {
			return nil, fmt.Errorf("profile %s terminator: %w", p.ID, err)
		}
		return strategy(framing.NewTerminatorSearcher(s))

	case framing.KindMarkers:
		start, err := matcher.Compile(matcher.Config{Pattern: p.Start, Algorithm: algo})
		if err != nil {
			return nil, fmt.Errorf("profile %s start marker: %w", p.ID, err)
		}
		end, err := matcher.Compile(matcher.Config{Pattern: p.End, Algorithm: algo})
		if err != nil {
			return nil, fmt.Errorf("profile %s end marker: %w", p.ID, err)
		}
		return strategy(framing.NewBetweenMarkersSearcher(start, end))

	case framing.KindHeader:
		if p.Header == nil {
			return nil, fmt.Errorf("profile %s: header kind requires a header section", p.ID)
		}
		return strategy(framing.NewFixedHeader(headerConfig(p.Header)))

	default:
		return nil, fmt.Errorf("profile %s: unknown kind %q", p.ID, p.Kind)
	}
}

// NewFramer builds the profile's strategy and a Framer whose default
// channel size comes from the profile. opts are applied after the profile
// defaults.
func NewFramer(p *types.Profile, opts ...framing.Option) (*framing.Framer, error) {
	s, err := Build(p)
	if err != nil {
		return nil, err
	}

	capacity, maxSize := ChannelSize(p)
	all := append([]framing.Option{framing.WithDefaultSize(capacity, maxSize)}, opts...)
	return framing.New(s, all...)
}

// ChannelSize returns the channel capacity and max size for p, falling
// back to the framing defaults.
func ChannelSize(p *types.Profile) (capacity, maxSize int) {
	capacity, maxSize = framing.DefaultCapacity, framing.DefaultMaxSize
	if p.Capacity > 0 {
		capacity = p.Capacity
	}
	if p.MaxSize > 0 {
		maxSize = p.MaxSize
	}
	if maxSize < capacity {
		capacity = maxSize
	}
	return capacity, maxSize
}

func headerConfig(h *types.Header) framing.FixedHeaderConfig {
	var order binary.ByteOrder = binary.LittleEndian
	if h.BigEndian {
		order = binary.BigEndian
	}
	size := h.LengthSize
	if size == 0 {
		size = 4
	}
	return framing.FixedHeaderConfig{
		HeadSize:      h.Size,
		MaxPacketSize: h.MaxPacketSize,
		Decoder: framing.LengthField{
			Offset: h.LengthOffset,
			Size:   size,
			Order:  order,
			Adjust: h.Adjust,
		},
		StripHeader: h.StripHeader,
		Magic:       h.Magic,
	}
}

// strategy drops the concrete type so a failed constructor yields a nil
// interface rather than a typed nil.
func strategy[S framing.Strategy](s S, err error) (framing.Strategy, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
