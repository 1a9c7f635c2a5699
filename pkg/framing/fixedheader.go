package framing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/praetorian-inc/framer/pkg/channel"
)

// HeaderDecoder reads the body size out of a packet header.
type HeaderDecoder interface {
	// BodySize returns the number of body bytes following header. A negative
	// size or an error marks the stream as corrupt.
	BodySize(header []byte) (int, error)
}

// HeaderDecoderFunc adapts a function to HeaderDecoder.
type HeaderDecoderFunc func(header []byte) (int, error)

// BodySize implements HeaderDecoder.
func (f HeaderDecoderFunc) BodySize(header []byte) (int, error) { return f(header) }

// LengthField decodes an unsigned length stored at a fixed position in the
// header. Adjust is added to the decoded value, for protocols whose length
// excludes (negative) or includes (positive) bytes other than the body.
//
// A 4-byte field is read as a signed 32-bit integer, so a length with the
// high bit set decodes as negative and is reported as corrupt.
type LengthField struct {
	Offset int
	Size   int              // 1, 2 or 4
	Order  binary.ByteOrder // nil means little endian
	Adjust int
}

// LittleEndianLength is a 4-byte little-endian body length at the start of
// the header.
var LittleEndianLength = LengthField{Offset: 0, Size: 4, Order: binary.LittleEndian}

var errShortHeader = errors.New("header too short for length field")

// Validate checks the field against a header of headSize bytes.
func (l LengthField) Validate(headSize int) error {
	switch l.Size {
	case 1, 2, 4:
	default:
		return fmt.Errorf("%w: length field size %d not 1, 2 or 4", ErrInvalidArgument, l.Size)
	}
	if l.Offset < 0 || l.Offset+l.Size > headSize {
		return fmt.Errorf("%w: length field [%d, %d) outside %d-byte header",
			ErrInvalidArgument, l.Offset, l.Offset+l.Size, headSize)
	}
	return nil
}

// BodySize implements HeaderDecoder.
func (l LengthField) BodySize(header []byte) (int, error) {
	if l.Offset < 0 || l.Offset+l.Size > len(header) {
		return 0, errShortHeader
	}
	order := l.Order
	if order == nil {
		order = binary.LittleEndian
	}

	field := header[l.Offset : l.Offset+l.Size]
	var n int
	switch l.Size {
	case 1:
		n = int(field[0])
	case 2:
		n = int(order.Uint16(field))
	case 4:
		n = int(int32(order.Uint32(field)))
	default:
		return 0, fmt.Errorf("unsupported length field size %d", l.Size)
	}
	return n + l.Adjust, nil
}

// FixedHeaderConfig configures a FixedHeader strategy.
type FixedHeaderConfig struct {
	// HeadSize is the header length in bytes. Required.
	HeadSize int

	// MaxPacketSize bounds header plus body. Required.
	MaxPacketSize int

	// Decoder extracts the body size. Defaults to LittleEndianLength.
	Decoder HeaderDecoder

	// StripHeader delivers only the body instead of header plus body.
	StripHeader bool

	// Magic, if set, must prefix every header.
	Magic []byte
}

// FixedHeader cuts packets made of a fixed-size header that declares the
// length of the body following it.
type FixedHeader struct {
	cfg FixedHeaderConfig
}

// NewFixedHeader validates cfg and returns the strategy.
func NewFixedHeader(cfg FixedHeaderConfig) (*FixedHeader, error) {
	if cfg.HeadSize < 1 {
		return nil, fmt.Errorf("%w: head size %d must be positive", ErrInvalidArgument, cfg.HeadSize)
	}
	if cfg.MaxPacketSize < cfg.HeadSize {
		return nil, fmt.Errorf("%w: max packet size %d below head size %d",
			ErrInvalidArgument, cfg.MaxPacketSize, cfg.HeadSize)
	}
	if len(cfg.Magic) > cfg.HeadSize {
		return nil, fmt.Errorf("%w: magic longer than header", ErrInvalidArgument)
	}
	if cfg.Decoder == nil {
		cfg.Decoder = LittleEndianLength
	}
	if lf, ok := cfg.Decoder.(LengthField); ok {
		if err := lf.Validate(cfg.HeadSize); err != nil {
			return nil, err
		}
	}
	cfg.Magic = bytes.Clone(cfg.Magic)
	return &FixedHeader{cfg: cfg}, nil
}

// Config returns the strategy configuration.
func (h *FixedHeader) Config() FixedHeaderConfig {
	cfg := h.cfg
	cfg.Magic = bytes.Clone(h.cfg.Magic)
	return cfg
}

// Name implements Strategy.
func (h *FixedHeader) Name() string { return KindHeader }

// MinBufferSize implements Strategy.
func (h *FixedHeader) MinBufferSize() int { return h.cfg.MaxPacketSize }

// Scan implements Strategy.
//
// A header with a bad magic, a decoder error, a negative body size or a total
// size above MaxPacketSize stops the scan with a *DataError. The corrupt
// header is left at the cursor.
func (h *FixedHeader) Scan(ch *channel.Channel, fn ResultFunc) (bool, error) {
	handled := false
	for ch.Available() >= h.cfg.HeadSize {
		start := ch.Offset()
		header := ch.Bytes()[start : start+h.cfg.HeadSize]

		if len(h.cfg.Magic) > 0 && !bytes.HasPrefix(header, h.cfg.Magic) {
			return handled, &DataError{
				Key:    ch.Key(),
				Offset: start,
				Limit:  h.cfg.MaxPacketSize,
				Err:    fmt.Errorf("header magic %x mismatch", h.cfg.Magic),
			}
		}

		bodySize, err := h.cfg.Decoder.BodySize(header)
		if err != nil {
			return handled, &DataError{Key: ch.Key(), Offset: start, Limit: h.cfg.MaxPacketSize, Err: err}
		}
		if bodySize < 0 || bodySize > h.cfg.MaxPacketSize-h.cfg.HeadSize {
			return handled, &DataError{Key: ch.Key(), Offset: start, BodySize: bodySize, Limit: h.cfg.MaxPacketSize}
		}

		total := h.cfg.HeadSize + bodySize
		if ch.Available() < total {
			break
		}
		end := start + total

		from := start
		if h.cfg.StripHeader {
			from += h.cfg.HeadSize
		}
		packet, err := ch.GetRange(from, end-from)
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
