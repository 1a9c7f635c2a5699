package framing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a configuration error: an empty pattern, a
	// non-positive size, a nil callback, or an invalid channel size.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrChannelExists is returned by AddChannel for a key already in use.
	ErrChannelExists = errors.New("channel already exists")

	// ErrChannelNotFound is returned by Analyse for an unknown key.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrCorruptData is matched by every *DataError.
	ErrCorruptData = errors.New("corrupt data")
)

// DataError reports a header that cannot describe a valid packet: a
// negative body size, a packet larger than the configured maximum, or a
// header the decoder rejects. Nothing is consumed; resynchronising the
// stream is left to the caller (see Framer.Discard and Framer.Reset).
type DataError struct {
	Key      string // channel key
	Offset   int    // cursor position of the offending header
	BodySize int    // decoded body size (meaningless when Err is set)
	Limit    int    // configured maximum packet size
	Err      error  // decoder error, if any
}

// Error implements the error interface.
func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt data on channel %q at offset %d: %v", e.Key, e.Offset, e.Err)
	}
	return fmt.Sprintf("corrupt data on channel %q at offset %d: body size %d exceeds limit %d",
		e.Key, e.Offset, e.BodySize, e.Limit)
}

// Is reports whether target is ErrCorruptData.
func (e *DataError) Is(target error) bool {
	return target == ErrCorruptData
}

// Unwrap returns the decoder error, if any.
func (e *DataError) Unwrap() error {
	return e.Err
}
