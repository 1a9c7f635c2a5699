// Package framer cuts continuous byte streams into discrete packets.
//
// Framer is built for serial ports, TCP sockets and capture files where a
// single read rarely lines up with a protocol message. A Framer keeps one
// buffer per channel and applies a framing strategy: fixed-size records,
// terminator-delimited records, length headers, or start/end markers.
//
// # Basic Usage
//
// Create a framer from a builtin profile and feed it chunks:
//
//	f, err := framer.NewFromProfile("crlf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Dispose()
//
//	if err := f.AddChannel("COM3"); err != nil {
//	    log.Fatal(err)
//	}
//
//	_, err = f.Analyse("COM3", []byte("#L#866795030000000;NA\r\n#P"), func(key string, packet []byte) bool {
//	    fmt.Printf("%s: %q\n", key, packet)
//	    return true
//	})
//
// # Custom Strategies
//
// Strategies can be built directly when no profile fits:
//
//	s, err := framer.NewBetweenMarkers([]byte{0x02}, []byte{0x03})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	f, err := framer.New(s)
package framer

import (
	"fmt"

	"github.com/praetorian-inc/framer/pkg/framing"
	"github.com/praetorian-inc/framer/pkg/profile"
	"github.com/praetorian-inc/framer/pkg/types"
)

// Re-export commonly used types for convenience.
// Users can import just "github.com/praetorian-inc/framer" without subpackages.
type (
	// Framer applies one strategy to any number of keyed channels.
	Framer = framing.Framer

	// Strategy decides where packets begin and end.
	Strategy = framing.Strategy

	// ResultFunc receives each complete packet; returning false rejects it.
	ResultFunc = framing.ResultFunc

	// Option configures a Framer.
	Option = framing.Option

	// DataError reports a header that cannot describe a valid packet.
	DataError = framing.DataError

	// Profile describes how one wire protocol is framed.
	Profile = types.Profile
)

// Re-export sentinel errors.
var (
	ErrInvalidArgument = framing.ErrInvalidArgument
	ErrChannelExists   = framing.ErrChannelExists
	ErrChannelNotFound = framing.ErrChannelNotFound
	ErrCorruptData     = framing.ErrCorruptData
)

// Re-export framer options.
var (
	WithLogger      = framing.WithLogger
	WithObserver    = framing.WithObserver
	WithDefaultSize = framing.WithDefaultSize
)

// New creates a Framer for strategy.
func New(strategy Strategy, opts ...Option) (*Framer, error) {
	return framing.New(strategy, opts...)
}

// NewFixedSize frames records of exactly size bytes.
func NewFixedSize(size int) (Strategy, error) {
	s, err := framing.NewFixedSize(size)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewTerminator frames records that end with terminator. The terminator
// is not part of the packet.
func NewTerminator(terminator []byte) (Strategy, error) {
	s, err := framing.NewTerminator(terminator)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewBetweenMarkers frames the bytes strictly between start and end.
func NewBetweenMarkers(start, end []byte) (Strategy, error) {
	s, err := framing.NewBetweenMarkers(start, end)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewFixedHeader frames header-plus-body records whose body length is
// decoded from a fixed-size header.
func NewFixedHeader(cfg framing.FixedHeaderConfig) (Strategy, error) {
	s, err := framing.NewFixedHeader(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewFromProfile creates a Framer from a builtin profile. The ID may be
// given in full ("framer.jt808") or by its last segment ("jt808").
func NewFromProfile(id string, opts ...Option) (*Framer, error) {
	profiles, err := LoadBuiltinProfiles()
	if err != nil {
		return nil, err
	}
	p, ok := profile.Find(profiles, id)
	if !ok {
		return nil, fmt.Errorf("unknown profile: %s", id)
	}
	return profile.NewFramer(p, opts...)
}

// LoadBuiltinProfiles returns all builtin framing profiles.
func LoadBuiltinProfiles() ([]*Profile, error) {
	return profile.NewLoader().LoadBuiltinProfiles()
}

// LoadProfilesFromFile loads framing profiles from a YAML file.
// Use profile.NewFramer to build a Framer from one of them.
func LoadProfilesFromFile(path string) ([]*Profile, error) {
	return profile.NewLoader().LoadProfileFile(path)
}
