package types

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// Profile describes how one wire protocol is framed: the strategy kind,
// its parameters and the channel buffer sizes to use.
type Profile struct {
	ID           string   // e.g., "framer.jt808"
	Name         string   // human-readable name
	Description  string   // optional
	Kind         string   // "fixed", "terminator", "header" or "markers"
	Algorithm    string   // "horspool" (default) or "boyer-moore"
	PacketSize   int      // fixed
	Terminator   []byte   // terminator
	Start        []byte   // markers
	End          []byte   // markers
	Header       *Header  // header
	Capacity     int      // initial channel allocation, 0 for the default
	MaxSize      int      // channel cap, 0 for the default
	StructuralID string   // SHA-1 of the framing parameters (computed)
	Keywords     [][]byte // byte sequences that identify the protocol in a stream
	Examples     [][]byte // sample streams, each must yield at least one packet
	References   []string // protocol documentation URLs
	Categories   []string // classification tags
}

// Header describes a fixed-size header carrying the body length.
type Header struct {
	Size          int    // header length in bytes
	MaxPacketSize int    // bound on header plus body
	LengthOffset  int    // position of the length field in the header
	LengthSize    int    // 1, 2 or 4 bytes
	BigEndian     bool   // byte order of the length field
	Adjust        int    // added to the decoded length
	Magic         []byte // required header prefix, optional
	StripHeader   bool   // deliver only the body
}

// ComputeStructuralID hashes the parameters that affect framing, so two
// profiles that cut a stream identically share an ID regardless of naming.
func (p *Profile) ComputeStructuralID() string {
	h := sha1.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00", p.Kind, p.Algorithm, p.PacketSize)
	writeField(h, p.Terminator)
	writeField(h, p.Start)
	writeField(h, p.End)
	if hd := p.Header; hd != nil {
		fmt.Fprintf(h, "%d\x00%d\x00%d\x00%d\x00%t\x00%d\x00%t\x00",
			hd.Size, hd.MaxPacketSize, hd.LengthOffset, hd.LengthSize,
			hd.BigEndian, hd.Adjust, hd.StripHeader)
		writeField(h, hd.Magic)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeField writes a length-prefixed field so adjacent fields cannot alias.
func writeField(h interface{ Write([]byte) (int, error) }, b []byte) {
	fmt.Fprintf(h, "%d:", len(b))
	h.Write(b)
}

// ProfileSet groups profiles, e.g. all protocols a gateway port may carry.
type ProfileSet struct {
	ID          string
	Name        string
	Description string
	ProfileIDs  []string
}
