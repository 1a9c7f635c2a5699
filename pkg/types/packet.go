package types

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"time"
)

// Packet is one framed unit delivered from a channel.
type Packet struct {
	ID       string    `json:"id"`      // SHA-1(key + '\0' + seq + '\0' + digest)
	Key      string    `json:"key"`     // channel key (source)
	Profile  string    `json:"profile"` // profile ID that framed it
	Seq      uint64    `json:"seq"`     // position among packets of the same key, from 1
	Data     []byte    `json:"data"`
	Digest   Digest    `json:"digest"`
	Received time.Time `json:"received"`
}

// NewPacket builds a packet and computes its digest and ID.
func NewPacket(key, profile string, seq uint64, data []byte, received time.Time) *Packet {
	p := &Packet{
		Key:      key,
		Profile:  profile,
		Seq:      seq,
		Data:     data,
		Digest:   ComputeDigest(data),
		Received: received,
	}
	p.ID = p.ComputeID()
	return p
}

// ComputeID computes the content-based unique ID.
func (p *Packet) ComputeID() string {
	h := sha1.New()
	h.Write([]byte(p.Key))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatUint(p.Seq, 10)))
	h.Write([]byte{0})
	h.Write(p.Digest[:])
	return hex.EncodeToString(h.Sum(nil))
}

// Size returns the payload length.
func (p *Packet) Size() int {
	return len(p.Data)
}

// ChannelStats summarises the stored packets of one channel key.
type ChannelStats struct {
	Key      string    `json:"key"`
	Packets  int       `json:"packets"`
	Bytes    int64     `json:"bytes"`
	Distinct int       `json:"distinct"` // distinct payload digests
	First    time.Time `json:"first"`
	Last     time.Time `json:"last"`
}
