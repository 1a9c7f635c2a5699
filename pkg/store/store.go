package store

import (
	"github.com/praetorian-inc/framer/pkg/types"
)

// Store persists framed packets.
// This interface abstracts the underlying storage implementation,
// allowing for different backends (memory, SQLite).
type Store interface {
	// AddProfile records a profile that framed stored packets.
	AddProfile(p *types.Profile) error

	// AddPacket stores a packet (deduplicated by ID).
	AddPacket(p *types.Packet) error

	// PacketExists checks if a packet with this ID is stored.
	PacketExists(id string) (bool, error)

	// GetPackets retrieves the packets of one channel key in sequence order.
	GetPackets(key string) ([]*types.Packet, error)

	// GetAllPackets retrieves all packets ordered by key and sequence.
	GetAllPackets() ([]*types.Packet, error)

	// ChannelStats summarises stored packets per channel key, sorted by key.
	ChannelStats() ([]types.ChannelStats, error)

	// Close releases the backend.
	Close() error
}

// Config for store initialization.
type Config struct {
	// Path is the database file path.
	// Use ":memory:" for an in-memory store (useful for testing).
	Path string
}

// MemoryPath selects the in-memory backend.
const MemoryPath = ":memory:"
