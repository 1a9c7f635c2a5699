package store

import (
	"sort"
	"sync"

	"github.com/praetorian-inc/framer/pkg/types"
)

// MemoryStore implements Store using in-memory data structures.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*types.Profile  // keyed by profile ID
	packets  map[string][]*types.Packet // keyed by channel key, in insertion order
	ids      map[string]bool            // packet IDs
}

// NewMemory creates a new in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*types.Profile),
		packets:  make(map[string][]*types.Packet),
		ids:      make(map[string]bool),
	}
}

// AddProfile records a profile.
func (m *MemoryStore) AddProfile(p *types.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.profiles[p.ID]; !exists {
		m.profiles[p.ID] = p
	}
	return nil
}

// AddPacket stores a packet (deduplicated by ID).
func (m *MemoryStore) AddPacket(p *types.Packet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ids[p.ID] {
		return nil
	}
	m.ids[p.ID] = true
	m.packets[p.Key] = append(m.packets[p.Key], p)
	return nil
}

// PacketExists checks if a packet with this ID is stored.
func (m *MemoryStore) PacketExists(id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.ids[id], nil
}

// GetPackets retrieves the packets of one channel key in sequence order.
func (m *MemoryStore) GetPackets(key string) ([]*types.Packet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*types.Packet, len(m.packets[key]))
	copy(result, m.packets[key])
	sortBySeq(result)
	return result, nil
}

// GetAllPackets retrieves all packets ordered by key and sequence.
func (m *MemoryStore) GetAllPackets() ([]*types.Packet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*types.Packet, 0)
	for _, key := range m.keys() {
		packets := make([]*types.Packet, len(m.packets[key]))
		copy(packets, m.packets[key])
		sortBySeq(packets)
		result = append(result, packets...)
	}
	return result, nil
}

// ChannelStats summarises stored packets per channel key, sorted by key.
func (m *MemoryStore) ChannelStats() ([]types.ChannelStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]types.ChannelStats, 0, len(m.packets))
	for _, key := range m.keys() {
		st := types.ChannelStats{Key: key}
		digests := make(map[types.Digest]bool)
		for _, p := range m.packets[key] {
			st.Packets++
			st.Bytes += int64(len(p.Data))
			digests[p.Digest] = true
			if st.First.IsZero() || p.Received.Before(st.First) {
				st.First = p.Received
			}
			if p.Received.After(st.Last) {
				st.Last = p.Received
			}
		}
		st.Distinct = len(digests)
		result = append(result, st)
	}
	return result, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) keys() []string {
	keys := make([]string, 0, len(m.packets))
	for k := range m.packets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortBySeq(packets []*types.Packet) {
	sort.SliceStable(packets, func(i, j int) bool {
		return packets[i].Seq < packets[j].Seq
	})
}
