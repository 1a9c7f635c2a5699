//go:build !wasm

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/praetorian-inc/framer/pkg/types"
	_ "modernc.org/sqlite"
)

// driverName is the database/sql name registered by modernc.org/sqlite.
const driverName = "sqlite"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-based store.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// openDB opens path with a single connection: SQLite serialises writers
// anyway, and ":memory:" databases are private to one connection.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// AddProfile records a profile.
func (s *SQLiteStore) AddProfile(p *types.Profile) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO profiles (id, name, kind, structural_id)
		VALUES (?, ?, ?, ?)
	`, p.ID, p.Name, p.Kind, p.StructuralID)
	if err != nil {
		return fmt.Errorf("inserting profile: %w", err)
	}
	return nil
}

// AddPacket stores a packet (deduplicated by ID).
func (s *SQLiteStore) AddPacket(p *types.Packet) error {
	data := p.Data
	if data == nil {
		data = []byte{}
	}

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO packets (id, channel, profile, seq, data, size, digest, received)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID,
		p.Key,
		p.Profile,
		int64(p.Seq),
		data,
		len(p.Data),
		p.Digest,
		p.Received.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting packet: %w", err)
	}
	return nil
}

// PacketExists checks if a packet with this ID is stored.
func (s *SQLiteStore) PacketExists(id string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM packets WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking packet existence: %w", err)
	}
	return count > 0, nil
}

// GetPackets retrieves the packets of one channel key in sequence order.
func (s *SQLiteStore) GetPackets(key string) ([]*types.Packet, error) {
	return s.queryPackets(`
		SELECT id, channel, profile, seq, data, digest, received
		FROM packets
		WHERE channel = ?
		ORDER BY seq
	`, key)
}

// GetAllPackets retrieves all packets ordered by key and sequence.
func (s *SQLiteStore) GetAllPackets() ([]*types.Packet, error) {
	return s.queryPackets(`
		SELECT id, channel, profile, seq, data, digest, received
		FROM packets
		ORDER BY channel, seq
	`)
}

func (s *SQLiteStore) queryPackets(query string, args ...any) ([]*types.Packet, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying packets: %w", err)
	}
	defer rows.Close()

	packets := make([]*types.Packet, 0)
	for rows.Next() {
		var p types.Packet
		var seq, received int64

		err := rows.Scan(&p.ID, &p.Key, &p.Profile, &seq, &p.Data, &p.Digest, &received)
		if err != nil {
			return nil, fmt.Errorf("scanning packet: %w", err)
		}
		p.Seq = uint64(seq)
		p.Received = time.Unix(0, received).UTC()

		packets = append(packets, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating packets: %w", err)
	}

	return packets, nil
}

// ChannelStats summarises stored packets per channel key, sorted by key.
func (s *SQLiteStore) ChannelStats() ([]types.ChannelStats, error) {
	rows, err := s.db.Query(`
		SELECT channel, COUNT(*), COALESCE(SUM(size), 0), COUNT(DISTINCT digest),
		       MIN(received), MAX(received)
		FROM packets
		GROUP BY channel
		ORDER BY channel
	`)
	if err != nil {
		return nil, fmt.Errorf("querying channel stats: %w", err)
	}
	defer rows.Close()

	stats := make([]types.ChannelStats, 0)
	for rows.Next() {
		var st types.ChannelStats
		var first, last int64
		if err := rows.Scan(&st.Key, &st.Packets, &st.Bytes, &st.Distinct, &first, &last); err != nil {
			return nil, fmt.Errorf("scanning channel stats: %w", err)
		}
		st.First = time.Unix(0, first).UTC()
		st.Last = time.Unix(0, last).UTC()
		stats = append(stats, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating channel stats: %w", err)
	}

	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
