package types

import (
	"crypto/sha1"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Digest is the SHA-1 hash of a packet payload (20 bytes).
type Digest [20]byte

// ComputeDigest hashes data.
func ComputeDigest(data []byte) Digest {
	return Digest(sha1.Sum(data))
}

// Hex returns the 40-character hex encoding.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// String implements Stringer (returns Hex()).
func (d Digest) String() string {
	return d.Hex()
}

// IsZero reports whether d is the zero value.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// ParseDigest parses a 40-char hex string.
func ParseDigest(hexStr string) (Digest, error) {
	if len(hexStr) != 40 {
		return Digest{}, fmt.Errorf("invalid digest length: expected 40, got %d", len(hexStr))
	}

	decoded, err := hex.DecodeString(hexStr)
	if err != nil {
		return Digest{}, fmt.Errorf("invalid hex string: %w", err)
	}

	var d Digest
	copy(d[:], decoded)
	return d, nil
}

// MarshalJSON implements json.Marshaler.
func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Hex())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Digest) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		return err
	}

	parsed, err := ParseDigest(hexStr)
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}

// Value implements driver.Valuer for SQL serialization.
func (d Digest) Value() (driver.Value, error) {
	return d.Hex(), nil
}

// Scan implements sql.Scanner for SQL deserialization.
func (d *Digest) Scan(value interface{}) error {
	if value == nil {
		return fmt.Errorf("cannot scan nil into Digest")
	}

	var hexStr string
	switch v := value.(type) {
	case string:
		hexStr = v
	case []byte:
		hexStr = string(v)
	default:
		return fmt.Errorf("cannot scan type %T into Digest", value)
	}

	parsed, err := ParseDigest(hexStr)
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}
