package profile

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// yamlProfile is the intermediate struct for parsing profile YAML.
//
// Byte-string fields take either a YAML string, where double-quoted escapes
// such as "\r\n" and "\x7e" apply, or "hex:" followed by hex digits for
// arbitrary binary.
type yamlProfile struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Kind        string      `yaml:"kind"`
	Algorithm   string      `yaml:"algorithm,omitempty"`
	PacketSize  int         `yaml:"packet_size,omitempty"`
	Terminator  string      `yaml:"terminator,omitempty"`
	Start       string      `yaml:"start,omitempty"`
	End         string      `yaml:"end,omitempty"`
	Header      *yamlHeader `yaml:"header,omitempty"`
	Capacity    int         `yaml:"capacity,omitempty"`
	MaxSize     int         `yaml:"max_size,omitempty"`
	Keywords    []string    `yaml:"keywords,omitempty"`
	Examples    []string    `yaml:"examples,omitempty"`
	References  []string    `yaml:"references,omitempty"`
	Categories  []string    `yaml:"categories,omitempty"`
}

type yamlHeader struct {
	Size          int    `yaml:"size"`
	MaxPacketSize int    `yaml:"max_packet_size"`
	LengthOffset  int    `yaml:"length_offset,omitempty"`
	LengthSize    int    `yaml:"length_size,omitempty"`
	BigEndian     bool   `yaml:"big_endian,omitempty"`
	Adjust        int    `yaml:"adjust,omitempty"`
	Magic         string `yaml:"magic,omitempty"`
	StripHeader   bool   `yaml:"strip_header,omitempty"`
}

// yamlProfilesFile represents the top-level structure of a profiles file.
type yamlProfilesFile struct {
	Profiles []yamlProfile `yaml:"profiles"`
}

// yamlProfileSet is the intermediate struct for parsing profile sets.
type yamlProfileSet struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	ProfileIDs  []string `yaml:"include_profile_ids"`
}

// yamlProfileSetsFile represents the top-level structure of a profile sets file.
type yamlProfileSetsFile struct {
	ProfileSets []yamlProfileSet `yaml:"profilesets"`
}

// DecodeBytes decodes a profile byte string: "hex:0d0a" or literal text.
func DecodeBytes(s string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(s, "hex:"); ok {
		b, err := hex.DecodeString(strings.ReplaceAll(rest, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte string %q: %w", s, err)
		}
		return b, nil
	}
	if s == "" {
		return nil, nil
	}
	return []byte(s), nil
}

// EncodeBytes is the inverse of DecodeBytes. Printable ASCII is kept as
// text, anything else is written as hex.
func EncodeBytes(b []byte) string {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return "hex:" + hex.EncodeToString(b)
		}
	}
	if strings.HasPrefix(string(b), "hex:") {
		return "hex:" + hex.EncodeToString(b)
	}
	return string(b)
}

func decodeAll(values []string) ([][]byte, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([][]byte, 0, len(values))
	for _, v := range values {
		b, err := DecodeBytes(v)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
