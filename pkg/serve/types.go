package serve

import (
	"encoding/json"

	"github.com/praetorian-inc/framer/pkg/types"
)

// Request types.
const (
	TypeOpen     = "open"
	TypeData     = "data"
	TypeClose    = "close"
	TypeShutdown = "shutdown"
)

// Request represents an incoming NDJSON request
type Request struct {
	Type    string          `json:"type"` // "open" | "data" | "close" | "shutdown"
	Payload json.RawMessage `json:"payload"`
}

// OpenPayload is the payload for "open" requests. Zero sizes select the
// profile defaults.
type OpenPayload struct {
	Key      string `json:"key"`
	Capacity int    `json:"capacity,omitempty"`
	MaxSize  int    `json:"max_size,omitempty"`
}

// DataPayload is the payload for "data" requests. Data is base64 in JSON.
type DataPayload struct {
	Key  string `json:"key"`
	Data []byte `json:"data"`
}

// ClosePayload is the payload for "close" requests
type ClosePayload struct {
	Key string `json:"key"`
}

// Response represents an outgoing NDJSON response
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"` // "ready" | "open" | "packets" | "close" | "error" types
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ReadyData is the data field for "ready" responses
type ReadyData struct {
	Version  string `json:"version"`
	Profile  string `json:"profile"`
	Strategy string `json:"strategy"`
}

// ChannelData is the data field for "open" and "close" responses
type ChannelData struct {
	Key     string `json:"key"`
	Packets uint64 `json:"packets,omitempty"` // total framed, on close
}

// PacketsData is the data field for "packets" responses
type PacketsData struct {
	Key     string          `json:"key"`
	Packets []*types.Packet `json:"packets"`
	Handled bool            `json:"handled"`
}
