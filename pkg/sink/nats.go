package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/praetorian-inc/framer/pkg/types"
)

// DefaultSubjectPrefix is used when NATSConfig.SubjectPrefix is empty.
const DefaultSubjectPrefix = "framer.packets"

// Publisher is the subset of *nats.Conn used by NATSSink.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSConfig configures a NATS sink.
type NATSConfig struct {
	URL           string
	SubjectPrefix string // packets go to "<prefix>.<profile>"
	Name          string // client connection name
}

// NATSSink publishes each packet as JSON.
type NATSSink struct {
	pub    Publisher
	prefix string
	conn   *nats.Conn // nil when built over a Publisher
}

// DialNATS connects to the server at cfg.URL.
func DialNATS(cfg NATSConfig) (*NATSSink, error) {
	name := cfg.Name
	if name == "" {
		name = "framer"
	}
	conn, err := nats.Connect(cfg.URL, nats.Name(name))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", cfg.URL, err)
	}
	s := NewNATSSink(conn, cfg.SubjectPrefix)
	s.conn = conn
	return s, nil
}

// NewNATSSink creates a sink over an existing publisher. Close does not
// close pub.
func NewNATSSink(pub Publisher, prefix string) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSSink{pub: pub, prefix: prefix}
}

// Subject returns the subject a packet is published on.
func (s *NATSSink) Subject(p *types.Packet) string {
	if p.Profile == "" {
		return s.prefix + ".unknown"
	}
	return s.prefix + "." + p.Profile
}

// Write implements Sink.
func (s *NATSSink) Write(ctx context.Context, p *types.Packet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding packet: %w", err)
	}
	subject := s.Subject(p)
	if err := s.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection opened by DialNATS.
func (s *NATSSink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
