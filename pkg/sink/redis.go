package sink

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/praetorian-inc/framer/pkg/types"
)

// DefaultStream is used when RedisConfig.Stream is empty.
const DefaultStream = "framer:packets"

// StreamAdder is the subset of *redis.Client used by RedisSink.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisConfig configures a Redis stream sink.
type RedisConfig struct {
	Addr   string
	DB     int
	Stream string
	MaxLen int64 // approximate stream cap, 0 for unbounded
}

// RedisSink appends each packet to a Redis stream with XADD.
type RedisSink struct {
	client StreamAdder
	stream string
	maxLen int64
	closer *redis.Client // nil when built over a StreamAdder
}

// DialRedis connects to cfg.Addr and checks the connection.
func DialRedis(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to Redis at %s: %w", cfg.Addr, err)
	}

	s := NewRedisSink(client, cfg.Stream, cfg.MaxLen)
	s.closer = client
	return s, nil
}

// NewRedisSink creates a sink over an existing client. Close does not
// close client.
func NewRedisSink(client StreamAdder, stream string, maxLen int64) *RedisSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisSink{client: client, stream: stream, maxLen: maxLen}
}

// Write implements Sink.
func (s *RedisSink) Write(ctx context.Context, p *types.Packet) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"id":       p.ID,
			"key":      p.Key,
			"profile":  p.Profile,
			"seq":      strconv.FormatUint(p.Seq, 10),
			"digest":   p.Digest.Hex(),
			"data":     p.Data,
			"received": p.Received.UTC().Format(time.RFC3339Nano),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("adding packet to stream %s: %w", s.stream, err)
	}
	return nil
}

// Close closes the client opened by DialRedis.
func (s *RedisSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
