package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/praetorian-inc/framer/pkg/sink"
	"github.com/praetorian-inc/framer/pkg/store"
	"github.com/praetorian-inc/framer/pkg/types"
)

// outputFlags selects where framed packets go. Several destinations may
// be combined.
type outputFlags struct {
	db          string
	ndjson      bool
	natsURL     string
	natsSubject string
	redisAddr   string
	redisStream string
	redisMaxLen int64
}

func (o *outputFlags) register(cmd *cobra.Command, ndjsonDefault bool) {
	f := cmd.Flags()
	f.StringVar(&o.db, "output", getEnv("FRAMER_DB", ""), "Packet database path (env FRAMER_DB)")
	f.BoolVar(&o.ndjson, "ndjson", ndjsonDefault, "Write packets to stdout as NDJSON")
	f.StringVar(&o.natsURL, "nats-url", getEnv("FRAMER_NATS_URL", ""), "Publish packets to this NATS server (env FRAMER_NATS_URL)")
	f.StringVar(&o.natsSubject, "nats-subject", sink.DefaultSubjectPrefix, "NATS subject prefix; the profile ID is appended")
	f.StringVar(&o.redisAddr, "redis-addr", getEnv("FRAMER_REDIS_ADDR", ""), "Append packets to a Redis stream at this address (env FRAMER_REDIS_ADDR)")
	f.StringVar(&o.redisStream, "redis-stream", sink.DefaultStream, "Redis stream key")
	f.Int64Var(&o.redisMaxLen, "redis-maxlen", 0, "Approximate Redis stream cap (0 = unbounded)")
}

// build opens every configured destination. The caller closes the result.
func (o *outputFlags) build(ctx context.Context, stdout io.Writer, p *types.Profile, logger *zap.Logger) (sink.Sink, error) {
	var sinks sink.Multi

	fail := func(err error) (sink.Sink, error) {
		_ = sinks.Close()
		return nil, err
	}

	if o.db != "" {
		s, err := store.New(store.Config{Path: o.db})
		if err != nil {
			return fail(fmt.Errorf("creating store: %w", err))
		}
		if err := s.AddProfile(p); err != nil {
			s.Close()
			return fail(fmt.Errorf("recording profile: %w", err))
		}
		sinks = append(sinks, sink.NewStoreSink(s))
		logger.Debug("storing packets", zap.String("path", o.db))
	}

	if o.ndjson {
		sinks = append(sinks, sink.NewWriterSink(stdout))
	}

	if o.natsURL != "" {
		s, err := sink.DialNATS(sink.NATSConfig{URL: o.natsURL, SubjectPrefix: o.natsSubject})
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
		logger.Info("publishing packets to NATS", zap.String("url", o.natsURL), zap.String("subject", o.natsSubject))
	}

	if o.redisAddr != "" {
		s, err := sink.DialRedis(ctx, sink.RedisConfig{Addr: o.redisAddr, Stream: o.redisStream, MaxLen: o.redisMaxLen})
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
		logger.Info("appending packets to Redis stream", zap.String("addr", o.redisAddr), zap.String("stream", o.redisStream))
	}

	switch len(sinks) {
	case 0:
		return sink.Discard{}, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}
