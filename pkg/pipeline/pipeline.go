// Package pipeline connects chunk sources, a framing.Framer and a packet
// sink. It numbers the packets of every channel and turns raw framer output
// into types.Packet values.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/praetorian-inc/framer/pkg/framing"
	"github.com/praetorian-inc/framer/pkg/sink"
	"github.com/praetorian-inc/framer/pkg/source"
	"github.com/praetorian-inc/framer/pkg/types"
)

// Pipeline frames chunks for many channels and writes the packets to a sink.
// Open, Feed and Close for one key must not run concurrently; different
// keys may be fed from different goroutines.
type Pipeline struct {
	framer  *framing.Framer
	profile string
	sink    sink.Sink
	logger  *zap.Logger
	now     func() time.Time
	resync  bool

	mu   sync.Mutex
	seqs map[string]uint64

	stats counters
}

type counters struct {
	packets    atomic.Int64
	bytes      atomic.Int64
	dataErrors atomic.Int64
	discarded  atomic.Int64
	channels   atomic.Int64
}

// Stats is a snapshot of pipeline totals.
type Stats struct {
	Packets    int64 `json:"packets"`
	Bytes      int64 `json:"bytes"`
	DataErrors int64 `json:"data_errors"`
	Discarded  int64 `json:"discarded"` // bytes skipped while resynchronising
	Channels   int64 `json:"channels"`  // channels opened over the lifetime
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSink sets the packet destination. The default discards packets.
func WithSink(s sink.Sink) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the packet receive timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithResync makes Feed skip one byte at a time after a corrupt header
// until the stream frames again, instead of returning the error.
func WithResync(enabled bool) Option {
	return func(p *Pipeline) {
		p.resync = enabled
	}
}

// New creates a pipeline over f. profileID is recorded on every packet.
func New(f *framing.Framer, profileID string, opts ...Option) *Pipeline {
	p := &Pipeline{
		framer:  f,
		profile: profileID,
		sink:    sink.Discard{},
		logger:  zap.NewNop(),
		now:     time.Now,
		seqs:    make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Framer returns the underlying framer.
func (p *Pipeline) Framer() *framing.Framer {
	return p.framer
}

// Open registers a channel for key.
func (p *Pipeline) Open(key string) error {
	if err := p.framer.AddChannel(key); err != nil {
		return err
	}
	p.mu.Lock()
	p.seqs[key] = 0
	p.mu.Unlock()
	p.stats.channels.Add(1)
	return nil
}

// OpenSize registers a channel for key with an explicit buffer size.
func (p *Pipeline) OpenSize(key string, capacity, maxSize int) error {
	if err := p.framer.AddChannelSize(key, capacity, maxSize); err != nil {
		return err
	}
	p.mu.Lock()
	p.seqs[key] = 0
	p.mu.Unlock()
	p.stats.channels.Add(1)
	return nil
}

// Close removes the channel for key, dropping any partial packet. It
// returns the number of packets the channel produced and false if the key
// was not open.
func (p *Pipeline) Close(key string) (uint64, bool) {
	if !p.framer.RemoveChannel(key) {
		return 0, false
	}
	p.mu.Lock()
	n := p.seqs[key]
	delete(p.seqs, key)
	p.mu.Unlock()
	return n, true
}

// CloseAll closes every open channel and returns how many were open.
func (p *Pipeline) CloseAll() int {
	closed := 0
	for _, ch := range p.Channels() {
		if _, ok := p.Close(ch.Key); ok {
			closed++
		}
	}
	return closed
}

// Feed frames chunk on key, writes every complete packet to the sink and
// returns them in stream order. Packets already framed are returned even
// when a *framing.DataError or a sink error is.
func (p *Pipeline) Feed(ctx context.Context, key string, chunk []byte) ([]*types.Packet, error) {
	var packets []*types.Packet
	received := p.now()

	collect := func(k string, data []byte) bool {
		packets = append(packets, p.packet(k, data, received))
		return true
	}

	_, err := p.framer.Analyse(key, chunk, collect)
	for err != nil && errors.Is(err, framing.ErrCorruptData) {
		p.stats.dataErrors.Add(1)
		if !p.resync {
			break
		}
		if derr := p.framer.Discard(key, 1); derr != nil {
			break
		}
		p.stats.discarded.Add(1)
		_, err = p.framer.Analyse(key, nil, collect)
	}

	for _, pkt := range packets {
		if werr := p.sink.Write(ctx, pkt); werr != nil {
			return packets, fmt.Errorf("writing packet %d of %s: %w", pkt.Seq, key, werr)
		}
	}
	return packets, err
}

func (p *Pipeline) packet(key string, data []byte, received time.Time) *types.Packet {
	p.mu.Lock()
	p.seqs[key]++
	seq := p.seqs[key]
	p.mu.Unlock()

	p.stats.packets.Add(1)
	p.stats.bytes.Add(int64(len(data)))
	return types.NewPacket(key, p.profile, seq, data, received)
}

// Stream reads src to the end. Channels are opened on their first chunk
// and closed when the source finishes, so a trailing partial packet is
// dropped. Corrupt data is logged and streaming continues.
func (p *Pipeline) Stream(ctx context.Context, src source.Source) error {
	var mu sync.Mutex
	opened := make(map[string]bool)

	err := src.Stream(ctx, func(key string, chunk []byte) error {
		mu.Lock()
		isNew := !opened[key]
		opened[key] = true
		mu.Unlock()

		if isNew {
			if err := p.Open(key); err != nil {
				return fmt.Errorf("opening channel %s: %w", key, err)
			}
		}

		_, err := p.Feed(ctx, key, chunk)
		if err != nil && errors.Is(err, framing.ErrCorruptData) {
			p.logger.Warn("skipping corrupt data", zap.String("key", key), zap.Error(err))
			return p.framer.Reset(key)
		}
		return err
	})

	for key := range opened {
		if n, ok := p.Close(key); ok {
			p.logger.Debug("channel finished", zap.String("key", key), zap.Uint64("packets", n))
		}
	}
	return err
}

// ChannelStatus reports an open channel and the packets it produced so far.
type ChannelStatus struct {
	Key     string `json:"key"`
	Packets uint64 `json:"packets"`
}

// Channels lists the open channels sorted by key. Buffer contents are not
// inspected, so it is safe to call while channels are being fed.
func (p *Pipeline) Channels() []ChannelStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]ChannelStatus, 0, len(p.seqs))
	for key, n := range p.seqs {
		out = append(out, ChannelStatus{Key: key, Packets: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Stats returns a snapshot of the totals.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Packets:    p.stats.packets.Load(),
		Bytes:      p.stats.bytes.Load(),
		DataErrors: p.stats.dataErrors.Load(),
		Discarded:  p.stats.discarded.Load(),
		Channels:   p.stats.channels.Load(),
	}
}
