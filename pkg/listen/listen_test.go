package listen

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/framer/pkg/framing"
	"github.com/praetorian-inc/framer/pkg/metrics"
	"github.com/praetorian-inc/framer/pkg/pipeline"
	"github.com/praetorian-inc/framer/pkg/sink"
	"github.com/praetorian-inc/framer/pkg/store"
	"github.com/praetorian-inc/framer/pkg/types"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *store.MemoryStore) {
	t.Helper()
	f, err := framing.New(framing.MustTerminator([]byte("\r\n")))
	require.NoError(t, err)

	mem := store.NewMemory()
	p := pipeline.New(f, "framer.crlf", pipeline.WithSink(sink.NewStoreSink(mem)))
	return New(Config{IdleTimeout: 5 * time.Second}, p, opts...), mem
}

// startServer serves on a loopback port until the test ends.
func startServer(t *testing.T, s *Server) net.Addr {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return ln.Addr()
}

func packetsOf(mem *store.MemoryStore) []*types.Packet {
	all, _ := mem.GetAllPackets()
	return all
}

func TestServer_FramesEachConnection(t *testing.T) {
	s, mem := newTestServer(t)
	addr := startServer(t, s)

	first, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	second, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)

	_, err = first.Write([]byte("$GPGGA,1\r\n$GPG"))
	require.NoError(t, err)
	_, err = second.Write([]byte("#L#imei;pass\r\n"))
	require.NoError(t, err)
	_, err = first.Write([]byte("GA,2\r\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(packetsOf(mem)) == 3 },
		5*time.Second, 10*time.Millisecond)

	byKey := make(map[string][]string)
	for _, p := range packetsOf(mem) {
		byKey[p.Key] = append(byKey[p.Key], string(p.Data))
	}
	assert.Equal(t, []string{"$GPGGA,1", "$GPGGA,2"}, byKey[first.LocalAddr().String()])
	assert.Equal(t, []string{"#L#imei;pass"}, byKey[second.LocalAddr().String()])

	require.NoError(t, first.Close())
	require.NoError(t, second.Close())

	require.Eventually(t, func() bool { return s.pipeline.Framer().Len() == 0 },
		5*time.Second, 10*time.Millisecond, "channels are removed when connections close")
}

func TestServer_ShutdownClosesConnections(t *testing.T) {
	s, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.pipeline.Framer().Len() == 1 },
		5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	assert.Zero(t, s.pipeline.Framer().Len())
}

func TestHandler_HealthAndChannels(t *testing.T) {
	s, _ := newTestServer(t)
	require.NoError(t, s.pipeline.Open("10.0.0.7:40000"))
	_, err := s.pipeline.Feed(context.Background(), "10.0.0.7:40000", []byte("a\r\nb\r\n"))
	require.NoError(t, err)

	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var hv struct {
		Status   string         `json:"status"`
		Channels int            `json:"channels"`
		Stats    pipeline.Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hv))
	assert.Equal(t, "ok", hv.Status)
	assert.Equal(t, 1, hv.Channels)
	assert.Equal(t, int64(2), hv.Stats.Packets)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/channels", nil))
	var channels []pipeline.ChannelStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &channels))
	assert.Equal(t, []pipeline.ChannelStatus{{Key: "10.0.0.7:40000", Packets: 2}}, channels)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "no registry configured")
}

func TestHandler_Metrics(t *testing.T) {
	reg := metrics.NewRegistry()
	obs, err := metrics.New(reg, "framer.crlf")
	require.NoError(t, err)

	f, err := framing.New(framing.MustTerminator([]byte("\r\n")), framing.WithObserver(obs))
	require.NoError(t, err)
	s := New(Config{}, pipeline.New(f, "framer.crlf"), WithRegistry(reg))

	require.NoError(t, s.pipeline.Open("k"))
	_, err = s.pipeline.Feed(context.Background(), "k", []byte("x\r\n"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "framer_packets_total"), body)
	assert.Contains(t, body, `profile="framer.crlf"`)
}
