// Package listen runs a TCP gateway: every accepted connection becomes a
// framing channel keyed by its remote address, read by its own goroutine.
package listen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/praetorian-inc/framer/pkg/framing"
	"github.com/praetorian-inc/framer/pkg/pipeline"
)

const (
	// DefaultIdleTimeout closes connections that stay silent this long.
	DefaultIdleTimeout = 300 * time.Second

	// DefaultReadSize is the per-connection read buffer.
	DefaultReadSize = 4096
)

// Config holds listener configuration.
type Config struct {
	Addr        string        // TCP address for devices, e.g. ":5023"
	HTTPAddr    string        // management address; empty disables it
	IdleTimeout time.Duration // 0 = DefaultIdleTimeout
	ReadSize    int           // 0 = DefaultReadSize
}

// Server accepts device connections and frames their streams.
type Server struct {
	cfg      Config
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
	registry *prometheus.Registry

	mu      sync.Mutex
	conns   map[string]net.Conn
	closing bool
	wg      sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry exposes reg on the management server at /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// New creates a server that frames connections through p.
func New(cfg Config, p *pipeline.Pipeline, opts ...Option) *Server {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.ReadSize <= 0 {
		cfg.ReadSize = DefaultReadSize
	}
	s := &Server{
		cfg:      cfg,
		pipeline: p,
		logger:   zap.NewNop(),
		conns:    make(map[string]net.Conn),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run listens on the configured addresses and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Serve(ctx, ln)
	})

	if s.cfg.HTTPAddr != "" {
		srv := &http.Server{
			Addr:              s.cfg.HTTPAddr,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			s.logger.Info("management server listening", zap.String("addr", s.cfg.HTTPAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("management server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// Serve accepts connections on ln until ctx is done, then closes every
// open connection and waits for their goroutines.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	stop := context.AfterFunc(ctx, func() {
		ln.Close()
	})
	defer stop()

	defer func() {
		s.closeAll()
		s.wg.Wait()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept error", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	key := conn.RemoteAddr().String()
	log := s.logger.With(zap.String("key", key))
	defer conn.Close()

	if err := s.pipeline.Open(key); err != nil {
		log.Warn("rejecting connection", zap.Error(err))
		return
	}
	s.track(key, conn)
	log.Info("connection opened")

	defer func() {
		s.untrack(key)
		n, _ := s.pipeline.Close(key)
		log.Info("connection closed", zap.Uint64("packets", n))
	}()

	buf := make([]byte, s.cfg.ReadSize)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			log.Debug("set deadline", zap.Error(err))
		}

		n, err := conn.Read(buf)
		if n > 0 {
			if _, ferr := s.pipeline.Feed(ctx, key, buf[:n]); ferr != nil {
				if !errors.Is(ferr, framing.ErrCorruptData) {
					log.Error("delivering packets", zap.Error(ferr))
					return
				}
				// Nothing in the buffer can be trusted; start over.
				log.Warn("corrupt data, channel reset", zap.Error(ferr))
				_ = s.pipeline.Framer().Reset(key)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Debug("read error", zap.Error(err))
			}
			return
		}
	}
}

func (s *Server) track(key string, conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		conn.Close()
		return
	}
	s.conns[key] = conn
}

func (s *Server) untrack(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, key)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true
	for _, conn := range s.conns {
		conn.Close()
	}
}
