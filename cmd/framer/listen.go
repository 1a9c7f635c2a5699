package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/praetorian-inc/framer/pkg/framing"
	"github.com/praetorian-inc/framer/pkg/listen"
	"github.com/praetorian-inc/framer/pkg/metrics"
	"github.com/praetorian-inc/framer/pkg/pipeline"
	"github.com/praetorian-inc/framer/pkg/profile"
)

var (
	listenAddr         string
	listenHTTPAddr     string
	listenProfile      string
	listenProfilesPath string
	listenIdleTimeout  time.Duration
	listenResync       bool
	listenOutput       outputFlags
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run a TCP gateway that frames device connections",
	Long: `Accept TCP connections from devices and frame each connection as its own
channel. Packets are stored or published as they arrive.

A management server exposes /health, /channels and Prometheus /metrics.
The process runs until SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().StringVar(&listenAddr, "addr", getEnv("FRAMER_ADDR", ":5023"), "TCP address for device connections (env FRAMER_ADDR)")
	listenCmd.Flags().StringVar(&listenHTTPAddr, "http", getEnv("FRAMER_HTTP_ADDR", ":8081"), "Management HTTP address, empty to disable (env FRAMER_HTTP_ADDR)")
	listenCmd.Flags().StringVarP(&listenProfile, "profile", "p", "", "Profile ID")
	listenCmd.Flags().StringVar(&listenProfilesPath, "profiles", "", "Path to custom profiles file or directory")
	listenCmd.Flags().DurationVar(&listenIdleTimeout, "idle-timeout", listen.DefaultIdleTimeout, "Close connections idle this long")
	listenCmd.Flags().BoolVar(&listenResync, "resync", true, "Skip bytes after a corrupt header until framing recovers")
	listenOutput.register(listenCmd, false)
}

func runListen(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	p, err := resolveProfile(listenProfile, listenProfilesPath)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	obs, err := metrics.New(reg, p.ID)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	f, err := profile.NewFramer(p, framing.WithLogger(logger), framing.WithObserver(obs))
	if err != nil {
		return fmt.Errorf("creating framer: %w", err)
	}
	defer f.Dispose()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := listenOutput.build(ctx, cmd.OutOrStdout(), p, logger)
	if err != nil {
		return err
	}
	defer out.Close()

	pl := pipeline.New(f, p.ID,
		pipeline.WithSink(out),
		pipeline.WithLogger(logger),
		pipeline.WithResync(listenResync))

	srv := listen.New(listen.Config{
		Addr:        listenAddr,
		HTTPAddr:    listenHTTPAddr,
		IdleTimeout: listenIdleTimeout,
	}, pl, listen.WithLogger(logger), listen.WithRegistry(reg))

	logger.Info("starting gateway", zap.String("profile", p.ID), zap.String("strategy", f.Strategy().Name()))
	if err := srv.Run(ctx); err != nil {
		return err
	}

	stats := pl.Stats()
	logger.Info("gateway stopped",
		zap.Int64("packets", stats.Packets),
		zap.Int64("channels", stats.Channels),
		zap.Int64("data_errors", stats.DataErrors))
	return nil
}
