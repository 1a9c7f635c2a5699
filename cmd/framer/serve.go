package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/framer/pkg/framing"
	"github.com/praetorian-inc/framer/pkg/pipeline"
	"github.com/praetorian-inc/framer/pkg/profile"
	"github.com/praetorian-inc/framer/pkg/serve"
)

var (
	serveProfile      string
	serveProfilesPath string
	serveResync       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as an NDJSON framing co-process",
	Long: `Run Framer as a long-lived streaming server that accepts open, data, close
and shutdown requests via stdin and answers with framed packets via stdout
using NDJSON format.

The process loads the profile once at startup and processes requests until
stdin closes, a shutdown request arrives, or SIGTERM is received.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveProfile, "profile", "p", "", "Profile ID")
	serveCmd.Flags().StringVar(&serveProfilesPath, "profiles", "", "Path to custom profiles file or directory")
	serveCmd.Flags().BoolVar(&serveResync, "resync", false, "Skip bytes after a corrupt header until framing recovers")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	p, err := resolveProfile(serveProfile, serveProfilesPath)
	if err != nil {
		return err
	}

	f, err := profile.NewFramer(p, framing.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating framer: %w", err)
	}

	pl := pipeline.New(f, p.ID, pipeline.WithLogger(logger), pipeline.WithResync(serveResync))

	// Set up signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Create and run server
	srv := serve.NewServer(pl, p.ID, cmd.InOrStdin(), cmd.OutOrStdout())
	return srv.Run(ctx)
}
