package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/praetorian-inc/framer/pkg/framing"
	"github.com/praetorian-inc/framer/pkg/pipeline"
	"github.com/praetorian-inc/framer/pkg/profile"
	"github.com/praetorian-inc/framer/pkg/source"
	"github.com/praetorian-inc/framer/pkg/types"
)

// detectBytes is how much of a stream is inspected for profile keywords.
const detectBytes = 4096

var (
	frameProfile       string
	frameProfilesPath  string
	frameChunkSize     int
	frameWorkers       int
	frameMaxFileSize   int64
	frameIncludeHidden bool
	frameResync        bool
	frameOutput        outputFlags
)

var frameCmd = &cobra.Command{
	Use:   "frame <path>... | -",
	Short: "Frame capture files or stdin",
	Long: `Replay capture files (or stdin with "-") through a framing profile.

Each file is its own channel. Packets are written as NDJSON to stdout and
optionally stored in a database or published to NATS or Redis. With
--profile auto the profile is chosen from keywords in the first bytes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFrame,
}

func init() {
	frameCmd.Flags().StringVarP(&frameProfile, "profile", "p", autoProfile, "Profile ID, or 'auto' to detect")
	frameCmd.Flags().StringVar(&frameProfilesPath, "profiles", "", "Path to custom profiles file or directory")
	frameCmd.Flags().IntVar(&frameChunkSize, "chunk-size", source.DefaultChunkSize, "Read size; small values replay slow links")
	frameCmd.Flags().IntVar(&frameWorkers, "workers", 0, "Files streamed concurrently (0 = NumCPU)")
	frameCmd.Flags().Int64Var(&frameMaxFileSize, "max-file-size", 0, "Skip files larger than this (bytes, 0 = no limit)")
	frameCmd.Flags().BoolVar(&frameIncludeHidden, "include-hidden", false, "Include hidden files and directories")
	frameCmd.Flags().BoolVar(&frameResync, "resync", false, "Skip bytes after a corrupt header until framing recovers")
	frameOutput.register(frameCmd, true)
}

func runFrame(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, head, err := frameSource(ctx, cmd, args)
	if err != nil {
		return err
	}

	var p *types.Profile
	if frameProfile == autoProfile {
		p, err = detectProfile(head, frameProfilesPath)
		if err != nil {
			return err
		}
		logger.Info("profile detected", zap.String("profile", p.ID))
	} else {
		p, err = resolveProfile(frameProfile, frameProfilesPath)
		if err != nil {
			return err
		}
	}

	f, err := profile.NewFramer(p, framing.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating framer: %w", err)
	}
	defer f.Dispose()

	out, err := frameOutput.build(ctx, cmd.OutOrStdout(), p, logger)
	if err != nil {
		return err
	}
	defer out.Close()

	pl := pipeline.New(f, p.ID,
		pipeline.WithSink(out),
		pipeline.WithLogger(logger),
		pipeline.WithResync(frameResync))

	if err := pl.Stream(ctx, src); err != nil {
		return fmt.Errorf("framing: %w", err)
	}

	stats := pl.Stats()
	fmt.Fprintf(cmd.ErrOrStderr(), "Framed %d packets (%d bytes) from %d channels with %s\n",
		stats.Packets, stats.Bytes, stats.Channels, p.ID)
	if stats.DataErrors > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Corrupt headers: %d (%d bytes skipped)\n", stats.DataErrors, stats.Discarded)
	}
	return nil
}

// frameSource builds the source for args and returns the first bytes of
// the stream for profile detection.
func frameSource(ctx context.Context, cmd *cobra.Command, args []string) (source.Source, []byte, error) {
	if len(args) == 1 && args[0] == "-" {
		reader := bufio.NewReaderSize(cmd.InOrStdin(), detectBytes)
		var head []byte
		if frameProfile == autoProfile {
			peeked, err := reader.Peek(detectBytes)
			if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
				return nil, nil, fmt.Errorf("reading stdin: %w", err)
			}
			head = append([]byte(nil), peeked...)
		}
		return source.NewReaderSource("stdin", reader, frameChunkSize), head, nil
	}

	for _, arg := range args {
		if arg == "-" {
			return nil, nil, fmt.Errorf("'-' (stdin) cannot be combined with paths")
		}
		if _, err := os.Stat(arg); err != nil {
			return nil, nil, fmt.Errorf("target does not exist: %s", arg)
		}
	}

	src := source.NewFileSource(source.FileConfig{
		Paths:         args,
		IncludeHidden: frameIncludeHidden,
		MaxFileSize:   frameMaxFileSize,
		ChunkSize:     frameChunkSize,
		Workers:       frameWorkers,
	})
	if frameProfile != autoProfile {
		return src, nil, nil
	}

	files, err := src.Files(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no files to frame")
	}
	head, err := readHead(files[0], detectBytes)
	if err != nil {
		return nil, nil, err
	}
	return src, head, nil
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return buf[:read], nil
}
