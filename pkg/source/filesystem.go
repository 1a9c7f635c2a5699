package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"
)

// FileConfig configures a FileSource.
type FileConfig struct {
	// Paths are capture files or directories to walk.
	Paths []string

	// IncludeHidden includes hidden files/directories (starting with .).
	IncludeHidden bool

	// MaxFileSize is the maximum file size to process (0 = no limit).
	MaxFileSize int64

	// FollowSymlinks follows symbolic links.
	FollowSymlinks bool

	// ChunkSize is the read size (0 = DefaultChunkSize). Small sizes are
	// useful to replay a capture the way a slow link delivers it.
	ChunkSize int

	// Workers caps concurrently streamed files (0 = NumCPU).
	Workers int
}

// FileSource streams capture files. Each file is one channel, keyed by
// its path, and is read by exactly one goroutine.
type FileSource struct {
	config FileConfig
}

// NewFileSource creates a filesystem source.
func NewFileSource(config FileConfig) *FileSource {
	return &FileSource{config: config}
}

// Files walks the configured paths and returns the eligible files in walk
// order. A path naming a file is returned as is, even if hidden.
func (s *FileSource) Files(ctx context.Context) ([]string, error) {
	var files []string
	for _, root := range s.config.Paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}

		found, err := s.walk(ctx, root)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func (s *FileSource) walk(ctx context.Context, root string) ([]string, error) {
	// Load .gitignore patterns if present
	var ignore *gitignore.GitIgnore
	gitignorePath := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		ignore, _ = gitignore.CompileIgnoreFile(gitignorePath)
	}

	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			if path != root && !s.config.IncludeHidden && isHidden(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 && !s.config.FollowSymlinks {
			return nil
		}

		if !s.config.IncludeHidden && isHidden(info.Name()) {
			return nil
		}

		if s.config.MaxFileSize > 0 && info.Size() > s.config.MaxFileSize {
			return nil
		}

		if ignore != nil {
			relPath, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			if ignore.MatchesPath(relPath) {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Stream walks the configured paths, then streams files in parallel.
func (s *FileSource) Stream(ctx context.Context, fn ChunkFunc) error {
	files, err := s.Files(ctx)
	if err != nil {
		return err
	}

	workers := s.config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	origCtx := ctx
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, path := range files {
		g.Go(func() error {
			return s.streamFile(ctx, path, fn)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// If the caller's context was cancelled but all goroutines finished
	// before noticing, propagate the cancellation.
	return origCtx.Err()
}

func (s *FileSource) streamFile(ctx context.Context, path string, fn ChunkFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	return readChunks(ctx, path, f, chunkSize(s.config.ChunkSize), fn)
}

// isHidden checks if a filename is hidden (starts with .).
// The special entries "." and ".." are NOT considered hidden.
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
