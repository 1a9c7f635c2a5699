// Package source feeds raw byte chunks into the framer: capture files on
// disk or any io.Reader such as stdin or a serial port.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// DefaultChunkSize is the read size used when a config leaves it zero.
const DefaultChunkSize = 4096

// ChunkFunc receives the next chunk read for a channel key. The chunk is
// only valid for the duration of the call. Calls for one key are never
// concurrent; calls for different keys may be.
type ChunkFunc func(key string, chunk []byte) error

// Source produces chunks for one or more channel keys.
type Source interface {
	// Stream reads the source to the end, calling fn for each chunk.
	Stream(ctx context.Context, fn ChunkFunc) error
}

// ReaderSource streams a single io.Reader under one key.
type ReaderSource struct {
	Key       string
	Reader    io.Reader
	ChunkSize int
}

// NewReaderSource creates a source for r.
func NewReaderSource(key string, r io.Reader, chunkSize int) *ReaderSource {
	return &ReaderSource{Key: key, Reader: r, ChunkSize: chunkSize}
}

// Stream implements Source.
func (s *ReaderSource) Stream(ctx context.Context, fn ChunkFunc) error {
	return readChunks(ctx, s.Key, s.Reader, chunkSize(s.ChunkSize), fn)
}

func readChunks(ctx context.Context, key string, r io.Reader, size int, fn ChunkFunc) error {
	buf := make([]byte, size)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			if cbErr := fn(key, buf[:n]); cbErr != nil {
				return cbErr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", key, err)
		}
	}
}

func chunkSize(n int) int {
	if n <= 0 {
		return DefaultChunkSize
	}
	return n
}
