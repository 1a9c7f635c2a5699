package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// streamAll collects the reassembled content of every key.
func streamAll(t *testing.T, src Source) map[string]string {
	t.Helper()
	var mu sync.Mutex
	got := make(map[string]string)
	err := src.Stream(context.Background(), func(key string, chunk []byte) error {
		mu.Lock()
		defer mu.Unlock()
		got[key] += string(chunk)
		return nil
	})
	require.NoError(t, err)
	return got
}

func TestFileSource_WalksDirectory(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "com1.bin"), "7e0102037e")
	writeFile(t, filepath.Join(dir, "nested", "com2.bin"), "line one\nline two\n")
	writeFile(t, filepath.Join(dir, ".hidden"), "skip")
	writeFile(t, filepath.Join(dir, ".cache", "ignored.bin"), "skip")

	src := NewFileSource(FileConfig{Paths: []string{dir}, ChunkSize: 3, Workers: 2})

	// Act
	got := streamAll(t, src)

	// Assert
	assert.Equal(t, map[string]string{
		filepath.Join(dir, "com1.bin"):           "7e0102037e",
		filepath.Join(dir, "nested", "com2.bin"): "line one\nline two\n",
	}, got)
}

func TestFileSource_IncludeHidden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.bin"), "a")
	writeFile(t, filepath.Join(dir, ".b.bin"), "b")

	src := NewFileSource(FileConfig{Paths: []string{dir}, IncludeHidden: true})
	files, err := src.Files(context.Background())
	require.NoError(t, err)

	sort.Strings(files)
	assert.Equal(t, []string{filepath.Join(dir, ".b.bin"), filepath.Join(dir, "a.bin")}, files)
}

func TestFileSource_Gitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "*.log\nignored.bin\n")
	writeFile(t, filepath.Join(dir, "keep.bin"), "k")
	writeFile(t, filepath.Join(dir, "debug.log"), "d")
	writeFile(t, filepath.Join(dir, "ignored.bin"), "s")

	src := NewFileSource(FileConfig{Paths: []string{dir}})
	files, err := src.Files(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "keep.bin")}, files)
}

func TestFileSource_MaxFileSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "small.bin"), "12")
	writeFile(t, filepath.Join(dir, "large.bin"), "123456")

	src := NewFileSource(FileConfig{Paths: []string{dir}, MaxFileSize: 4})
	files, err := src.Files(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "small.bin")}, files)
}

func TestFileSource_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".capture")
	writeFile(t, path, "explicit")

	got := streamAll(t, NewFileSource(FileConfig{Paths: []string{path}}))
	assert.Equal(t, map[string]string{path: "explicit"}, got)
}

func TestFileSource_MissingPath(t *testing.T) {
	src := NewFileSource(FileConfig{Paths: []string{filepath.Join(t.TempDir(), "missing")}})
	err := src.Stream(context.Background(), func(string, []byte) error { return nil })
	assert.Error(t, err)
}
