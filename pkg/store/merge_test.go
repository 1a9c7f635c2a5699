//go:build !wasm

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_EmptySources(t *testing.T) {
	_, err := Merge(MergeConfig{
		SourcePaths: []string{},
		DestPath:    filepath.Join(t.TempDir(), "dest.db"),
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no source databases")
}

func TestMerge_NoDestination(t *testing.T) {
	_, err := Merge(MergeConfig{
		SourcePaths: []string{"source.db"},
		DestPath:    "",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "destination path is required")
}

func TestMerge_DeduplicatesAcrossSources(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	first := filepath.Join(dir, "gw1.db")
	second := filepath.Join(dir, "gw2.db")
	dest := filepath.Join(dir, "merged.db")

	shared := testPacket("COM3", 1, "alpha")

	s1, err := NewSQLite(first)
	require.NoError(t, err)
	require.NoError(t, s1.AddProfile(testProfile()))
	require.NoError(t, s1.AddPacket(shared))
	require.NoError(t, s1.AddPacket(testPacket("COM3", 2, "beta")))
	require.NoError(t, s1.Close())

	s2, err := NewSQLite(second)
	require.NoError(t, err)
	require.NoError(t, s2.AddProfile(testProfile()))
	require.NoError(t, s2.AddPacket(shared))
	require.NoError(t, s2.AddPacket(testPacket("10.0.0.1:5000", 1, "gamma")))
	require.NoError(t, s2.Close())

	// Act
	stats, err := Merge(MergeConfig{SourcePaths: []string{first, second}, DestPath: dest})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, stats.SourcesProcessed)
	assert.Equal(t, 1, stats.ProfilesMerged)
	assert.Equal(t, 3, stats.PacketsMerged)

	merged, err := NewSQLite(dest)
	require.NoError(t, err)
	defer merged.Close()

	all, err := merged.GetAllPackets()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []byte("gamma"), all[0].Data)
	assert.Equal(t, []byte("alpha"), all[1].Data)
	assert.Equal(t, []byte("beta"), all[2].Data)
}
