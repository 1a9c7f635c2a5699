package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/framer/pkg/source"
	"github.com/praetorian-inc/framer/pkg/store"
	"github.com/praetorian-inc/framer/pkg/types"
)

// newFrameCmd creates a fresh frame command for testing
func newFrameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "frame <path>... | -",
		Args: cobra.MinimumNArgs(1),
		RunE: runFrame,
	}
	cmd.Flags().StringVarP(&frameProfile, "profile", "p", autoProfile, "Profile ID")
	cmd.Flags().StringVar(&frameProfilesPath, "profiles", "", "Path to custom profiles")
	cmd.Flags().IntVar(&frameChunkSize, "chunk-size", source.DefaultChunkSize, "Read size")
	cmd.Flags().IntVar(&frameWorkers, "workers", 0, "Files streamed concurrently")
	cmd.Flags().Int64Var(&frameMaxFileSize, "max-file-size", 0, "Skip larger files")
	cmd.Flags().BoolVar(&frameIncludeHidden, "include-hidden", false, "Include hidden files")
	cmd.Flags().BoolVar(&frameResync, "resync", false, "Resynchronise after corrupt headers")
	frameOutput.register(cmd, true)
	return cmd
}

func decodePackets(t *testing.T, output string) []*types.Packet {
	t.Helper()
	var packets []*types.Packet
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		var p types.Packet
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &p), "line: %s", scanner.Text())
		packets = append(packets, &p)
	}
	require.NoError(t, scanner.Err())
	return packets
}

func TestFrameCmd_FileToNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\npartial"), 0644))

	var stdout, stderr bytes.Buffer
	cmd := newFrameCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--profile", "lines", path})

	require.NoError(t, cmd.Execute())

	packets := decodePackets(t, stdout.String())
	require.Len(t, packets, 3)
	assert.Equal(t, []byte("one"), packets[0].Data)
	assert.Equal(t, []byte("three"), packets[2].Data)
	for i, p := range packets {
		assert.Equal(t, path, p.Key)
		assert.Equal(t, "framer.lines", p.Profile)
		assert.Equal(t, uint64(i+1), p.Seq)
	}
	assert.Contains(t, stderr.String(), "Framed 3 packets (11 bytes) from 1 channels with framer.lines")
}

func TestFrameCmd_AutoDetect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wialon.log")
	require.NoError(t, os.WriteFile(path, []byte("#L#866795030000000;NA\r\n#P#\r\n"), 0644))

	var stdout, stderr bytes.Buffer
	cmd := newFrameCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())

	packets := decodePackets(t, stdout.String())
	require.Len(t, packets, 2)
	assert.Equal(t, "framer.crlf", packets[0].Profile)
	assert.Equal(t, []byte("#P#"), packets[1].Data)
}

func TestFrameCmd_Stdin(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cmd := newFrameCmd()
	cmd.SetIn(strings.NewReader("a\nb\n"))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--profile", "framer.lines", "--chunk-size", "1", "-"})

	require.NoError(t, cmd.Execute())

	packets := decodePackets(t, stdout.String())
	require.Len(t, packets, 2)
	assert.Equal(t, "stdin", packets[0].Key)
	assert.Equal(t, []byte("b"), packets[1].Data)
}

func TestFrameCmd_OutputDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.txt")
	dbPath := filepath.Join(dir, "packets.db")
	require.NoError(t, os.WriteFile(path, []byte("x\ny\nx\n"), 0644))

	var stdout, stderr bytes.Buffer
	cmd := newFrameCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--profile", "lines", "--ndjson=false", "--output", dbPath, path})

	require.NoError(t, cmd.Execute())
	assert.Empty(t, stdout.String())

	s, err := store.New(store.Config{Path: dbPath})
	require.NoError(t, err)
	defer s.Close()

	stats, err := s.ChannelStats()
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, path, stats[0].Key)
	assert.Equal(t, 3, stats[0].Packets)
	assert.Equal(t, 2, stats[0].Distinct)
}

func TestFrameCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing target", []string{"--profile", "lines", "/does/not/exist"}, "target does not exist"},
		{"stdin mixed with paths", []string{"--profile", "lines", "-", "other"}, "cannot be combined"},
		{"unknown profile", []string{"--profile", "nope", "-"}, "unknown profile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newFrameCmd()
			cmd.SetIn(strings.NewReader(""))
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
