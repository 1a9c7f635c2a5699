package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/framer/pkg/serve"
)

// newServeCmd creates a fresh serve command for testing
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "serve",
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().StringVarP(&serveProfile, "profile", "p", "", "Profile ID")
	cmd.Flags().StringVar(&serveProfilesPath, "profiles", "", "Path to custom profiles")
	cmd.Flags().BoolVar(&serveResync, "resync", false, "Resynchronise after corrupt headers")
	return cmd
}

func TestServeCmd_Session(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"open","payload":{"key":"COM3"}}`,
		`{"type":"data","payload":{"key":"COM3","data":"I0wjMTIzDQojUCMNCg=="}}`,
		`{"type":"close","payload":{"key":"COM3"}}`,
		`{"type":"shutdown"}`,
	}, "\n") + "\n"

	var stdout bytes.Buffer
	cmd := newServeCmd()
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--profile", "crlf"})

	require.NoError(t, cmd.Execute())

	var responses []serve.Response
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		var resp serve.Response
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		responses = append(responses, resp)
	}
	require.Len(t, responses, 4)

	assert.Equal(t, "ready", responses[0].Type)
	var ready serve.ReadyData
	require.NoError(t, json.Unmarshal(responses[0].Data, &ready))
	assert.Equal(t, "framer.crlf", ready.Profile)
	assert.Equal(t, "terminator", ready.Strategy)

	assert.True(t, responses[1].Success)

	var packets serve.PacketsData
	require.NoError(t, json.Unmarshal(responses[2].Data, &packets))
	require.Len(t, packets.Packets, 2)
	assert.Equal(t, []byte("#L#123"), packets.Packets[0].Data)
	assert.Equal(t, []byte("#P#"), packets.Packets[1].Data)

	var closed serve.ChannelData
	require.NoError(t, json.Unmarshal(responses[3].Data, &closed))
	assert.Equal(t, uint64(2), closed.Packets)
}

func TestServeCmd_RequiresProfile(t *testing.T) {
	cmd := newServeCmd()
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile is required")
}
