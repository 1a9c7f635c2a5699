package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetProfilesFlags() {
	profilesPath = ""
	profilesInclude = ""
	profilesExclude = ""
	profilesSet = ""
	outputFormat = "table"
}

func TestRunProfilesList(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	resetProfilesFlags()

	err := runProfilesList(cmd, []string{})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "Kind")
	assert.Contains(t, output, "framer.crlf")
	assert.Contains(t, output, "framer.jt808")
	assert.Contains(t, output, "markers")
}

func TestRunProfilesListJSON(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	resetProfilesFlags()
	outputFormat = "json"

	err := runProfilesList(cmd, []string{})
	require.NoError(t, err)

	var profiles []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &profiles))
	assert.NotEmpty(t, profiles)

	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p["ID"].(string))
	}
	assert.Contains(t, ids, "framer.gt06")
}

func TestRunProfilesList_Set(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	resetProfilesFlags()
	profilesSet = "telematics"

	err := runProfilesList(cmd, []string{})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "framer.jt808")
	assert.Contains(t, output, "framer.gt06")
	assert.NotContains(t, output, "framer.fixed16")
}

func TestRunProfilesList_UnknownSet(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	resetProfilesFlags()
	profilesSet = "nope"

	err := runProfilesList(cmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown profile set")
}

func TestRunProfilesList_Exclude(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	resetProfilesFlags()
	profilesExclude = `framer\.(jt808|gt06)`

	require.NoError(t, runProfilesList(cmd, []string{}))
	assert.NotContains(t, buf.String(), "framer.jt808")
	assert.Contains(t, buf.String(), "framer.lines")
}

func TestRunProfilesCheck_Builtin(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	resetProfilesFlags()

	err := runProfilesCheck(cmd, []string{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "ok   framer.crlf")
	assert.NotContains(t, buf.String(), "FAIL")
}

func TestRunProfilesCheck_BadExample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte(`profiles:
- name: Pipe records
  id: custom.pipe
  kind: terminator
  terminator: "|"
  examples:
  - "no delimiter here"
`), 0644))

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	resetProfilesFlags()
	profilesPath = path

	err := runProfilesCheck(cmd, []string{})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "FAIL custom.pipe")
}

func TestResolveProfile(t *testing.T) {
	p, err := resolveProfile("jt808", "")
	require.NoError(t, err)
	assert.Equal(t, "framer.jt808", p.ID)

	_, err = resolveProfile("missing", "")
	assert.Error(t, err)

	_, err = resolveProfile("", "")
	assert.Error(t, err)
}

func TestDetectProfile(t *testing.T) {
	p, err := detectProfile([]byte("#L#866795030000000;NA\r\n"), "")
	require.NoError(t, err)
	assert.Equal(t, "framer.crlf", p.ID)

	_, err = detectProfile([]byte("nothing recognisable"), "")
	assert.Error(t, err)
}
