package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSnapshotFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRecompute_EndToEnd(t *testing.T) {
	snapshot := writeSnapshotFile(t, sampleSnapshot)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	out, err := execute(t, "recompute", "--snapshot", snapshot, "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "r-dough: updated contains=[gluten] may_contain=[lupin]")
	// r-pie: dough's declaration one level deep, plus manual celery and the
	// promotion of lupin; saffron broth contributes the custom kind.
	assert.Contains(t, out, "r-pie: updated contains=[celery,gluten,lupin,saffron]")
	assert.Contains(t, out, "environment=[peanut]")
}

func TestRecompute_JSONOutput(t *testing.T) {
	snapshot := writeSnapshotFile(t, sampleSnapshot)

	out, err := execute(t, "recompute", "--snapshot", snapshot, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var results []RecomputeResult
	require.NoError(t, json.Unmarshal(data, &results))
	require.Len(t, results, 2)
	assert.Equal(t, "r-dough", results[0].RecipeID)
	assert.True(t, results[0].Changed)
	assert.NotEmpty(t, results[0].Fingerprint)
}

func TestRecompute_SecondRunUnchanged(t *testing.T) {
	snapshot := writeSnapshotFile(t, sampleSnapshot)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	_, err := execute(t, "recompute", "--snapshot", snapshot, "--db", dbPath)
	require.NoError(t, err)

	out, err := execute(t, "recompute", "--snapshot", snapshot, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "r-dough: unchanged")
	assert.Contains(t, out, "r-pie: unchanged")
}

func TestRecompute_MissingSnapshot(t *testing.T) {
	_, err := execute(t, "recompute", "--snapshot", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRecompute_ReportsUnresolved(t *testing.T) {
	snapshot := writeSnapshotFile(t, `
recipes:
  - id: r1
    lines:
      - id: l1
        type: raw
        master_id: m-missing
`)
	out, err := execute(t, "recompute", "--snapshot", snapshot)
	require.NoError(t, err)
	assert.Contains(t, out, "(1 unresolved)")
}
