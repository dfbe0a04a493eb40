package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShow_AfterRecompute(t *testing.T) {
	snapshot := writeSnapshotFile(t, sampleSnapshot)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	_, err := execute(t, "recompute", "--snapshot", snapshot, "--db", dbPath)
	require.NoError(t, err)

	out, err := execute(t, "show", "r-pie", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "recipe:      r-pie")
	assert.Contains(t, out, "contains:    celery, gluten, lupin, saffron")
	assert.Contains(t, out, "environment: peanut")
	assert.Contains(t, out, "note:        shared fryer")
	assert.Contains(t, out, "fingerprint: ")
}

func TestShow_JSONOutput(t *testing.T) {
	snapshot := writeSnapshotFile(t, sampleSnapshot)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	_, err := execute(t, "recompute", "--snapshot", snapshot, "--db", dbPath)
	require.NoError(t, err)

	out, err := execute(t, "show", "r-dough", "--db", dbPath, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result ShowResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "r-dough", result.RecipeID)
	assert.Equal(t, []string{"gluten"}, result.Legacy.Contains)
	assert.Len(t, result.Normalized, 2)
	assert.Empty(t, result.ConfirmedAt)
}

func TestShow_NoDeclaration(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	// Open once so the database exists.
	snapshot := writeSnapshotFile(t, "recipes:\n  - id: r1\n")
	_, err := execute(t, "recompute", "--snapshot", snapshot, "--db", dbPath)
	require.NoError(t, err)

	_, err = execute(t, "show", "r-unknown", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
