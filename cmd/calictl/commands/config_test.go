package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const specJSON = `{
	"name": "aggregation",
	"description": "Folds snapshots into min/max/avg/count",
	"config": [
		{"name": "flush_interval", "type": "duration", "description": "how often to flush", "value": "10s"},
		{"name": "max_leaves", "type": "int", "description": "leaf cap", "value": "2000000"}
	]
}`

func TestRunConfigResolvesDefaultsWithNoOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	specPath := filepath.Join(dir, "spec.json")
	require.NoError(t, os.WriteFile(specPath, []byte(specJSON), 0o600))

	outPath := filepath.Join(dir, "out.txt")
	out, err := os.Create(outPath) //nolint:gosec // test fixture path
	require.NoError(t, err)

	err = runConfig("aggregation", specPath, "", out)
	require.NoError(t, err)
	require.NoError(t, out.Close())

	body, err := os.ReadFile(outPath) //nolint:gosec // test fixture path
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "aggregation")
	assert.Contains(t, text, "flush_interval")
	assert.Contains(t, text, "10s")
	assert.Contains(t, text, "max_leaves")
	assert.Contains(t, text, "2000000")
}

func TestRunConfigEnvOverridesSpecDefault(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "spec.json")
	require.NoError(t, os.WriteFile(specPath, []byte(specJSON), 0o600))

	t.Setenv("CALIPER_AGGREGATION_FLUSH_INTERVAL", "30s")

	outPath := filepath.Join(dir, "out.txt")
	out, err := os.Create(outPath) //nolint:gosec // test fixture path
	require.NoError(t, err)

	err = runConfig("aggregation", specPath, "", out)
	require.NoError(t, err)
	require.NoError(t, out.Close())

	body, err := os.ReadFile(outPath) //nolint:gosec // test fixture path
	require.NoError(t, err)

	assert.Contains(t, string(body), "30s")
}
