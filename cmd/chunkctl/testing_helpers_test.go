package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// runCmd executes the root command with args and returns what it printed.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	orig := stdout
	stdout = &out
	t.Cleanup(func() {
		stdout = orig
		verbose, quiet, jsonOut, logDir, logJSON = false, false, false, "", false
		replayArenaSize, replayVerify, replayCompare, replayFill = "64MiB", false, false, true
		genOps, genSeed, genMaxSize = 1000, 1, 1024
	})

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// writeTrace stores content as a trace file in a temp dir.
func writeTrace(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.trace")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// decodeJSON unmarshals output into v.
func decodeJSON(t *testing.T, output string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(output), v), "output: %s", output)
}
