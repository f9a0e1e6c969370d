package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/ports"
)

const screening = `
identifier: screening
type: assessment
steps:
  - identifier: smoker
    type: question
    title: Do you smoke?
    answerType: boolean
    surveyRules:
      - matchingAnswer: false
        skipToIdentifier: done
  - identifier: packs
    type: question
    answerType: integer
  - identifier: done
    type: completion
`

const looping = `
identifier: looping
type: assessment
steps:
  - identifier: a
    type: instruction
  - identifier: b
    type: question
    answerType: boolean
    surveyRules:
      - ruleOperator: always
        skipToIdentifier: a
`

// resetFlags restores every flag to its default; rootCmd is shared by all tests.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command against a file cache in cacheDir.
func execute(t *testing.T, cacheDir string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{
		"--config", filepath.Join(t.TempDir(), "absent.yaml"),
		"--log-level", "error",
		"--cache-backend", config.BackendFile,
		"--cache-path", cacheDir,
	}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeDefinition(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "arbor version "))
}

func TestValidateCommand(t *testing.T) {
	good := writeDefinition(t, "screening", screening)
	bad := writeDefinition(t, "looping", looping)

	out, err := execute(t, t.TempDir(), "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+good)
	assert.Contains(t, out, "screening: 3 top-level steps")

	out, err = execute(t, t.TempDir(), "validate", good, bad)
	assert.ErrorContains(t, err, "1 of 2 definitions are invalid")
	assert.Contains(t, out, "✗ "+bad)
	assert.Contains(t, out, "does not move forward")
}

func TestGraphCommand(t *testing.T) {
	path := writeDefinition(t, "screening", screening)

	out, err := execute(t, t.TempDir(), "graph", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `smoker -. "eq false" .-> done`)
	assert.NotContains(t, out, "classDef")

	_, err = execute(t, t.TempDir(), "graph", path, "--run-id", "missing")
	assert.ErrorContains(t, err, "missing")
}

func TestCacheCommands(t *testing.T) {
	cacheDir := t.TempDir()
	backend, err := cli.OpenBackend(config.CacheConfig{Backend: config.BackendFile, Path: cacheDir}, logging.NewNop())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, backend.Sessions.Store(ctx, "r1", ports.SampleResult("r1"), time.Now().Add(time.Hour)))
	require.NoError(t, backend.Sessions.Store(ctx, "old", ports.SampleResult("old"), time.Now().Add(-time.Hour)))
	require.NoError(t, backend.Close())

	out, err := execute(t, cacheDir, "cache", "gc")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 expired results")

	out, err = execute(t, cacheDir, "cache", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "- r1")
	assert.NotContains(t, out, "- old")

	out, err = execute(t, cacheDir, "cache", "inspect", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "apple")

	_, err = execute(t, cacheDir, "cache", "rm")
	assert.Error(t, err, "rm needs ids or --all")

	out, err = execute(t, cacheDir, "cache", "rm", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed run 'r1'")

	out, err = execute(t, cacheDir, "cache", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No cached results found.")
}
