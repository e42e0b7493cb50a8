package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestListShowsBuiltinFlows(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "marketplace-checkout")
	assert.Contains(t, out, "5 checkpoint(s)")
	assert.Contains(t, out, "wallet-selector")
}

func TestListIncludesFlowsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
flows:
  - name: about-page
    description: About page renders
    steps:
      - {kind: navigate, path: /about}
      - {kind: checkpoint, name: about}
`), 0o644))

	out, err := execute(t, "list", "--flows-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "about-page")
	assert.Contains(t, out, "About page renders")
}

func TestRunUnknownFlowFailsBeforeLaunch(t *testing.T) {
	_, err := execute(t, "run", "no-such-flow")
	assert.EqualError(t, err, `unknown flow "no-such-flow"`)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	_, err := execute(t, "run", "--driver", "selenium", "checkout-page")
	assert.ErrorContains(t, err, `unknown driver "selenium"`)

	_, err = execute(t, "run", "--base-url", "localhost:3000", "checkout-page")
	assert.ErrorContains(t, err, "absolute http(s) url")
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("STORECHECK_OUTPUT_DIR", "from-env")
	t.Setenv("STORECHECK_DRIVER", "rod")

	_, err := execute(t, "list", "--out", "from-flag")
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.OutputDir)
	assert.Equal(t, "rod", cfg.Driver)
}
