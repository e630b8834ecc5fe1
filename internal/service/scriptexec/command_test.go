package scriptexec

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireWorkspaceClean asserts no scan workspace survived under dir.
func requireWorkspaceClean(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasPrefix(e.Name(), "patternpull-scan-"),
			"workspace %s not removed", e.Name())
	}
}

func TestCommandExecutorParsesSignal(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	// The payload path is the script's $0; reading it proves the workspace
	// was populated before the command ran.
	script := `test -s "$0" && echo '{"signal":{"pattern":"ext_gap","entry":104,"stop":100,"target":112,"confidence":87}}'`
	e := NewCommandExecutor("/bin/sh", []string{"-c", script}, nil)

	sig, err := e.Execute(context.Background(), scanRequest(6))
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, "AAPL", sig.Ticker)
	assert.Equal(t, "ext_gap", sig.Pattern)
	assert.Equal(t, "2024-03-14", sig.Date)
	assert.Equal(t, 104.0, sig.Entry)
	assert.Equal(t, 87.0, sig.Confidence)

	requireWorkspaceClean(t, tmp)
}

func TestCommandExecutorNullSignal(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	e := NewCommandExecutor("/bin/sh", []string{"-c", `echo '{"signal":null}'`}, nil)

	sig, err := e.Execute(context.Background(), scanRequest(6))
	require.NoError(t, err)
	assert.Nil(t, sig)

	requireWorkspaceClean(t, tmp)
}

func TestCommandExecutorCleansUpOnFailure(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	e := NewCommandExecutor("/bin/sh", []string{"-c", `exit 3`}, nil)

	sig, err := e.Execute(context.Background(), scanRequest(6))
	require.Error(t, err)
	assert.Nil(t, sig)
	assert.Contains(t, err.Error(), "scan script")

	requireWorkspaceClean(t, tmp)
}

func TestCommandExecutorCleansUpOnTimeout(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	e := NewCommandExecutor("/bin/sh", []string{"-c", `sleep 5`}, nil)

	req := scanRequest(6)
	req.Timeout = 50 * time.Millisecond
	sig, err := e.Execute(context.Background(), req)
	require.Error(t, err)
	assert.Nil(t, sig)
	assert.Contains(t, err.Error(), "timed out")

	requireWorkspaceClean(t, tmp)
}
