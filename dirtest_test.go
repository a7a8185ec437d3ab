package dirtest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-dirtest/exitcodes"
	"github.com/ethereum-optimism/infra/op-dirtest/loader"
	"github.com/ethereum-optimism/infra/op-dirtest/logging"
	"github.com/ethereum-optimism/infra/op-dirtest/types"
	"github.com/ethereum-optimism/infra/op-dirtest/walker"
)

// writeTree creates root/<path> for every key; a key ending in "/" creates a
// directory.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			require.NoError(t, os.MkdirAll(p, 0755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func newTestConfig(root string, out *bytes.Buffer) *Config {
	return &Config{
		Root: root,
		Out:  out,
		Log:  log.NewLogger(log.DiscardHandler()),
	}
}

// findOutputDir returns the single output-* directory of a test case.
func findOutputDir(t *testing.T, caseDir string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(caseDir, types.OutputDirPrefix+"*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	return matches[0]
}

func startAndWait(t *testing.T, cfg *Config) (*dirtest, error) {
	t.Helper()
	shutdown := make(chan error, 1)
	d, err := New(context.Background(), cfg, "test", func(err error) { shutdown <- err })
	require.NoError(t, err)

	err = d.Start(context.Background())
	if err == nil {
		select {
		case cbErr := <-shutdown:
			assert.NoError(t, cbErr)
		case <-time.After(5 * time.Second):
			t.Fatal("shutdown callback was not called")
		}
	}
	assert.True(t, d.Stopped() || err == nil)
	return d, err
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil, "test", nil)
	require.Error(t, err)
}

func TestLoginBasicScenario(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"framework_conf.json":           `{"credentials": {"username": "alice", "password": "s3cret"}, "https": true}`,
		"login/suite_conf.json":         `{"description": "login flows"}`,
		"login/basic/test_conf.json":    `{"tests": [{"program": "echo", "args": ["$USERNAME"]}, {"program": "echo", "args": ["$HTTPS"]}, {"program": "sh", "args": ["-c", "echo $0 >&2; exit 1", "$PASSWORD"]}]}`,
		"login/no_conf/":                "",
		"login/no_tests/test_conf.json": `{"other": 1}`,
	})
	var out bytes.Buffer

	d, err := startAndWait(t, newTestConfig(root, &out))
	require.NoError(t, err)

	outputDir := findOutputDir(t, filepath.Join(root, "login", "basic"))
	stdout, err := os.ReadFile(filepath.Join(outputDir, logging.StdoutFilename))
	require.NoError(t, err)
	assert.Equal(t, "alice\ntrue\n", string(stdout))
	stderr, err := os.ReadFile(filepath.Join(outputDir, logging.StderrFilename))
	require.NoError(t, err)
	assert.Equal(t, "s3cret\n", string(stderr))

	matches, err := filepath.Glob(filepath.Join(root, "login", "no_tests", types.OutputDirPrefix+"*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
	matches, err = filepath.Glob(filepath.Join(root, "login", "no_conf", types.OutputDirPrefix+"*"))
	require.NoError(t, err)
	assert.Empty(t, matches)

	result := d.Result()
	require.NotNil(t, result)
	assert.Equal(t, 3, result.Stats.Cases)
	assert.Equal(t, 1, result.Stats.Ran)
	assert.Equal(t, 2, result.Stats.Skipped)
	assert.Equal(t, 1, result.Stats.NonZero)

	console := out.String()
	assert.Contains(t, console, "return code = 0")
	assert.Contains(t, console, "[2] sh: return code = 1")
	assert.Contains(t, console, "stderr:")
	assert.Contains(t, console, "config file (test_conf.json) not found")
	assert.NotContains(t, console, "Top-level config file")
}

func TestMissingFrameworkConfig(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"login/basic/test_conf.json": `{"tests": [{"program": "echo", "args": ["$USERNAME"]}]}`,
	})
	var out bytes.Buffer

	_, err := startAndWait(t, newTestConfig(root, &out))
	require.NoError(t, err)

	stdout, err := os.ReadFile(filepath.Join(findOutputDir(t, filepath.Join(root, "login", "basic")), logging.StdoutFilename))
	require.NoError(t, err)
	assert.Equal(t, "$USERNAME\n", string(stdout))
	assert.Contains(t, out.String(), "Top-level config file (framework_conf.json) not found")
}

func TestFailOnNonZero(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"login/basic/test_conf.json": `{"tests": [{"program": "sh", "args": ["-c", "exit 3"]}]}`,
	})
	var out bytes.Buffer
	cfg := newTestConfig(root, &out)
	cfg.FailOnNonZero = true

	d, err := startAndWait(t, cfg)
	require.Error(t, err)
	assert.True(t, IsTestFailureError(err))
	assert.False(t, IsRuntimeError(err))
	assert.True(t, d.Stopped())
}

func TestNonZeroWithoutFlagSucceeds(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"login/basic/test_conf.json": `{"tests": [{"program": "sh", "args": ["-c", "exit 3"]}]}`,
	})
	var out bytes.Buffer

	_, err := startAndWait(t, newTestConfig(root, &out))
	require.NoError(t, err)
}

func TestFatalErrors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		root    func(dir string) string
		wantErr error
	}{
		{
			name:    "unparseable framework config",
			files:   map[string]string{"framework_conf.json": `{"credentials":`},
			wantErr: loader.ErrParse,
		},
		{
			name:    "unparseable test config",
			files:   map[string]string{"login/basic/test_conf.json": `[1,`},
			wantErr: loader.ErrParse,
		},
		{
			name:    "root is a file",
			files:   map[string]string{"file.txt": "x"},
			root:    func(dir string) string { return filepath.Join(dir, "file.txt") },
			wantErr: walker.ErrNotDirectory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeTree(t, dir, tt.files)
			root := dir
			if tt.root != nil {
				root = tt.root(dir)
			}
			var out bytes.Buffer

			_, err := startAndWait(t, newTestConfig(root, &out))
			require.Error(t, err)
			assert.True(t, IsRuntimeError(err))
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	base := errors.New("boom")
	runtimeErr := NewRuntimeError(base)
	assert.True(t, IsRuntimeError(runtimeErr))
	assert.ErrorIs(t, runtimeErr, base)
	assert.Equal(t, "runtime error: boom", runtimeErr.Error())
	assert.False(t, IsRuntimeError(base))
	assert.False(t, IsRuntimeError(nil))

	failure := NewTestFailureError("1 non-zero exits")
	assert.True(t, IsTestFailureError(failure))
	assert.True(t, IsTestFailureError(errors.Join(failure, nil)))
	assert.Equal(t, "test failure: 1 non-zero exits", failure.Error())
	assert.False(t, IsTestFailureError(runtimeErr))

	assert.Equal(t, exitcodes.RuntimeErr, runtimeErr.ExitCode())
	assert.Equal(t, exitcodes.TestFailure, failure.ExitCode())
}
