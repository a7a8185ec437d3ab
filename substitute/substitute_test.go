package substitute

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-dirtest/types"
)

func decodeFramework(t *testing.T, doc string) *types.FrameworkConfig {
	t.Helper()
	var cfg types.FrameworkConfig
	require.NoError(t, json.Unmarshal([]byte(doc), &cfg))
	return &cfg
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want types.Variables
	}{
		{
			name: "all fields",
			doc: `{"credentials":{"username":"alice","password":"s3cret"},
				"target_system":"staging.example.org","https":true}`,
			want: types.Variables{
				TokenUsername:     "alice",
				TokenPassword:     "s3cret",
				TokenTargetSystem: "staging.example.org",
				TokenHTTPS:        "true",
			},
		},
		{
			name: "username only",
			doc:  `{"credentials":{"username":"alice"}}`,
			want: types.Variables{TokenUsername: "alice"},
		},
		{
			name: "https as string",
			doc:  `{"https":"off","unrelated":{"nested":1}}`,
			want: types.Variables{TokenHTTPS: "off"},
		},
		{
			name: "empty document",
			doc:  `{}`,
			want: types.Variables{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(decodeFramework(t, tt.doc)))
		})
	}

	assert.Empty(t, Resolve(nil))
}

func TestApplyExactMatchOnly(t *testing.T) {
	vars := types.Variables{TokenUsername: "alice", TokenHTTPS: "false"}
	cfg := &types.TestCaseConfig{Tests: []types.TestEntry{
		{Program: "$USERNAME", Args: []string{"$USERNAME", "prefix$USERNAME", "$username", "--https", "$HTTPS", "$PASSWORD"}},
		{Program: "echo", Args: []string{"$USERNAME"}},
		{Program: "noargs"},
	}}

	n := Apply(cfg, vars)
	assert.Equal(t, 3, n)

	assert.Equal(t, "$USERNAME", cfg.Tests[0].Program, "program names are never substituted")
	assert.Equal(t, []string{"alice", "prefix$USERNAME", "$username", "--https", "false", "$PASSWORD"}, cfg.Tests[0].Args)
	assert.Equal(t, []string{"alice"}, cfg.Tests[1].Args)
	assert.Nil(t, cfg.Tests[2].Args)
}

func TestApplyIdempotent(t *testing.T) {
	vars := types.Variables{TokenUsername: "alice", TokenTargetSystem: "host-1"}
	cfg := &types.TestCaseConfig{Tests: []types.TestEntry{
		{Program: "login", Args: []string{"-u", "$USERNAME", "-h", "$TARGET_SYSTEM"}},
	}}

	require.Equal(t, 2, Apply(cfg, vars))
	once := append([]string(nil), cfg.Tests[0].Args...)

	assert.Equal(t, 0, Apply(cfg, vars))
	assert.Equal(t, once, cfg.Tests[0].Args)
}

func TestApplyNoVariables(t *testing.T) {
	cfg := &types.TestCaseConfig{Tests: []types.TestEntry{{Program: "echo", Args: []string{"$USERNAME"}}}}
	assert.Equal(t, 0, Apply(cfg, nil))
	assert.Equal(t, 0, Apply(cfg, types.Variables{}))
	assert.Equal(t, []string{"$USERNAME"}, cfg.Tests[0].Args)
	assert.Equal(t, 0, Apply(nil, types.Variables{TokenUsername: "x"}))
}

func TestScenarioLoginBasic(t *testing.T) {
	fw := decodeFramework(t, `{"credentials":{"username":"alice"}}`)
	var tc types.TestCaseConfig
	require.NoError(t, json.Unmarshal([]byte(`{"tests":[{"program":"echo","args":["$USERNAME"]}]}`), &tc))

	Apply(&tc, Resolve(fw))
	assert.Equal(t, []string{"alice"}, tc.Tests[0].Args)
}
