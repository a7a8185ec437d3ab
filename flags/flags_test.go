package flags

import (
	"testing"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestOptionalFlagsDontSetRequired asserts that all flags deemed optional set
// the Required field to false.
func TestOptionalFlagsDontSetRequired(t *testing.T) {
	for _, flag := range optionalFlags {
		reqFlag, ok := flag.(cli.RequiredFlag)
		require.True(t, ok)
		require.False(t, reqFlag.IsRequired())
	}
}

// TestUniqueFlags asserts that all flag names are unique, to avoid accidental conflicts between the many flags.
func TestUniqueFlags(t *testing.T) {
	seenCLI := make(map[string]struct{})
	for _, flag := range Flags {
		name := flag.Names()[0]
		if _, ok := seenCLI[name]; ok {
			t.Errorf("duplicate flag %s", name)
			continue
		}
		seenCLI[name] = struct{}{}
	}
}

func TestEnvVarFormat(t *testing.T) {
	for _, flag := range Flags {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			envFlags := envFlagGetter.GetEnvVars()
			require.Equal(t, 1, len(envFlags), "flags should have exactly one env var")
			require.Equal(t, opservice.FlagNameToEnvVarName(flagName, EnvVarPrefix), envFlags[0])
		})
	}
}

func TestCheckRequired(t *testing.T) {
	testCases := []struct {
		name        string
		args        []string
		shouldError bool
	}{
		{"no flags", []string{"app"}, false},
		{"root and timeout", []string{"app", "--root", "/tests", "--test-timeout", "30s"}, false},
		{"negative timeout", []string{"app", "--test-timeout", "-1s"}, true},
		{"negative stderr tail", []string{"app", "--stderr-tail", "-5"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := &cli.App{
				Flags:  Flags,
				Action: CheckRequired,
			}
			err := app.Run(tc.args)
			if tc.shouldError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	app := &cli.App{
		Flags: Flags,
		Action: func(ctx *cli.Context) error {
			assert.Equal(t, "", ctx.String(Root.Name))
			assert.Zero(t, ctx.Duration(TestTimeout.Name))
			assert.False(t, ctx.Bool(FailOnNonZero.Name))
			assert.Equal(t, int64(2048), ctx.Int64(StderrTail.Name))
			assert.False(t, ctx.Bool(HealthzEnabled.Name))
			assert.Equal(t, 8080, ctx.Int(HealthzPort.Name))
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"app"}))
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("OP_DIRTEST_ROOT", "/from/env")
	t.Setenv("OP_DIRTEST_FAIL_ON_NONZERO", "true")

	app := &cli.App{
		Flags: Flags,
		Action: func(ctx *cli.Context) error {
			assert.Equal(t, "/from/env", ctx.String(Root.Name))
			assert.True(t, ctx.Bool(FailOnNonZero.Name))
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"app"}))
}
