// Package substitute resolves the run variables declared in framework_conf.json
// and rewrites matching placeholder arguments of test entries.
package substitute

import (
	"github.com/ethereum-optimism/infra/op-dirtest/types"
)

// Recognised placeholder tokens. Matching is exact and case-sensitive.
const (
	TokenUsername     = "$USERNAME"
	TokenPassword     = "$PASSWORD"
	TokenTargetSystem = "$TARGET_SYSTEM"
	TokenHTTPS        = "$HTTPS"
)

// Tokens lists every recognised placeholder.
var Tokens = []string{TokenUsername, TokenPassword, TokenTargetSystem, TokenHTTPS}

// Resolve extracts the substitution variables from the top-level config.
// Fields that are absent produce no token; a nil config yields an empty set.
func Resolve(cfg *types.FrameworkConfig) types.Variables {
	vars := types.Variables{}
	if cfg == nil {
		return vars
	}
	if creds := cfg.Credentials; creds != nil {
		if creds.Username != nil {
			vars[TokenUsername] = *creds.Username
		}
		if creds.Password != nil {
			vars[TokenPassword] = *creds.Password
		}
	}
	if cfg.TargetSystem != nil {
		vars[TokenTargetSystem] = *cfg.TargetSystem
	}
	if cfg.HTTPS != nil {
		vars[TokenHTTPS] = string(*cfg.HTTPS)
	}
	return vars
}

// Apply replaces, in place, every argument of every test entry whose whole
// value is a known token. Program names are never touched. It returns the
// number of arguments rewritten.
func Apply(cfg *types.TestCaseConfig, vars types.Variables) int {
	if cfg == nil || len(vars) == 0 {
		return 0
	}
	n := 0
	for i := range cfg.Tests {
		args := cfg.Tests[i].Args
		for j, arg := range args {
			if v, ok := vars[arg]; ok {
				args[j] = v
				n++
			}
		}
	}
	return n
}
