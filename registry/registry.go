// Package registry discovers the test tree on disk and attaches the config
// documents declared at each level.
package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-dirtest/loader"
	"github.com/ethereum-optimism/infra/op-dirtest/substitute"
	"github.com/ethereum-optimism/infra/op-dirtest/types"
	"github.com/ethereum-optimism/infra/op-dirtest/walker"
)

// ErrUnknownNode means a directory was visited whose parent never registered
// it. It indicates a bug in tree construction, not a user error.
var ErrUnknownNode = errors.New("node not registered in test tree")

// Config contains registry configuration
type Config struct {
	Log          log.Logger
	Root         string // Run root directory
	OutputSubdir string // Run-scoped capture directory name
	RunID        string
}

// Registry builds the framework -> suite -> test case tree.
type Registry struct {
	config    Config
	framework *types.Framework
	visitors  [types.MaxDepth + 1]func(*walker.Entry) error
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if cfg.OutputSubdir == "" {
		return nil, fmt.Errorf("output subdirectory is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	r := &Registry{config: cfg}
	r.visitors = [types.MaxDepth + 1]func(*walker.Entry) error{
		types.LevelRoot:  r.visitRoot,
		types.LevelSuite: r.visitSuite,
		types.LevelCase:  r.visitCase,
	}
	return r, nil
}

// Build walks the run root once and returns the populated tree. Any config
// read or parse error aborts the whole build.
func (r *Registry) Build(ctx context.Context) (*types.Framework, error) {
	r.framework = nil
	for entry, err := range walker.Walk(r.config.Root, types.MaxDepth) {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		level, err := types.LevelForDepth(entry.Depth)
		if err != nil {
			return nil, fmt.Errorf("visiting %s: %w", entry.Path, err)
		}
		if err := r.visitors[level](entry); err != nil {
			return nil, err
		}
	}
	if r.framework == nil {
		return nil, fmt.Errorf("%w: root %s was never visited", ErrUnknownNode, r.config.Root)
	}

	r.config.Log.Debug("Registry loaded",
		"root", r.framework.Path,
		"suites", r.framework.Suites.Len(),
		"test_cases", r.framework.TestCaseCount())
	return r.framework, nil
}

func (r *Registry) visitRoot(e *walker.Entry) error {
	fw := types.NewFramework(e.Path, r.config.OutputSubdir, r.config.RunID)

	if file := loader.ConfigFileFor(types.LevelRoot, e.Files); file != "" {
		var cfg types.FrameworkConfig
		if err := r.load(e.Path, file, &cfg); err != nil {
			return err
		}
		vars := substitute.Resolve(&cfg)
		if err := fw.AttachConfig(file, &cfg, vars); err != nil {
			return err
		}
		r.config.Log.Debug("Loaded framework config", "file", file, "variables", len(vars))
	} else {
		r.config.Log.Warn("Top-level config file not found, no variables will be substituted",
			"file", types.FrameworkConfigFile, "path", e.Path)
	}

	for _, dir := range e.Dirs {
		if err := fw.AddSuite(types.NewSuite(e.Path, dir)); err != nil {
			return fmt.Errorf("registering suite %s: %w", dir, err)
		}
	}
	r.framework = fw
	return nil
}

func (r *Registry) visitSuite(e *walker.Entry) error {
	suite, err := r.lookupSuite(filepath.Base(e.Path))
	if err != nil {
		return err
	}

	if file := loader.ConfigFileFor(types.LevelSuite, e.Files); file != "" {
		var cfg types.SuiteConfig
		if err := r.load(e.Path, file, &cfg); err != nil {
			return err
		}
		suite.AttachConfig(file, &cfg)
	}

	for _, dir := range e.Dirs {
		tc := types.NewTestCase(suite.Path, suite.Name, dir, r.framework.OutputSubdir)
		if err := suite.AddTestCase(tc); err != nil {
			return fmt.Errorf("registering test case %s/%s: %w", suite.Name, dir, err)
		}
	}
	return nil
}

func (r *Registry) visitCase(e *walker.Entry) error {
	suite, err := r.lookupSuite(filepath.Base(filepath.Dir(e.Path)))
	if err != nil {
		return err
	}
	name := filepath.Base(e.Path)
	tc, ok := suite.TestCase(name)
	if !ok {
		return fmt.Errorf("%w: test case %s/%s", ErrUnknownNode, suite.Name, name)
	}

	if file := loader.ConfigFileFor(types.LevelCase, e.Files); file != "" {
		var cfg types.TestCaseConfig
		if err := r.load(e.Path, file, &cfg); err != nil {
			return err
		}
		tc.AttachConfig(file, &cfg)
	}
	return nil
}

// load reads one config file. Values of an unexpected type are dropped with a
// warning; only unreadable files and invalid JSON abort the build.
func (r *Registry) load(dir, file string, v any) error {
	err := loader.Load(dir, file, v)
	if errors.Is(err, loader.ErrShape) {
		r.config.Log.Warn("Ignoring config values of unexpected type", "file", file, "path", dir, "error", err)
		return nil
	}
	return err
}

func (r *Registry) lookupSuite(name string) (*types.Suite, error) {
	if r.framework == nil {
		return nil, fmt.Errorf("%w: suite %s visited before root", ErrUnknownNode, name)
	}
	suite, ok := r.framework.Suite(name)
	if !ok {
		return nil, fmt.Errorf("%w: suite %s", ErrUnknownNode, name)
	}
	return suite, nil
}
