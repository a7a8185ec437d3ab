package types

import (
	"errors"
	"maps"
	"path/filepath"
	"time"
)

// OutputDirPrefix prefixes every per-run capture directory.
const OutputDirPrefix = "output-"

// outputStampLayout renders as YYYY-MM-DDTHH:MM:SSZ.
const outputStampLayout = "2006-01-02T15:04:05Z"

var errConfigAttached = errors.New("framework config already attached")

// OutputSubdirName returns the run-scoped capture directory name for t.
func OutputSubdirName(t time.Time) string {
	return OutputDirPrefix + t.UTC().Format(outputStampLayout)
}

// Variables maps substitution tokens (e.g. "$USERNAME") to their values.
type Variables map[string]string

// Framework is the root of the test tree. There is exactly one per run.
type Framework struct {
	Path         string // Absolute path of the run root
	RunID        string // Unique identifier of this run
	OutputSubdir string // Capture directory name shared by every test case of the run
	ConfigFile   string // Name of the loaded config file, empty if none
	Config       *FrameworkConfig
	Suites       *OrderedMap[*Suite]

	variables Variables
}

// NewFramework creates the root entity. outputSubdir is computed once per run
// by the caller and never changes afterwards.
func NewFramework(path, outputSubdir, runID string) *Framework {
	return &Framework{
		Path:         path,
		RunID:        runID,
		OutputSubdir: outputSubdir,
		Suites:       NewOrderedMap[*Suite](),
		variables:    Variables{},
	}
}

// AttachConfig records the top-level config and the variables resolved from
// it. It may only be called once.
func (f *Framework) AttachConfig(file string, cfg *FrameworkConfig, vars Variables) error {
	if f.Config != nil {
		return errConfigAttached
	}
	f.ConfigFile = file
	f.Config = cfg
	f.variables = maps.Clone(vars)
	if f.variables == nil {
		f.variables = Variables{}
	}
	return nil
}

// Variables returns a copy of the resolved substitution variables.
func (f *Framework) Variables() Variables {
	return maps.Clone(f.variables)
}

// HasConfig reports whether framework_conf.json was found.
func (f *Framework) HasConfig() bool {
	return f.Config != nil
}

// AddSuite registers a suite under its name.
func (f *Framework) AddSuite(s *Suite) error {
	return f.Suites.Add(s.Name, s)
}

// Suite looks up a suite by name.
func (f *Framework) Suite(name string) (*Suite, bool) {
	return f.Suites.Get(name)
}

// TestCaseCount returns the number of test cases across all suites.
func (f *Framework) TestCaseCount() int {
	n := 0
	for _, s := range f.Suites.All() {
		n += s.TestCases.Len()
	}
	return n
}

// Suite is a named group of test cases, one per immediate subdirectory of the root.
type Suite struct {
	Path       string
	Name       string
	ConfigFile string
	Config     *SuiteConfig
	TestCases  *OrderedMap[*TestCase]
}

// NewSuite creates a suite for the subdirectory name of parent.
func NewSuite(parent, name string) *Suite {
	return &Suite{
		Path:      filepath.Join(parent, name),
		Name:      name,
		TestCases: NewOrderedMap[*TestCase](),
	}
}

// AttachConfig records the suite config.
func (s *Suite) AttachConfig(file string, cfg *SuiteConfig) {
	s.ConfigFile = file
	s.Config = cfg
}

// AddTestCase registers a test case under its name.
func (s *Suite) AddTestCase(tc *TestCase) error {
	return s.TestCases.Add(tc.Name, tc)
}

// TestCase looks up a test case by name.
func (s *Suite) TestCase(name string) (*TestCase, bool) {
	return s.TestCases.Get(name)
}

// TestCase is the leaf unit of execution, one per subdirectory of a suite.
type TestCase struct {
	Path       string
	Name       string
	Suite      string
	OutputDir  string // Path of the capture directory for this run
	ConfigFile string
	Config     *TestCaseConfig
}

// NewTestCase creates a test case for the subdirectory name of suitePath.
func NewTestCase(suitePath, suite, name, outputSubdir string) *TestCase {
	path := filepath.Join(suitePath, name)
	return &TestCase{
		Path:      path,
		Name:      name,
		Suite:     suite,
		OutputDir: filepath.Join(path, outputSubdir),
	}
}

// AttachConfig records the test case config.
func (tc *TestCase) AttachConfig(file string, cfg *TestCaseConfig) {
	tc.ConfigFile = file
	tc.Config = cfg
}

// HasConfig reports whether test_conf.json was found.
func (tc *TestCase) HasConfig() bool {
	return tc.Config != nil
}

// ID returns the suite-qualified name of the test case.
func (tc *TestCase) ID() string {
	return tc.Suite + "/" + tc.Name
}
