package types

import (
	"errors"
	"fmt"
)

// ErrInvalidDepth is returned when a directory is visited outside of the
// three supported tree levels.
var ErrInvalidDepth = errors.New("invalid tree depth")

// Level identifies one of the three levels of the test tree.
type Level int

const (
	LevelRoot  Level = iota // The run root, owner of framework_conf.json
	LevelSuite              // A suite directory, owner of suite_conf.json
	LevelCase               // A test case directory, owner of test_conf.json
)

// MaxDepth is the deepest directory level that is ever visited.
const MaxDepth = int(LevelCase)

// Per-level config file names
const (
	FrameworkConfigFile = "framework_conf.json"
	SuiteConfigFile     = "suite_conf.json"
	TestCaseConfigFile  = "test_conf.json"
)

var levelNames = [...]string{
	LevelRoot:  "root",
	LevelSuite: "suite",
	LevelCase:  "case",
}

var levelConfigFiles = [...]string{
	LevelRoot:  FrameworkConfigFile,
	LevelSuite: SuiteConfigFile,
	LevelCase:  TestCaseConfigFile,
}

// LevelForDepth maps a walker depth onto a tree level.
func LevelForDepth(depth int) (Level, error) {
	if depth < int(LevelRoot) || depth > MaxDepth {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}
	return Level(depth), nil
}

// Depth returns the directory depth of the level relative to the run root.
func (l Level) Depth() int {
	return int(l)
}

// ConfigFile returns the config file name a directory at this level may declare.
func (l Level) ConfigFile() string {
	if !l.valid() {
		return ""
	}
	return levelConfigFiles[l]
}

func (l Level) String() string {
	if !l.valid() {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

func (l Level) valid() bool {
	return l >= LevelRoot && l <= LevelCase
}
