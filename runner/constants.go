package runner

import (
	"errors"
	"time"
)

const (
	// DefaultEntryTimeout of zero means entries may run for as long as they like.
	DefaultEntryTimeout time.Duration = 0

	// Skip reasons reported for test cases and entries
	SkipReasonNoConfig  = "config file (test_conf.json) not found"
	SkipReasonNoTests   = "test config data empty or 'tests' parameter missing"
	SkipReasonNoProgram = "parameter 'program' or 'args' missing from 'tests' element"
)

var (
	// ErrEntryTimeout is reported when an entry exceeds its deadline.
	ErrEntryTimeout = errors.New("test entry timed out")
	// ErrCaseDirectory is reported when the test case directory is unusable.
	ErrCaseDirectory = errors.New("unable to use test case directory")
)
