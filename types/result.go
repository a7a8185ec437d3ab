package types

import (
	"fmt"
	"time"
)

// SpawnOutcome tags a SpawnResult.
type SpawnOutcome string

const (
	SpawnOutcomeExited SpawnOutcome = "exited" // The process ran and exited with ExitCode
	SpawnOutcomeError  SpawnOutcome = "error"  // The process could not be run to completion
)

// SpawnResult is the outcome of a single spawn-and-wait.
type SpawnResult struct {
	Outcome  SpawnOutcome
	ExitCode int
	Err      error // Set when Outcome is SpawnOutcomeError
}

// SpawnSuccess returns a result for a process that exited on its own.
func SpawnSuccess(exitCode int) SpawnResult {
	return SpawnResult{Outcome: SpawnOutcomeExited, ExitCode: exitCode}
}

// SpawnError returns a result for a process that failed to start or was
// stopped before exiting.
func SpawnError(err error) SpawnResult {
	return SpawnResult{Outcome: SpawnOutcomeError, ExitCode: -1, Err: err}
}

// Exited reports whether the process ran to completion.
func (r SpawnResult) Exited() bool {
	return r.Outcome == SpawnOutcomeExited
}

func (r SpawnResult) String() string {
	if r.Exited() {
		return fmt.Sprintf("return code = %d", r.ExitCode)
	}
	return fmt.Sprintf("spawn error: %v", r.Err)
}

// CaseStatus represents what happened to a test case during a run.
type CaseStatus string

const (
	CaseStatusRan     CaseStatus = "ran"     // At least the capture step completed
	CaseStatusSkipped CaseStatus = "skipped" // Nothing was run, by design
	CaseStatusError   CaseStatus = "error"   // A local precondition failed
)

// EntryResult captures the outcome of one declared test entry.
type EntryResult struct {
	Index        int
	Entry        TestEntry
	Skipped      bool   // Entry was missing program or args
	SkipReason   string // Why the entry was skipped
	Spawn        SpawnResult
	Duration     time.Duration
	StderrOffset int64 // Size of stderr.log before the entry was spawned
}

// CaseResult captures the outcome of one test case.
type CaseResult struct {
	Suite      string
	Name       string
	Path       string
	OutputDir  string
	Status     CaseStatus
	SkipReason string
	Err        error
	Entries    []*EntryResult
	Duration   time.Duration
}

// ID returns the suite-qualified name of the test case.
func (r *CaseResult) ID() string {
	return r.Suite + "/" + r.Name
}

// NonZero returns the number of entries that exited non-zero or failed to spawn.
func (r *CaseResult) NonZero() int {
	n := 0
	for _, e := range r.Entries {
		if e.Skipped {
			continue
		}
		if !e.Spawn.Exited() || e.Spawn.ExitCode != 0 {
			n++
		}
	}
	return n
}
