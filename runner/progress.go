package runner

import (
	"github.com/ethereum-optimism/infra/op-dirtest/types"
)

// ProgressSink receives events as the run progresses
type ProgressSink interface {
	CaseStarted(tc *types.TestCase, vars types.Variables)
	EntryCompleted(tc *types.TestCase, entry *types.EntryResult)
	CaseCompleted(tc *types.TestCase, result *types.CaseResult)
}

// NoopSink discards every event
type NoopSink struct{}

func (NoopSink) CaseStarted(*types.TestCase, types.Variables)       {}
func (NoopSink) EntryCompleted(*types.TestCase, *types.EntryResult) {}
func (NoopSink) CaseCompleted(*types.TestCase, *types.CaseResult)   {}
