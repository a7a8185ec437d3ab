package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-dirtest/metrics"
	"github.com/ethereum-optimism/infra/op-dirtest/substitute"
	"github.com/ethereum-optimism/infra/op-dirtest/types"
)

// SuiteResult captures aggregated results for a suite
type SuiteResult struct {
	Name     string
	Path     string
	Cases    []*types.CaseResult
	Stats    ResultStats
	Duration time.Duration
}

// RunnerResult captures the complete run results
type RunnerResult struct {
	RunID        string
	Root         string
	OutputSubdir string
	Suites       []*SuiteResult
	Stats        ResultStats
	Duration     time.Duration
	Interrupted  bool // The run was cancelled before every case was visited
}

// ResultStats tracks case and entry statistics at each level
type ResultStats struct {
	Cases          int // Test cases visited
	Ran            int // Cases whose entries were attempted
	Skipped        int // Cases skipped for missing config or tests
	Errored        int // Cases that failed a local precondition
	Entries        int // Entries spawned
	EntriesSkipped int // Entries missing program or args
	NonZero        int // Entries that exited with a non-zero code
	SpawnErrors    int // Entries that could not be run to completion
}

func (s *ResultStats) add(r *types.CaseResult) {
	s.Cases++
	switch r.Status {
	case types.CaseStatusRan:
		s.Ran++
	case types.CaseStatusSkipped:
		s.Skipped++
	case types.CaseStatusError:
		s.Errored++
	}
	for _, e := range r.Entries {
		switch {
		case e.Skipped:
			s.EntriesSkipped++
		case !e.Spawn.Exited():
			s.Entries++
			s.SpawnErrors++
		default:
			s.Entries++
			if e.Spawn.ExitCode != 0 {
				s.NonZero++
			}
		}
	}
}

func (s *ResultStats) merge(o ResultStats) {
	s.Cases += o.Cases
	s.Ran += o.Ran
	s.Skipped += o.Skipped
	s.Errored += o.Errored
	s.Entries += o.Entries
	s.EntriesSkipped += o.EntriesSkipped
	s.NonZero += o.NonZero
	s.SpawnErrors += o.SpawnErrors
}

// Failed reports whether any spawned entry exited non-zero or failed to run.
func (s ResultStats) Failed() bool {
	return s.NonZero > 0 || s.SpawnErrors > 0
}

// TestRunner defines the interface for running a discovered test tree
type TestRunner interface {
	RunAll(ctx context.Context, fw *types.Framework) (*RunnerResult, error)
}

// Config holds configuration for creating a new runner
type Config struct {
	Log      log.Logger
	Executor TestExecutor
	Metrics  metrics.Metricer
	Sink     ProgressSink
}

// runner struct implements TestRunner interface
type runner struct {
	log      log.Logger
	executor TestExecutor
	metrics  metrics.Metricer
	sink     ProgressSink
	tracer   trace.Tracer
}

var _ TestRunner = (*runner)(nil)

// NewTestRunner creates a new test runner instance
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NoopMetrics
	}
	if cfg.Sink == nil {
		cfg.Sink = NoopSink{}
	}

	return &runner{
		log:      cfg.Log,
		executor: cfg.Executor,
		metrics:  cfg.Metrics,
		sink:     cfg.Sink,
		tracer:   otel.Tracer("test runner"),
	}, nil
}

// RunAll visits every suite and test case in discovery order. Local failures
// are recorded in the result; only a missing tree is returned as an error.
func (r *runner) RunAll(ctx context.Context, fw *types.Framework) (*RunnerResult, error) {
	if fw == nil {
		return nil, fmt.Errorf("framework is required")
	}

	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "run",
		trace.WithAttributes(attribute.String("run_id", fw.RunID)))
	defer span.End()

	r.log.Info("Running all tests", "root", fw.Path, "suites", fw.Suites.Len(), "cases", fw.TestCaseCount())

	result := &RunnerResult{
		RunID:        fw.RunID,
		Root:         fw.Path,
		OutputSubdir: fw.OutputSubdir,
	}
	vars := fw.Variables()

	for _, suite := range fw.Suites.All() {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}
		suiteResult := r.runSuite(ctx, suite, vars)
		result.Suites = append(result.Suites, suiteResult)
		result.Stats.merge(suiteResult.Stats)
	}
	if ctx.Err() != nil {
		result.Interrupted = true
		r.log.Warn("Run interrupted", "cause", context.Cause(ctx))
	}

	result.Duration = time.Since(start)
	r.metrics.RecordRun(fw.RunID, fw.Suites.Len(), fw.TestCaseCount(), result.Duration)
	span.SetAttributes(
		attribute.Int("cases", result.Stats.Cases),
		attribute.Int("non_zero", result.Stats.NonZero),
	)
	return result, nil
}

func (r *runner) runSuite(ctx context.Context, suite *types.Suite, vars types.Variables) *SuiteResult {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("suite %s", suite.Name))
	defer span.End()

	start := time.Now()
	result := &SuiteResult{
		Name: suite.Name,
		Path: suite.Path,
	}
	for _, tc := range suite.TestCases.All() {
		if ctx.Err() != nil {
			break
		}
		caseResult := r.runCase(ctx, tc, vars)
		result.Cases = append(result.Cases, caseResult)
		result.Stats.add(caseResult)
	}
	result.Duration = time.Since(start)
	return result
}

func (r *runner) runCase(ctx context.Context, tc *types.TestCase, vars types.Variables) *types.CaseResult {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("case %s", tc.ID()))
	defer span.End()

	var result *types.CaseResult
	if !tc.HasConfig() {
		r.log.Warn("Skipping test case", "case", tc.ID(), "reason", SkipReasonNoConfig)
		result = &types.CaseResult{
			Suite:      tc.Suite,
			Name:       tc.Name,
			Path:       tc.Path,
			OutputDir:  tc.OutputDir,
			Status:     types.CaseStatusSkipped,
			SkipReason: SkipReasonNoConfig,
		}
	} else {
		n := substitute.Apply(tc.Config, vars)
		r.log.Debug("Substituted variables", "case", tc.ID(), "replaced", n)
		r.sink.CaseStarted(tc, vars)
		result = r.executor.Run(ctx, tc)
	}

	span.SetAttributes(attribute.String("status", string(result.Status)))
	r.metrics.RecordCase(tc.Suite, result.Status)
	r.sink.CaseCompleted(tc, result)
	return result
}
