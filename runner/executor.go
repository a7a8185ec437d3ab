package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-dirtest/logging"
	"github.com/ethereum-optimism/infra/op-dirtest/metrics"
	"github.com/ethereum-optimism/infra/op-dirtest/types"
)

var _ TestExecutor = (*testExecutor)(nil)

// TestExecutor runs the declared entries of a single test case.
type TestExecutor interface {
	// Run executes every runnable entry of tc. Local failures (unusable
	// directory, output directory collision, capture files) are reported in
	// the returned result rather than as an error.
	Run(ctx context.Context, tc *types.TestCase) *types.CaseResult
}

// CommandBuilder creates the command for one entry.
type CommandBuilder func(ctx context.Context, name string, arg ...string) *exec.Cmd

// ExecutorConfig holds configuration for creating a new executor
type ExecutorConfig struct {
	Log        log.Logger
	Timeout    time.Duration // Per-entry deadline, zero for none
	Metrics    metrics.Metricer
	Sink       ProgressSink
	CmdBuilder CommandBuilder
}

// testExecutor implements TestExecutor
type testExecutor struct {
	log        log.Logger
	timeout    time.Duration
	metrics    metrics.Metricer
	sink       ProgressSink
	cmdBuilder CommandBuilder
	tracer     trace.Tracer
}

// NewTestExecutor creates a new test executor
func NewTestExecutor(cfg ExecutorConfig) (TestExecutor, error) {
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout cannot be negative: %v", cfg.Timeout)
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
	if cfg.CmdBuilder == nil {
		cfg.CmdBuilder = exec.CommandContext
	}

	return &testExecutor{
		log:        cfg.Log,
		timeout:    cfg.Timeout,
		metrics:    cfg.Metrics,
		sink:       cfg.Sink,
		cmdBuilder: cfg.CmdBuilder,
		tracer:     otel.Tracer("test executor"),
	}, nil
}

// Run implements the TestExecutor interface
func (e *testExecutor) Run(ctx context.Context, tc *types.TestCase) *types.CaseResult {
	start := time.Now()
	result := &types.CaseResult{
		Suite:     tc.Suite,
		Name:      tc.Name,
		Path:      tc.Path,
		OutputDir: tc.OutputDir,
	}
	defer func() {
		result.Duration = time.Since(start)
	}()

	// Every entry runs with the test case directory as its working directory.
	if err := checkCaseDir(tc.Path); err != nil {
		e.log.Error("Unable to change directory", "path", tc.Path, "error", err)
		e.metrics.RecordErrorDetails("case_dir", err)
		result.Status = types.CaseStatusError
		result.Err = err
		return result
	}

	if !tc.Config.HasTests() {
		e.log.Warn("Skipping test case", "case", tc.ID(), "reason", SkipReasonNoTests, "config", tc.ConfigFile)
		result.Status = types.CaseStatusSkipped
		result.SkipReason = SkipReasonNoTests
		return result
	}

	capture, err := logging.NewCapture(tc.OutputDir)
	if err != nil {
		e.log.Error("Unable to create output directory", "case", tc.ID(), "dir", tc.OutputDir, "error", err)
		e.metrics.RecordErrorDetails("capture", err)
		result.Status = types.CaseStatusError
		result.Err = err
		return result
	}
	defer func() {
		if err := capture.Close(); err != nil {
			e.log.Error("Failed to close output files", "dir", capture.Dir(), "error", err)
		}
	}()

	result.Status = types.CaseStatusRan
	for i, entry := range tc.Config.Tests {
		entryResult := &types.EntryResult{Index: i, Entry: entry}
		if !entry.Runnable() {
			e.log.Warn("Skipping test entry", "case", tc.ID(), "index", i, "reason", SkipReasonNoProgram)
			entryResult.Skipped = true
			entryResult.SkipReason = SkipReasonNoProgram
		} else {
			if offset, err := capture.StderrSize(); err != nil {
				e.log.Warn("Unable to read stderr log size", "case", tc.ID(), "error", err)
			} else {
				entryResult.StderrOffset = offset
			}
			entryStart := time.Now()
			entryResult.Spawn = e.spawn(ctx, tc, i, entry, capture)
			entryResult.Duration = time.Since(entryStart)
			e.metrics.RecordEntry(tc.Suite, entryResult.Spawn, entryResult.Duration)
		}
		result.Entries = append(result.Entries, entryResult)
		e.sink.EntryCompleted(tc, entryResult)
	}
	return result
}

// spawn runs one entry to completion and classifies the outcome.
func (e *testExecutor) spawn(ctx context.Context, tc *types.TestCase, index int, entry types.TestEntry, capture *logging.Capture) types.SpawnResult {
	ctx, span := e.tracer.Start(ctx, fmt.Sprintf("entry %s[%d]", tc.ID(), index),
		trace.WithAttributes(attribute.String("program", entry.Program)))
	defer span.End()

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := e.cmdBuilder(runCtx, entry.Program, entry.Args...)
	cmd.Dir = tc.Path
	cmd.Stdout = capture.Stdout()
	cmd.Stderr = capture.Stderr()
	cmd.Env = telemetry.InstrumentEnvironment(ctx, os.Environ())

	e.log.Info("Running test entry", "case", tc.ID(), "index", index, "program", entry.Program)
	result := classify(runCtx, cmd.Run())
	if result.Exited() {
		span.SetAttributes(attribute.Int("exit_code", result.ExitCode))
		e.log.Info("Test entry finished", "case", tc.ID(), "index", index, "exit_code", result.ExitCode)
	} else {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
		e.log.Error("Error while trying to execute test", "case", tc.ID(), "index", index,
			"command", entry.Command(), "error", result.Err)
		e.metrics.RecordErrorDetails("spawn", result.Err)
	}
	return result
}

// classify maps the error returned by exec.Cmd.Run onto a SpawnResult.
func classify(ctx context.Context, runErr error) types.SpawnResult {
	if runErr == nil {
		return types.SpawnSuccess(0)
	}

	// A process killed because its context ended is not a normal exit.
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return types.SpawnError(fmt.Errorf("%w: %w", ErrEntryTimeout, runErr))
		}
		return types.SpawnError(fmt.Errorf("%w: %w", ctxErr, runErr))
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return types.SpawnSuccess(code)
		}
		return types.SpawnError(fmt.Errorf("process terminated: %w", runErr))
	}
	return types.SpawnError(runErr)
}

func checkCaseDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrCaseDirectory, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w %s: not a directory", ErrCaseDirectory, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrCaseDirectory, path, err)
	}
	return f.Close()
}
