package dirtest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/op-dirtest/exitcodes"
	"github.com/ethereum-optimism/infra/op-dirtest/metrics"
	"github.com/ethereum-optimism/infra/op-dirtest/registry"
	"github.com/ethereum-optimism/infra/op-dirtest/reporting"
	"github.com/ethereum-optimism/infra/op-dirtest/runner"
	"github.com/ethereum-optimism/infra/op-dirtest/service"
	"github.com/ethereum-optimism/infra/op-dirtest/types"
)

// dirtest implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &dirtest{}

// dirtest discovers the test tree under the configured root, runs every test
// case once and reports the results.
type dirtest struct {
	config   *Config
	version  string
	service  *service.Service
	registry *registry.Registry
	runner   runner.TestRunner
	reporter *reporting.ConsoleReporter
	result   *runner.RunnerResult

	running  atomic.Bool
	stopOnce sync.Once

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*dirtest, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if shutdownCallback == nil {
		shutdownCallback = func(error) {}
	}

	// The run stamp is taken once; every test case of this run shares it.
	outputSubdir := types.OutputSubdirName(time.Now())
	runID := uuid.New().String()

	config.Log.Debug("Creating dirtest with config",
		"root", config.Root,
		"testTimeout", config.TestTimeout,
		"failOnNonZero", config.FailOnNonZero,
		"outputSubdir", outputSubdir,
		"runID", runID)

	svc := service.New(service.Config{
		Log:     config.Log,
		Healthz: config.Healthz,
		Metrics: config.Metrics,
	})
	m := metrics.NewMetrics(svc.Registry())

	reg, err := registry.NewRegistry(registry.Config{
		Log:          config.Log,
		Root:         config.Root,
		OutputSubdir: outputSubdir,
		RunID:        runID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	reporter := reporting.NewConsoleReporter(reporting.Config{
		Log:        config.Log,
		Out:        config.Out,
		StderrTail: config.StderrTail,
	})

	executor, err := runner.NewTestExecutor(runner.ExecutorConfig{
		Log:     config.Log,
		Timeout: config.TestTimeout,
		Metrics: m,
		Sink:    reporter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test executor: %w", err)
	}

	testRunner, err := runner.NewTestRunner(runner.Config{
		Log:      config.Log,
		Executor: executor,
		Metrics:  m,
		Sink:     reporter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test runner: %w", err)
	}
	config.Log.Info("dirtest.New: created registry and test runner")

	return &dirtest{
		config:           config,
		version:          version,
		service:          svc,
		registry:         reg,
		runner:           testRunner,
		reporter:         reporter,
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start discovers and runs the test tree once, then requests shutdown.
// Start implements the cliapp.Lifecycle interface.
func (d *dirtest) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			d.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	d.running.Store(true)
	d.config.Log.Info("Starting op-dirtest", "version", d.version, "root", d.config.Root)

	if err := d.service.Start(ctx); err != nil {
		return d.abort(ctx, NewRuntimeError(err))
	}

	if err := d.run(ctx); err != nil {
		return d.abort(ctx, err)
	}

	if d.config.FailOnNonZero && d.result.Stats.Failed() {
		d.config.Log.Warn("Test run completed with non-zero exits, returning exit code 1")
		return d.abort(ctx, NewTestFailureError(fmt.Sprintf("%d non-zero exits, %d spawn errors",
			d.result.Stats.NonZero, d.result.Stats.SpawnErrors)))
	}

	d.config.Log.Info("Tests completed, exiting")
	go func() {
		d.shutdownCallback(nil)
	}()
	return nil
}

// run builds the tree, executes it and prints the results.
func (d *dirtest) run(ctx context.Context) error {
	fw, err := d.registry.Build(ctx)
	if err != nil {
		d.config.Log.Error("Failed to discover test tree", "error", err)
		return NewRuntimeError(err)
	}
	d.reporter.PrintTree(fw)

	result, err := d.runner.RunAll(ctx, fw)
	if err != nil {
		d.config.Log.Error("Runtime error running tests", "error", err)
		return NewRuntimeError(err)
	}
	d.result = result

	d.reporter.PrintResults(result)
	d.config.Log.Info("Test run completed",
		"run_id", result.RunID,
		"cases", result.Stats.Cases,
		"skipped", result.Stats.Skipped,
		"non_zero", result.Stats.NonZero,
		"interrupted", result.Interrupted)
	return nil
}

// abort releases the auxiliary servers when Start cannot complete.
func (d *dirtest) abort(ctx context.Context, err error) error {
	return errors.Join(err, d.Stop(ctx))
}

// Stop stops the auxiliary servers.
// Stop implements the cliapp.Lifecycle interface.
func (d *dirtest) Stop(ctx context.Context) error {
	var err error
	d.stopOnce.Do(func() {
		d.config.Log.Info("Stopping op-dirtest")
		d.running.Store(false)
		err = d.service.Stop(ctx)
	})
	return err
}

// Stopped returns true if the service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (d *dirtest) Stopped() bool {
	return !d.running.Load()
}

// Result returns the result of the last run, nil before a run completed.
func (d *dirtest) Result() *runner.RunnerResult {
	return d.result
}
