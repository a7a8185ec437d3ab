package dirtest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-dirtest/flags"
	"github.com/ethereum-optimism/infra/op-dirtest/service"
)

// Config holds the application configuration
type Config struct {
	Root          string        // Absolute path of the test tree root
	TestTimeout   time.Duration // Deadline for each test program, zero for none
	FailOnNonZero bool          // Exit 1 when any entry exits non-zero or cannot be run
	StderrTail    int64         // Bytes of stderr.log echoed after a non-zero exit
	Healthz       service.HealthzConfig
	Metrics       opmetrics.CLIConfig
	Out           io.Writer // Console output, os.Stdout when nil
	Log           log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	root := ctx.String(flags.Root.Name)
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		root = wd
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for root '%s': %w", root, err)
	}

	return &Config{
		Root:          absRoot,
		TestTimeout:   ctx.Duration(flags.TestTimeout.Name),
		FailOnNonZero: ctx.Bool(flags.FailOnNonZero.Name),
		StderrTail:    ctx.Int64(flags.StderrTail.Name),
		Healthz: service.HealthzConfig{
			Enabled: ctx.Bool(flags.HealthzEnabled.Name),
			Addr:    ctx.String(flags.HealthzAddr.Name),
			Port:    ctx.Int(flags.HealthzPort.Name),
		},
		Metrics: opmetrics.ReadCLIConfig(ctx),
		Log:     log,
	}, nil
}
