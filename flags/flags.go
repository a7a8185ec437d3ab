package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "OP_DIRTEST"

var (
	Root = &cli.StringFlag{
		Name:    "root",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ROOT"),
		Usage:   "Root of the test tree. Defaults to the current working directory",
	}
	TestTimeout = &cli.DurationFlag{
		Name:    "test-timeout",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TEST_TIMEOUT"),
		Usage:   "Deadline for each test program (e.g. '5m'). Set to 0 or omit to wait indefinitely.",
	}
	FailOnNonZero = &cli.BoolFlag{
		Name:    "fail-on-nonzero",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FAIL_ON_NONZERO"),
		Usage:   "Exit with status 1 when any test program exits non-zero or cannot be run",
	}
	StderrTail = &cli.Int64Flag{
		Name:    "stderr-tail",
		Value:   2048,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "STDERR_TAIL"),
		Usage:   "Bytes of stderr.log echoed to the console after a non-zero exit",
	}
	HealthzEnabled = &cli.BoolFlag{
		Name:    "healthz.enabled",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_ENABLED"),
		Usage:   "Serve /healthz while the run is in progress",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz.addr",
		Value:   "0.0.0.0",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_ADDR"),
		Usage:   "Healthz listening address",
	}
	HealthzPort = &cli.IntFlag{
		Name:    "healthz.port",
		Value:   8080,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_PORT"),
		Usage:   "Healthz listening port",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	Root,
	TestTimeout,
	FailOnNonZero,
	StderrTail,
	HealthzEnabled,
	HealthzAddr,
	HealthzPort,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	if d := ctx.Duration(TestTimeout.Name); d < 0 {
		return fmt.Errorf("flag %s cannot be negative: %v", TestTimeout.Name, d)
	}
	if n := ctx.Int64(StderrTail.Name); n < 0 {
		return fmt.Errorf("flag %s cannot be negative: %d", StderrTail.Name, n)
	}
	return opflags.CheckRequiredXor(ctx)
}
