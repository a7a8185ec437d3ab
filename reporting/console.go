// Package reporting renders the discovered tree, per-case progress and the
// final results of a run to the console.
package reporting

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-dirtest/logging"
	"github.com/ethereum-optimism/infra/op-dirtest/runner"
	"github.com/ethereum-optimism/infra/op-dirtest/substitute"
	"github.com/ethereum-optimism/infra/op-dirtest/types"
)

const (
	// DefaultStderrTail is how much of stderr.log is echoed after a non-zero exit.
	DefaultStderrTail int64 = 2048

	redacted = "********"
	indent   = "    "
)

// MissingFrameworkConfig is printed when the run root declares no framework_conf.json.
const MissingFrameworkConfig = "Top-level config file (" + types.FrameworkConfigFile + ") not found"

var _ runner.ProgressSink = (*ConsoleReporter)(nil)

// Config holds configuration for creating a new console reporter
type Config struct {
	Log        log.Logger
	Out        io.Writer // Defaults to os.Stdout
	StderrTail int64     // Bytes of stderr.log shown on non-zero exit, zero for the default
	NoColor    bool
}

// ConsoleReporter prints run progress and results. It implements runner.ProgressSink.
type ConsoleReporter struct {
	log        log.Logger
	out        io.Writer
	stderrTail int64
	noColor    bool
}

// NewConsoleReporter creates a new console reporter
func NewConsoleReporter(cfg Config) *ConsoleReporter {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.StderrTail <= 0 {
		cfg.StderrTail = DefaultStderrTail
	}
	return &ConsoleReporter{
		log:        cfg.Log,
		out:        cfg.Out,
		stderrTail: cfg.StderrTail,
		noColor:    cfg.NoColor,
	}
}

// PrintTree prints the discovered framework, suites and test cases.
func (r *ConsoleReporter) PrintTree(fw *types.Framework) {
	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedRounded)

	l.AppendItem(fmt.Sprintf("Test Framework: config_file = %s, path = %s", orNone(fw.ConfigFile), fw.Path))
	l.Indent()
	for _, suite := range fw.Suites.All() {
		l.AppendItem(fmt.Sprintf("Suite: name = %s, config_file = %s, path = %s",
			suite.Name, orNone(suite.ConfigFile), suite.Path))
		l.Indent()
		for _, tc := range suite.TestCases.All() {
			l.AppendItem(fmt.Sprintf("Test case: name = %s, config_file = %s, path = %s",
				tc.Name, orNone(tc.ConfigFile), tc.Path))
		}
		l.UnIndent()
	}
	l.UnIndent()

	fmt.Fprintln(r.out, l.Render())
	if !fw.HasConfig() {
		fmt.Fprintf(r.out, "Warning: %s\n", MissingFrameworkConfig)
	}
	fmt.Fprintf(r.out, "Suites: %d, test cases: %d, output directory: %s\n",
		fw.Suites.Len(), fw.TestCaseCount(), fw.OutputSubdir)
}

// CaseStarted prints the test case and its config after substitution.
func (r *ConsoleReporter) CaseStarted(tc *types.TestCase, vars types.Variables) {
	fmt.Fprintf(r.out, "Test case: %s, path = %s\n", tc.ID(), tc.Path)

	rendered, err := RenderConfig(tc.Config, vars)
	if err != nil {
		r.log.Error("Failed to render test config", "case", tc.ID(), "error", err)
		return
	}
	fmt.Fprintf(r.out, "%stest config after substitution:\n", indent)
	writeIndented(r.out, rendered, indent+indent)
}

// EntryCompleted prints the outcome of one entry, with the tail of the stderr it
// wrote when it exited non-zero.
func (r *ConsoleReporter) EntryCompleted(tc *types.TestCase, entry *types.EntryResult) {
	if entry.Skipped {
		fmt.Fprintf(r.out, "%sWarning: Skipping test %d in %s: %s\n", indent, entry.Index, tc.ID(), entry.SkipReason)
		return
	}
	fmt.Fprintf(r.out, "%s[%d] %s: %s\n", indent, entry.Index, entry.Entry.Program, entry.Spawn)
	if !entry.Spawn.Exited() || entry.Spawn.ExitCode == 0 {
		return
	}

	tail, truncated, err := logging.ReadTail(filepath.Join(tc.OutputDir, logging.StderrFilename), entry.StderrOffset, r.stderrTail)
	if err != nil {
		r.log.Warn("Unable to read stderr log", "case", tc.ID(), "error", err)
		return
	}
	shown := bytes.TrimSpace([]byte(stripansi.Strip(string(tail))))
	if len(shown) == 0 {
		return
	}
	if truncated {
		fmt.Fprintf(r.out, "%sstderr (last %d bytes):\n", indent+indent, len(tail))
	} else {
		fmt.Fprintf(r.out, "%sstderr:\n", indent+indent)
	}
	writeIndented(r.out, string(shown)+"\n", indent+indent+indent)
}

// CaseCompleted prints a notice for cases that were skipped or failed locally.
func (r *ConsoleReporter) CaseCompleted(tc *types.TestCase, result *types.CaseResult) {
	switch result.Status {
	case types.CaseStatusSkipped:
		fmt.Fprintf(r.out, "Test case: name = %s skipped, %s, path = %s\n", tc.ID(), result.SkipReason, tc.Path)
	case types.CaseStatusError:
		fmt.Fprintf(r.out, "Test case: name = %s skipped, error: %v\n", tc.ID(), result.Err)
	}
}

// PrintResults prints the final results table.
func (r *ConsoleReporter) PrintResults(result *runner.RunnerResult) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(fmt.Sprintf("Test Results (%s)", formatDuration(result.Duration)))

	t.AppendHeader(table.Row{
		"Type", "ID", "Duration", "Entries", "Non-zero", "Errors", "Skipped", "Status",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Entries", Align: text.AlignRight},
		{Name: "Non-zero", Align: text.AlignRight},
		{Name: "Errors", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
	})

	for _, suite := range result.Suites {
		t.AppendRow(table.Row{
			"Suite",
			suite.Name,
			formatDuration(suite.Duration),
			suite.Stats.Entries,
			suite.Stats.NonZero,
			suite.Stats.SpawnErrors,
			suite.Stats.EntriesSkipped,
			"",
		})
		for i, c := range suite.Cases {
			prefix := "├─"
			if i == len(suite.Cases)-1 {
				prefix = "└─"
			}
			spawned, nonZero, errored, skipped := caseCounts(c)
			t.AppendRow(table.Row{
				"",
				fmt.Sprintf("%s %s", prefix, c.Name),
				formatDuration(c.Duration),
				spawned,
				nonZero,
				errored,
				skipped,
				caseStatusString(c),
			})
		}
		t.AppendSeparator()
	}

	status := "DONE"
	switch {
	case result.Interrupted:
		status = "INTERRUPTED"
	case result.Stats.Failed():
		status = "NON-ZERO"
	}
	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d cases", result.Stats.Cases),
		formatDuration(result.Duration),
		result.Stats.Entries,
		result.Stats.NonZero,
		result.Stats.SpawnErrors,
		result.Stats.EntriesSkipped,
		status,
	})

	switch {
	case r.noColor:
		t.SetStyle(table.StyleLight)
	case result.Stats.Failed() || result.Interrupted:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case result.Stats.Skipped > 0:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	t.Render()
	fmt.Fprintf(r.out, "Run %s: %d suites, %d test cases (%d ran, %d skipped, %d errors)\n",
		result.RunID, len(result.Suites), result.Stats.Cases, result.Stats.Ran, result.Stats.Skipped, result.Stats.Errored)
}

// RenderConfig renders a test case config as YAML with the password value
// masked. The config itself is left untouched.
func RenderConfig(cfg *types.TestCaseConfig, vars types.Variables) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("no test config")
	}
	masked := redact(cfg, vars[substitute.TokenPassword])
	out, err := yaml.Marshal(masked)
	if err != nil {
		return "", fmt.Errorf("failed to render test config: %w", err)
	}
	return string(out), nil
}

func redact(cfg *types.TestCaseConfig, password string) *types.TestCaseConfig {
	if password == "" || cfg.Tests == nil {
		return cfg
	}
	masked := &types.TestCaseConfig{Tests: make([]types.TestEntry, len(cfg.Tests))}
	for i, e := range cfg.Tests {
		masked.Tests[i] = types.TestEntry{Program: e.Program}
		if e.Args == nil {
			continue
		}
		masked.Tests[i].Args = make([]string, len(e.Args))
		for j, arg := range e.Args {
			if arg == password {
				arg = redacted
			}
			masked.Tests[i].Args[j] = arg
		}
	}
	return masked
}

func caseCounts(c *types.CaseResult) (spawned, nonZero, errored, skipped int) {
	for _, e := range c.Entries {
		switch {
		case e.Skipped:
			skipped++
		case !e.Spawn.Exited():
			spawned++
			errored++
		default:
			spawned++
			if e.Spawn.ExitCode != 0 {
				nonZero++
			}
		}
	}
	return
}

func caseStatusString(c *types.CaseResult) string {
	switch c.Status {
	case types.CaseStatusSkipped:
		return "skipped"
	case types.CaseStatusError:
		return "error"
	}
	if c.NonZero() > 0 {
		return "non-zero"
	}
	return "ran"
}

func writeIndented(w io.Writer, s, prefix string) {
	for _, line := range strings.SplitAfter(s, "\n") {
		if line == "" {
			continue
		}
		fmt.Fprint(w, prefix+line)
	}
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}
