package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/op-dirtest/types"
)

const (
	MetricsNamespace = "dirtest"
)

var nonAlphanumericRegex = regexp.MustCompile(`[^a-zA-Z ]+`)

// Metricer records the progress of test runs.
type Metricer interface {
	RecordRun(runID string, suites, cases int, duration time.Duration)
	RecordCase(suite string, status types.CaseStatus)
	RecordEntry(suite string, result types.SpawnResult, duration time.Duration)
	RecordErrorDetails(label string, err error)
}

// Metrics is the prometheus-backed Metricer.
type Metrics struct {
	errorsTotal   *prometheus.CounterVec
	runsTotal     prometheus.Counter
	runDuration   *prometheus.GaugeVec
	treeSize      *prometheus.GaugeVec
	casesTotal    *prometheus.CounterVec
	entriesTotal  *prometheus.CounterVec
	entryDuration *prometheus.HistogramVec
}

var _ Metricer = (*Metrics)(nil)

// NewMetrics registers all collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "errors_total",
			Help:      "Count of errors",
		}, []string{
			"error",
		}),
		runsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "runs_total",
			Help:      "Count of completed test runs",
		}),
		runDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last test run",
		}, []string{
			"run_id",
		}),
		treeSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "tree_nodes",
			Help:      "Number of discovered suites and test cases",
		}, []string{
			"level",
		}),
		casesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "test_cases_total",
			Help:      "Count of test cases by outcome",
		}, []string{
			"suite",
			"status",
		}),
		entriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "test_entries_total",
			Help:      "Count of spawned test entries by outcome and exit code",
		}, []string{
			"suite",
			"outcome",
			"exit_code",
		}),
		entryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "test_entry_duration_seconds",
			Help:      "Wall time of spawned test entries",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{
			"suite",
		}),
	}
}

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func (m *Metrics) RecordRun(runID string, suites, cases int, duration time.Duration) {
	m.runsTotal.Inc()
	m.runDuration.WithLabelValues(runID).Set(duration.Seconds())
	m.treeSize.WithLabelValues(types.LevelSuite.String()).Set(float64(suites))
	m.treeSize.WithLabelValues(types.LevelCase.String()).Set(float64(cases))
}

func (m *Metrics) RecordCase(suite string, status types.CaseStatus) {
	m.casesTotal.WithLabelValues(suite, string(status)).Inc()
}

func (m *Metrics) RecordEntry(suite string, result types.SpawnResult, duration time.Duration) {
	exitCode := "none"
	if result.Exited() {
		exitCode = fmt.Sprintf("%d", result.ExitCode)
	}
	m.entriesTotal.WithLabelValues(suite, string(result.Outcome), exitCode).Inc()
	m.entryDuration.WithLabelValues(suite).Observe(duration.Seconds())
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func (m *Metrics) RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	m.errorsTotal.WithLabelValues(fmt.Sprintf("%s.%s", label, errToLabel(err))).Inc()
}

type noopMetrics struct{}

// NoopMetrics discards everything.
var NoopMetrics Metricer = noopMetrics{}

func (noopMetrics) RecordRun(string, int, int, time.Duration)            {}
func (noopMetrics) RecordCase(string, types.CaseStatus)                  {}
func (noopMetrics) RecordEntry(string, types.SpawnResult, time.Duration) {}
func (noopMetrics) RecordErrorDetails(string, error)                     {}
