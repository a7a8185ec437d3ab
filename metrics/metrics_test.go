package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ethereum-optimism/infra/op-dirtest/types"
)

func TestErrToLabel(t *testing.T) {
	assert.Equal(t, "nil", errToLabel(nil))
	assert.Equal(t, "exec_foo_executable_file_not_found_in_PATH",
		errToLabel(errors.New(`exec: "foo": executable file not found in $PATH`)))
}

func TestRecordEntry(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordEntry("login", types.SpawnSuccess(0), time.Second)
	m.RecordEntry("login", types.SpawnSuccess(0), time.Second)
	m.RecordEntry("login", types.SpawnSuccess(3), time.Second)
	m.RecordEntry("login", types.SpawnError(errors.New("boom")), 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.entriesTotal.WithLabelValues("login", "exited", "0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.entriesTotal.WithLabelValues("login", "exited", "3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.entriesTotal.WithLabelValues("login", "error", "none")))
}

func TestRecordRunAndCase(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCase("login", types.CaseStatusRan)
	m.RecordCase("login", types.CaseStatusSkipped)
	m.RecordCase("login", types.CaseStatusSkipped)
	m.RecordRun("run-1", 2, 5, 1500*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.casesTotal.WithLabelValues("login", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.runDuration.WithLabelValues("run-1")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.treeSize.WithLabelValues("case")))
}

func TestRecordErrorDetails(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordErrorDetails("capture", nil)
	m.RecordErrorDetails("capture", errors.New("file exists"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("capture.file_exists")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.errorsTotal))
}

func TestNoopMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		NoopMetrics.RecordRun("run-1", 1, 2, time.Second)
		NoopMetrics.RecordCase("login", types.CaseStatusRan)
		NoopMetrics.RecordEntry("login", types.SpawnSuccess(1), time.Second)
		NoopMetrics.RecordErrorDetails("spawn", errors.New("boom"))
	})
}
