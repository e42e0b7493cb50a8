package storecheck

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRecordsMetrics(t *testing.T) {
	flow := Flow{
		Name:  "metrics-probe",
		Steps: []Step{Navigate("/", WaitCondition{}), Checkpoint("home"), ExpectVisible(ByText("Footer"))},
	}
	passed := metricRuns.WithLabelValues(flow.Name, "passed")
	failed := metricRuns.WithLabelValues(flow.Name, "failed")
	checkpoints := metricCheckpoints.WithLabelValues(flow.Name)
	assertions := metricStepFailures.WithLabelValues(flow.Name, string(KindAssertion))
	before := [4]float64{testutil.ToFloat64(passed), testutil.ToFloat64(failed), testutil.ToFloat64(checkpoints), testutil.ToFloat64(assertions)}

	runner, _ := newTestRunner(t, &fakeDriver{})
	require.True(t, runner.Run(context.Background(), flow).OK())

	runner, _ = newTestRunner(t, &fakeDriver{failOn: map[string]error{
		"visible " + ByText("Footer").String(): errors.New("missing"),
	}})
	require.False(t, runner.Run(context.Background(), flow).OK())

	assert.Equal(t, before[0]+1, testutil.ToFloat64(passed))
	assert.Equal(t, before[1]+1, testutil.ToFloat64(failed))
	assert.Equal(t, before[2]+2, testutil.ToFloat64(checkpoints))
	assert.Equal(t, before[3]+1, testutil.ToFloat64(assertions))
}

func TestWriteMetrics(t *testing.T) {
	recordRun(&Result{Flow: "textfile", State: StateCompleted, Checkpoints: []string{"a.png"}})

	path := filepath.Join(t.TempDir(), "storecheck.prom")
	require.NoError(t, WriteMetrics(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `storecheck_runs_total{flow="textfile",result="passed"} 1`)
	assert.Contains(t, string(data), "storecheck_run_duration_seconds_bucket")
}
