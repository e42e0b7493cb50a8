package storecheck

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run metrics live in their own registry so WriteMetrics emits only these,
// not the Go runtime collectors of the default one.
var (
	metricsRegistry = prometheus.NewRegistry()
	metricsFactory  = promauto.With(metricsRegistry)

	metricRuns = metricsFactory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storecheck",
		Name:      "runs_total",
		Help:      "Verification runs by flow and outcome.",
	}, []string{"flow", "result"})
	metricRunDuration = metricsFactory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storecheck",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a verification run, session setup included.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
	}, []string{"flow"})
	metricCheckpoints = metricsFactory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storecheck",
		Name:      "checkpoints_total",
		Help:      "Checkpoint screenshots written.",
	}, []string{"flow"})
	metricStepFailures = metricsFactory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storecheck",
		Name:      "step_failures_total",
		Help:      "Failed runs by the kind of step they stopped at.",
	}, []string{"flow", "kind"})
)

func recordRun(res *Result) {
	result := "passed"
	if !res.OK() {
		result = "failed"
		kind := "setup"
		var stepErr *StepError
		if errors.As(res.Err, &stepErr) {
			kind = string(stepErr.Kind)
		}
		metricStepFailures.WithLabelValues(res.Flow, kind).Inc()
	}
	metricRuns.WithLabelValues(res.Flow, result).Inc()
	metricRunDuration.WithLabelValues(res.Flow).Observe(res.Duration.Seconds())
	if n := len(res.Checkpoints); n > 0 {
		metricCheckpoints.WithLabelValues(res.Flow).Add(float64(n))
	}
}

// WriteMetrics writes the run metrics of this process to path in the text
// exposition format, for node_exporter's textfile collector.
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, metricsRegistry)
}
