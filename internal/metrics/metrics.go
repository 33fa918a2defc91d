package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judge_submissions_total",
			Help: "Total number of submissions that reached a terminal status",
		},
		[]string{"language", "status"},
	)

	TestCaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "judge_test_case_duration_ms",
			Help:    "Wall time of a single sandboxed test case run in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"language", "result"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "judge_queue_depth",
			Help: "Current number of submissions waiting in the queue",
		},
	)

	ActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "judge_active_workers",
			Help: "Number of workers currently processing a submission",
		},
	)

	SandboxFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "judge_sandbox_failures_total",
			Help: "Total number of sandbox runs that failed to execute",
		},
	)

	ResultPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "judge_result_publish_failures_total",
			Help: "Total number of result events that could not be published",
		},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
