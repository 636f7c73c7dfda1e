package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "resumeflow_stage_duration_seconds",
	Help:    "Time spent in each pipeline stage, by outcome.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60, 120, 300},
}, []string{"stage", "status"})

var pageOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "resumeflow_page_extractions_total",
	Help: "Vision page extractions by outcome (ok, degraded, cached).",
}, []string{"outcome"})

var pageUploadFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "resumeflow_page_upload_failures_total",
	Help: "Rendered pages that could not be uploaded and were skipped.",
})

var profileWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "resumeflow_profile_writes_total",
	Help: "Profile persistence attempts by update status.",
}, []string{"status"})

var pipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "resumeflow_pipeline_runs_started_total",
	Help: "Pipeline runs started through the API or CLI, by mode.",
}, []string{"mode"})

func ObserveStage(stage string, err error, elapsed time.Duration) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	stageDuration.WithLabelValues(stage, status).Observe(elapsed.Seconds())
}

func IncPageOutcome(outcome string) {
	pageOutcomes.WithLabelValues(outcome).Inc()
}

func IncPageUploadFailure() {
	pageUploadFailures.Inc()
}

func IncProfileWrite(status string) {
	profileWrites.WithLabelValues(status).Inc()
}

func IncRunStarted(mode string) {
	pipelineRuns.WithLabelValues(mode).Inc()
}
