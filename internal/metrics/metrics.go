package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StageExtract  = "extract"
	StageChunk    = "chunk"
	StageEmbed    = "embed"
	StageStore    = "store"
	StageRetrieve = "retrieve"
	StageAnswer   = "answer"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docqa_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"path", "status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docqa_stage_duration_seconds",
		Help:    "Duration of pipeline stages.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"stage"})

	IngestedChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docqa_ingested_chunks_total",
		Help: "Chunks written to the store.",
	})

	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docqa_job_runs_total",
		Help: "Scheduled job runs by job name and result.",
	}, []string{"job", "result"})
)

// ObserveStage records the time elapsed since start for a stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
