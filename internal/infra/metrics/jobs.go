package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(videoJobsProcessedTotal, videoJobDurationSeconds) }

var videoJobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "video_jobs_processed_total",
		Help: "Total number of video ingestion jobs processed, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var videoJobDurationSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "video_job_duration_seconds",
		Help:    "Wall time spent processing one video ingestion job.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	},
)

func IncVideoJob(status string) {
	videoJobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveVideoJobDuration(seconds float64) {
	videoJobDurationSeconds.Observe(seconds)
}
