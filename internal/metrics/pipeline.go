package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion and query pipeline Prometheus metrics.
var (
	IngestRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photodex",
			Name:      "ingest_records_total",
			Help:      "Total number of ingested notification records",
		},
		[]string{"status"}, // "ok" / "error"
	)

	DetectionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "photodex",
			Name:      "detection_duration_seconds",
			Help:      "Label detection request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	DetectionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photodex",
			Name:      "detection_errors_total",
			Help:      "Total label detection errors",
		},
		[]string{"provider"},
	)

	LinkFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "photodex",
			Name:      "link_fallback_total",
			Help:      "Signed URL failures answered with a public URL",
		},
	)

	SearchKeywords = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "photodex",
			Name:      "search_keywords",
			Help:      "Number of keywords per search query",
			Buckets:   []float64{1, 2, 3, 5, 8, 13},
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers ingestion and search metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestRecordsTotal)
	prometheus.MustRegister(DetectionDuration)
	prometheus.MustRegister(DetectionErrorsTotal)
	prometheus.MustRegister(LinkFallbackTotal)
	prometheus.MustRegister(SearchKeywords)
	pipelineMetricsRegistered = true
}
