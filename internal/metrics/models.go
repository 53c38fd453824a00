package metrics

import "github.com/prometheus/client_golang/prometheus"

// Model provider Prometheus metrics, shared by embedding and generation calls.
var (
	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyrag",
			Name:      "model_requests_total",
			Help:      "Total number of model API requests",
		},
		[]string{"provider", "model", "operation", "status"},
	)

	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studyrag",
			Name:      "model_request_duration_seconds",
			Help:      "Model API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model", "operation"},
	)

	ModelTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyrag",
			Name:      "model_tokens_total",
			Help:      "Total model tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	ModelErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studyrag",
			Name:      "model_errors_total",
			Help:      "Total model API errors",
		},
		[]string{"provider", "model", "operation", "error_type"},
	)
)

// Operation label values.
const (
	OpEmbedding  = "embedding"
	OpGeneration = "generation"
)

var modelMetricsRegistered bool

// RegisterModelMetrics registers Prometheus model metrics. Must be called once from main.
func RegisterModelMetrics() {
	if modelMetricsRegistered {
		return
	}
	prometheus.MustRegister(ModelRequestsTotal)
	prometheus.MustRegister(ModelRequestDuration)
	prometheus.MustRegister(ModelTokensTotal)
	prometheus.MustRegister(ModelErrorsTotal)
	modelMetricsRegistered = true
}
