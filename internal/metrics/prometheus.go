package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	transcriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcriptions_total",
			Help: "Total number of transcription attempts by tier and outcome",
		},
		[]string{"method", "outcome"},
	)

	symptomAnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "symptom_analyses_total",
			Help: "Total number of symptom analyses by category and severity",
		},
		[]string{"category", "severity"},
	)

	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Chat-completion request duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"status"},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count, duration and in-flight requests.
// Paths are the registered route templates, so /api/health-info/:topic is
// one series no matter the topic.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// --- Business metric helpers ---

// RecordTranscription records one transcription attempt
func RecordTranscription(method, outcome string) {
	transcriptionsTotal.WithLabelValues(method, outcome).Inc()
}

// RecordAnalysis records a classified symptom query
func RecordAnalysis(category, severity string) {
	symptomAnalysesTotal.WithLabelValues(category, severity).Inc()
}

// ObserveLLM records a chat-completion call duration
func ObserveLLM(status string, duration time.Duration) {
	llmRequestDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordRateLimited records a request rejected by the rate limiter
func RecordRateLimited() {
	rateLimitedTotal.Inc()
}
