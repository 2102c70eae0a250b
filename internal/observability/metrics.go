package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "quotagate",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quotagate",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quotagate",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	meteredRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quotagate",
			Subsystem: "metered",
			Name:      "requests_total",
			Help:      "Total number of metered generation requests by outcome.",
		},
		[]string{"outcome"},
	)

	generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "quotagate",
			Subsystem: "metered",
			Name:      "generation_duration_seconds",
			Help:      "End-to-end duration of upstream generation calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
	)

	creditsDebited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "quotagate",
			Subsystem: "ledger",
			Name:      "credits_debited_total",
			Help:      "Total credits charged across all accounts.",
		},
	)

	memoryUsed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "quotagate",
			Subsystem: "memory",
			Name:      "used_bytes",
			Help:      "Process memory usage as last sampled by the guardian.",
		},
	)

	lifecycleState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "quotagate",
			Subsystem: "lifecycle",
			Name:      "state",
			Help:      "Current lifecycle state as an ordinal (0=starting through 5=failed).",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		meteredRequests,
		generationDuration,
		creditsDebited,
		memoryUsed,
		lifecycleState,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// MetricsHandler returns an HTTP handler exposing the registered collectors
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordMeteredRequest records the outcome of one metered generation request
func RecordMeteredRequest(outcome string, generationTime time.Duration) {
	meteredRequests.WithLabelValues(outcome).Inc()
	if generationTime > 0 {
		generationDuration.Observe(generationTime.Seconds())
	}
}

// RecordCreditsDebited adds to the running credit total
func RecordCreditsDebited(n int64) {
	creditsDebited.Add(float64(n))
}

// SetMemoryUsage publishes the guardian's latest sample
func SetMemoryUsage(usedBytes uint64) {
	memoryUsed.Set(float64(usedBytes))
}

// SetLifecycleState publishes the lifecycle state ordinal
func SetLifecycleState(state int) {
	lifecycleState.Set(float64(state))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
