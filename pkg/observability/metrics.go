// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference
// latencies, ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, route, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ollamagate_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ollamagate_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingActive tracks the number of NDJSON streams in flight.
	StreamingActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ollamagate_streaming_active",
			Help: "Active streaming responses",
		},
	)

	// ProviderRequestsTotal counts requests sent to backend providers.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ollamagate_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "model", "status"},
	)

	// ProviderLatency records backend provider latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ollamagate_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// ProviderTokensTotal counts tokens by direction (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ollamagate_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// ResolverFallbackTotal counts resolutions that fell back to the
	// default model. The alias itself goes to the log, not a label, to
	// keep cardinality bounded.
	ResolverFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ollamagate_resolver_fallback_total",
			Help: "Model resolutions that fell back to the default",
		},
	)

	// RetriesTotal counts upstream retries by provider.
	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ollamagate_retries_total",
			Help: "Upstream retries",
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingActive,
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
		ResolverFallbackTotal,
		RetriesTotal,
	)
}

// ObserveProviderCall records one backend call outcome.
func ObserveProviderCall(provider, model, status string, seconds float64) {
	ProviderRequestsTotal.WithLabelValues(provider, model, status).Inc()
	ProviderLatency.WithLabelValues(provider, model).Observe(seconds)
}

// ObserveTokens records token usage for one backend call.
func ObserveTokens(provider, model string, input, output int) {
	if input > 0 {
		ProviderTokensTotal.WithLabelValues(provider, model, "input").Add(float64(input))
	}
	if output > 0 {
		ProviderTokensTotal.WithLabelValues(provider, model, "output").Add(float64(output))
	}
}
