package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricNamespace = "generation_gateway"

	metricsNameGenerationLatency = "generation_latency"
	metricsNameRequests          = "requests_total"
	metricLabelResult            = "result"
)

// Result is the outcome of a generation request.
type Result string

const (
	// ResultOK is a successful generation.
	ResultOK Result = "ok"
	// ResultMalformedRequest is a request rejected before reaching the generator.
	ResultMalformedRequest Result = "malformed_request"
	// ResultGeneratorFault is a request the generator failed.
	ResultGeneratorFault Result = "generator_fault"
	// ResultUnavailable is a request given up while waiting for the generator.
	ResultUnavailable Result = "unavailable"
)

// MetricsMonitoring is an interface for monitoring metrics.
type MetricsMonitoring interface {
	ObserveGenerationLatency(latency time.Duration)
	IncRequest(result Result)
}

// MetricsMonitor holds and updates Prometheus metrics.
type MetricsMonitor struct {
	generationLatencyHist prometheus.Histogram
	requestCounterVec     *prometheus.CounterVec
}

// latencyBuckets are the buckets for the latencies from 100ms to 5 minutes.
var latencyBuckets []float64 = []float64{
	.1, .2, .5, 1, 2, 5, 10, 30, 60, 120, 180, 240, 300,
}

// NewMetricsMonitor returns a new MetricsMonitor.
func NewMetricsMonitor() *MetricsMonitor {
	generationLatencyHist := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      metricsNameGenerationLatency,
			Help:      "Time spent in the generator, in seconds.",
			Buckets:   latencyBuckets,
		},
	)
	requestCounterVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      metricsNameRequests,
			Help:      "Number of generation requests by result.",
		},
		[]string{
			metricLabelResult,
		},
	)

	m := &MetricsMonitor{
		generationLatencyHist: generationLatencyHist,
		requestCounterVec:     requestCounterVec,
	}

	prometheus.MustRegister(
		generationLatencyHist,
		requestCounterVec,
	)

	return m
}

// ObserveGenerationLatency observes the time a generator call took.
func (m *MetricsMonitor) ObserveGenerationLatency(latency time.Duration) {
	m.generationLatencyHist.Observe(float64(latency) / float64(time.Second))
}

// IncRequest counts a finished request.
func (m *MetricsMonitor) IncRequest(result Result) {
	m.requestCounterVec.WithLabelValues(string(result)).Inc()
}

// UnregisterAllCollectors unregisters all connectors.
func (m *MetricsMonitor) UnregisterAllCollectors() {
	prometheus.Unregister(m.generationLatencyHist)
	prometheus.Unregister(m.requestCounterVec)
}
