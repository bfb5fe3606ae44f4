// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the agentgate engine.
package observability

import "github.com/prometheus/client_golang/prometheus"

// CallBuckets defines histogram buckets suited for agent-style call
// latencies, ranging from 10ms to 120s.
var CallBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// CallsTotal counts dispatched calls by response mode and terminal status.
	CallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentgate_calls_total",
			Help: "Dispatched calls",
		},
		[]string{"mode", "status"},
	)

	// CallDuration records call duration in seconds by response mode.
	CallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentgate_call_duration_seconds",
			Help:    "Call duration",
			Buckets: CallBuckets,
		},
		[]string{"mode"},
	)

	// StreamsActive tracks the number of in-flight streamed calls.
	StreamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentgate_streams_active",
			Help: "Active streamed calls",
		},
	)

	// SessionsActive tracks the number of live sessions in the store.
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentgate_sessions_active",
			Help: "Live sessions",
		},
	)

	// EventsEmittedTotal counts stream events emitted by kind.
	EventsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentgate_events_emitted_total",
			Help: "Stream events emitted",
		},
		[]string{"kind"},
	)

	// ResumesTotal counts resume attempts by outcome.
	ResumesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentgate_resumes_total",
			Help: "Resume attempts",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		CallsTotal,
		CallDuration,
		StreamsActive,
		SessionsActive,
		EventsEmittedTotal,
		ResumesTotal,
	)
}
