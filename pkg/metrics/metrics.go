// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// LLMCompletionDuration tracks LLM completion latency.
	LLMCompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_completion_duration_seconds",
			Help:    "LLM completion duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"provider", "outcome"},
	)

	// LLMCompletionsTotal counts completions by outcome.
	LLMCompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_completions_total",
			Help: "Total LLM completions by outcome",
		},
		[]string{"provider", "outcome"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"provider", "direction"},
	)

	// MessagesProcessedTotal counts classified and answered messages.
	MessagesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dm_messages_processed_total",
			Help: "Total messages processed",
		},
		[]string{"intent", "source", "used_template"},
	)

	// PollCyclesTotal counts poll cycles by status.
	PollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dm_poll_cycles_total",
			Help: "Total poll cycles",
		},
		[]string{"status"},
	)

	// BridgeCallDuration tracks bridge tool invocations.
	BridgeCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_call_duration_seconds",
			Help:    "Messaging bridge tool call duration",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"tool", "status"},
	)

	// EventsPublishedTotal counts interaction events sent to NATS.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_events_published_total",
			Help: "Interaction events published to NATS",
		},
		[]string{"status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCompletion records metrics for a single completion attempt.
func RecordLLMCompletion(provider, outcome string, duration float64, tokensIn, tokensOut int) {
	LLMCompletionDuration.WithLabelValues(provider, outcome).Observe(duration)
	LLMCompletionsTotal.WithLabelValues(provider, outcome).Inc()
	LLMTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}

// RecordMessage records a processed message.
func RecordMessage(intent, source string, usedTemplate bool) {
	used := "false"
	if usedTemplate {
		used = "true"
	}
	MessagesProcessedTotal.WithLabelValues(intent, source, used).Inc()
}

// RecordPollCycle records the outcome of a poll cycle.
func RecordPollCycle(status string) {
	PollCyclesTotal.WithLabelValues(status).Inc()
}

// RecordBridgeCall records a bridge tool invocation.
func RecordBridgeCall(tool, status string, duration float64) {
	BridgeCallDuration.WithLabelValues(tool, status).Observe(duration)
}

// RecordEventPublish records a NATS publish attempt.
func RecordEventPublish(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	EventsPublishedTotal.WithLabelValues(status).Inc()
}
