package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts finished requests by route template and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cortex_http_requests_total",
		Help: "HTTP requests by method, route and status class",
	}, []string{"method", "route", "status"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cortex_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// AgentCalls counts evaluation agent invocations; result is ok or unavailable.
	AgentCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cortex_agent_calls_total",
		Help: "Evaluation agent calls by agent and result",
	}, []string{"agent", "result"})

	AgentLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cortex_agent_duration_seconds",
		Help:    "Evaluation agent latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~64s
	}, []string{"agent"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cortex_llm_requests_total",
		Help: "Text generation requests by model and status",
	}, []string{"model", "status"})

	LLMTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cortex_llm_tokens_total",
		Help: "Tokens consumed by direction",
	}, []string{"model", "direction"})

	SynthesisFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cortex_synthesis_fallback_total",
		Help: "Synthesizer outputs that could not be parsed and fell back to neutral scores",
	})

	PolicyRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cortex_policy_rejections_total",
		Help: "Submissions rejected by usage quotas",
	}, []string{"kind"})

	FeedbackUnlocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cortex_feedback_unlocks_total",
		Help: "Responses whose AI feedback was unlocked",
	})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cortex_webhook_events_total",
		Help: "Billing webhook events by type and result",
	}, []string{"event", "result"})
)
