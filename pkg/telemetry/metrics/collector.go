package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/config"
)

// Collector owns the prometheus registry and all proxy metrics.
type Collector struct {
	registry *prometheus.Registry

	// Completion request count by model, transport mode, and outcome.
	completionsTotal *prometheus.CounterVec

	// Completion duration histogram by transport mode.
	completionDuration *prometheus.HistogramVec

	// Token throughput by model and token type.
	tokensTotal *prometheus.CounterVec

	// Pending audit writes, sampled at scrape time.
	auditQueueDepth prometheus.GaugeFunc
}

// NewCollector creates and registers the proxy metrics. When registry is
// nil a fresh one is created, keeping tests isolated from the global
// default registry.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,

		completionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "completions_total",
				Help:      "Total number of completion requests processed",
			},
			[]string{"model", "mode", "status"},
		),

		completionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "completion_duration_seconds",
				Help:      "Duration of completion requests in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"mode"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "completion_tokens_total",
				Help:      "Total number of tokens processed",
			},
			[]string{"model", "type"},
		),
	}

	registry.MustRegister(c.completionsTotal, c.completionDuration, c.tokensTotal)

	return c
}

// RecordCompletion records one finished completion request.
// Status is "success", "error", or "disconnect".
func (c *Collector) RecordCompletion(model, mode, status string, duration time.Duration) {
	c.completionsTotal.WithLabelValues(model, mode, status).Inc()
	c.completionDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordTokens records reported token usage for one completion.
func (c *Collector) RecordTokens(model string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		c.tokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		c.tokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// ObserveAuditQueue registers a gauge sampling the audit recorder's queue
// depth at scrape time.
func (c *Collector) ObserveAuditQueue(cfg config.MetricsConfig, depth func() int) {
	c.auditQueueDepth = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "audit_queue_depth",
			Help:      "Number of audit records waiting to be written",
		},
		func() float64 { return float64(depth()) },
	)
	c.registry.MustRegister(c.auditQueueDepth)
}
