package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for model calls.
type Metrics struct {
	requests *prometheus.CounterVec
	tokens   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pdfquiz",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Model calls by purpose and outcome.",
		}, []string{"purpose", "outcome"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pdfquiz",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens consumed by direction.",
		}, []string{"direction"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pdfquiz",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Model call latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"purpose"}),
	}
	reg.MustRegister(m.requests, m.tokens, m.latency)
	return m
}

type metricsProvider struct {
	inner   Provider
	metrics *Metrics
}

// WithMetrics wraps a Provider so every call is counted and timed.
func WithMetrics(p Provider, m *Metrics) Provider {
	return &metricsProvider{inner: p, metrics: m}
}

func (p *metricsProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	purpose := PurposeFrom(ctx)
	start := time.Now()
	resp, err := p.inner.Generate(ctx, req)
	p.metrics.latency.WithLabelValues(purpose).Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	p.metrics.requests.WithLabelValues(purpose, outcome).Inc()
	if resp != nil {
		p.metrics.tokens.WithLabelValues("input").Add(float64(resp.Usage.InputTokens))
		p.metrics.tokens.WithLabelValues("output").Add(float64(resp.Usage.OutputTokens))
	}
	return resp, err
}

func (p *metricsProvider) ModelID() string {
	return p.inner.ModelID()
}
