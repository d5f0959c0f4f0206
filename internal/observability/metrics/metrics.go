package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics instruments inbound HTTP traffic.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP instruments on the given registerer.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomgpt_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roomgpt_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

// GinMiddleware records request counts and latency.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// Metrics exposes application-level instruments.
type Metrics struct {
	generations     *prometheus.CounterVec
	creditsConsumed prometheus.Counter
	paymentEvents   *prometheus.CounterVec
	rateLimitDenied *prometheus.CounterVec
	entitlementDeny *prometheus.CounterVec
}

// New registers the domain instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomgpt_generations_total",
			Help: "Completed generation requests by provider and outcome.",
		}, []string{"provider", "status"}),
		creditsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomgpt_credits_consumed_total",
			Help: "Credits consumed by metered generations.",
		}),
		paymentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomgpt_payment_events_total",
			Help: "Processed payment provider events by type.",
		}, []string{"provider", "event_type"}),
		rateLimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomgpt_rate_limit_denied_total",
			Help: "Requests denied by the rate limiter.",
		}, []string{"endpoint"}),
		entitlementDeny: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roomgpt_entitlement_denied_total",
			Help: "Generation requests denied by the entitlement checker.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.generations, m.creditsConsumed, m.paymentEvents, m.rateLimitDenied, m.entitlementDeny)
	}
	return m
}

func (m *Metrics) RecordGeneration(provider, status string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(provider, status).Inc()
}

func (m *Metrics) RecordCreditConsumed() {
	if m == nil {
		return
	}
	m.creditsConsumed.Inc()
}

func (m *Metrics) RecordPaymentEvent(provider, eventType string) {
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues(provider, eventType).Inc()
}

func (m *Metrics) RecordRateLimitDenied(endpoint string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) RecordEntitlementDenied(reason string) {
	if m == nil {
		return
	}
	m.entitlementDeny.WithLabelValues(reason).Inc()
}
