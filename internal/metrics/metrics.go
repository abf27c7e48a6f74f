// Package metrics holds the prometheus collectors of the order desk.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	Checkouts       *prometheus.CounterVec
	DraftSaves      *prometheus.CounterVec
	QuoteFailures   prometheus.Counter
	InvoiceFailures prometheus.Counter
	OutboxPublished *prometheus.CounterVec
}

// New registers every collector on a fresh registry, so tests can build as many as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_ms",
				Help:    "Duration of HTTP requests in ms",
				Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
			},
			[]string{"method", "path"},
		),
		Checkouts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_desk_checkouts_total",
				Help: "Checkout submissions by outcome",
			},
			[]string{"result"},
		),
		DraftSaves: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_desk_draft_saves_total",
				Help: "Draft saves by outcome",
			},
			[]string{"result"},
		),
		QuoteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "order_desk_rate_quote_failures_total",
			Help: "Rate lookups that failed and left the session without quotes",
		}),
		InvoiceFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "order_desk_invoice_render_failures_total",
			Help: "Checkouts whose invoice could not be rendered",
		}),
		OutboxPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_desk_outbox_published_total",
				Help: "Outbox events published to Kafka",
			},
			[]string{"event_type"},
		),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) CheckoutFinished(result string) { m.Checkouts.WithLabelValues(result).Inc() }
func (m *Metrics) DraftSaved(result string)       { m.DraftSaves.WithLabelValues(result).Inc() }
func (m *Metrics) QuoteFailed()                   { m.QuoteFailures.Inc() }
func (m *Metrics) InvoiceFailed()                 { m.InvoiceFailures.Inc() }
func (m *Metrics) EventPublished(eventType string) {
	m.OutboxPublished.WithLabelValues(eventType).Inc()
}
