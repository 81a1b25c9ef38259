package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeRejected  = "rejected"
)

type Metrics struct {
	registry *prometheus.Registry

	GatewayRequests *prometheus.CounterVec
	WebhookEvents   *prometheus.CounterVec
	WebhookHandlers *prometheus.CounterVec
	EmailsSent      *prometheus.CounterVec
}

// New registers the service collectors on a private registry so several
// instances can coexist in tests.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_gateway_requests_total",
			Help: "Payment gateway calls by operation and outcome.",
		}, []string{"provider", "operation", "outcome"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_webhook_events_total",
			Help: "Inbound webhook deliveries by kind and outcome.",
		}, []string{"provider", "kind", "outcome"}),
		WebhookHandlers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_webhook_handler_runs_total",
			Help: "Webhook handler executions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_emails_total",
			Help: "Transactional emails by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	reg.MustRegister(m.GatewayRequests, m.WebhookEvents, m.WebhookHandlers, m.EmailsSent)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
