package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyjia/timesheet-invoicing/internal/application/dispatcher"
	"github.com/garyjia/timesheet-invoicing/internal/domain/event"
)

// Config labels every series with the running service
type Config struct {
	ServiceName string
	Environment string
}

// InvoiceMetrics counts invoice events
type InvoiceMetrics struct {
	registry *prometheus.Registry

	created         prometheus.Counter
	commitFailures  *prometheus.CounterVec
	tokenRejections *prometheus.CounterVec
	statusChanges   *prometheus.CounterVec
	deleted         prometheus.Counter
}

// NewInvoiceMetrics registers the invoice counters on a private registry
func NewInvoiceMetrics(cfg Config) (*InvoiceMetrics, error) {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "invoicing"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &InvoiceMetrics{
		registry: prometheus.NewRegistry(),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "invoicing_invoices_created_total",
			Help:        "Invoices committed.",
			ConstLabels: constLabels,
		}),
		commitFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "invoicing_commit_failures_total",
				Help:        "Invoice commits that did not produce an invoice.",
				ConstLabels: constLabels,
			},
			[]string{"kind"},
		),
		tokenRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "invoicing_token_rejections_total",
				Help:        "Action tokens refused at consumption.",
				ConstLabels: constLabels,
			},
			[]string{"purpose", "reason"},
		),
		statusChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "invoicing_status_changes_total",
				Help:        "Invoice status transitions by target status.",
				ConstLabels: constLabels,
			},
			[]string{"to"},
		),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "invoicing_invoices_deleted_total",
			Help:        "Invoices deleted.",
			ConstLabels: constLabels,
		}),
	}

	collectors := []prometheus.Collector{
		m.created,
		m.commitFailures,
		m.tokenRejections,
		m.statusChanges,
		m.deleted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return m, nil
}

// Subscribe hooks the counters into the event dispatcher
func (m *InvoiceMetrics) Subscribe(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeInvoiceCreated, "metrics", func(_ context.Context, _ *event.Event) error {
		m.created.Inc()
		return nil
	})
	d.SubscribeNamed(event.TypeCommitFailed, "metrics", func(_ context.Context, evt *event.Event) error {
		m.commitFailures.WithLabelValues(label(evt, "kind")).Inc()
		return nil
	})
	d.SubscribeNamed(event.TypeTokenRejected, "metrics", func(_ context.Context, evt *event.Event) error {
		m.tokenRejections.WithLabelValues(label(evt, "purpose"), label(evt, "reason")).Inc()
		return nil
	})
	d.SubscribeNamed(event.TypeInvoiceStatusChanged, "metrics", func(_ context.Context, evt *event.Event) error {
		m.statusChanges.WithLabelValues(label(evt, "to")).Inc()
		return nil
	})
	d.SubscribeNamed(event.TypeInvoiceDeleted, "metrics", func(_ context.Context, _ *event.Event) error {
		m.deleted.Inc()
		return nil
	})
}

// Handler serves the registry in the Prometheus exposition format
func (m *InvoiceMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func label(evt *event.Event, key string) string {
	if v, ok := evt.Payload[key].(string); ok && v != "" {
		return v
	}
	return "unknown"
}
