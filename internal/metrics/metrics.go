// Package metrics exposes Prometheus instrumentation for the ledger and its RPC surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "splitledger"

// Metrics holds every collector, registered on its own registry so tests
// and multiple servers in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	BillsCreated       prometheus.Counter
	BillsUpdated       prometheus.Counter
	BillsCompleted     prometheus.Counter
	BillsDeleted       prometheus.Counter
	PaymentsRegistered prometheus.Counter
	AmountPaid         prometheus.Counter
	GroupsCreated      prometheus.Counter
	GroupsDeleted      prometheus.Counter
	PublishFailures    prometheus.Counter

	RPCRequests *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}

	m := &Metrics{
		registry:           prometheus.NewRegistry(),
		BillsCreated:       counter("bills_created_total", "Bills created."),
		BillsUpdated:       counter("bills_updated_total", "Bill edits stored."),
		BillsCompleted:     counter("bills_completed_total", "Bills moved to completed."),
		BillsDeleted:       counter("bills_deleted_total", "Bills deleted, with their payments."),
		PaymentsRegistered: counter("payments_registered_total", "Payments recorded."),
		AmountPaid:         counter("payment_amount_total", "Sum of all recorded payment amounts."),
		GroupsCreated:      counter("groups_created_total", "Groups created."),
		GroupsDeleted:      counter("groups_deleted_total", "Groups deleted."),
		PublishFailures:    counter("event_publish_failures_total", "Domain events that could not be published."),
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.BillsCreated,
		m.BillsUpdated,
		m.BillsCompleted,
		m.BillsDeleted,
		m.PaymentsRegistered,
		m.AmountPaid,
		m.GroupsCreated,
		m.GroupsDeleted,
		m.PublishFailures,
		m.RPCRequests,
		m.RPCDuration,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
