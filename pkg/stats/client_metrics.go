package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every internal metric.
const Namespace = "megatron"

const labelClient = "client"

// ClientMetrics counts the lines flowing through the clients of every plugin, labelled by client.
type ClientMetrics struct {
	Queued  *prometheus.CounterVec
	Dropped *prometheus.CounterVec
	Sent    *prometheus.CounterVec
	Errors  *prometheus.CounterVec
	Batches *prometheus.CounterVec

	Events *prometheus.CounterVec // kind (notifications/statistics)
}

// NewClientMetrics creates the metrics, without registering them.
func NewClientMetrics() *ClientMetrics {
	return &ClientMetrics{
		Queued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "lines_queued_total",
			Help:      "Lines accepted by a client for delivery.",
		}, []string{labelClient}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "lines_dropped_total",
			Help:      "Lines dropped because the client queue was full.",
		}, []string{labelClient}),
		Sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "lines_sent_total",
			Help:      "Lines handed to the transport without error.",
		}, []string{labelClient}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "send_errors_total",
			Help:      "Batches the transport failed to deliver.",
		}, []string{labelClient}),
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "batches_total",
			Help:      "Batches handed to the transport.",
		}, []string{labelClient}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_received_total",
			Help:      "Event bundles received from the event source.",
		}, []string{"kind"}),
	}
}

// Register registers every metric with reg.
func (m *ClientMetrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Queued, m.Dropped, m.Sent, m.Errors, m.Batches, m.Events} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// For returns the counters of one client.
func (m *ClientMetrics) For(client string) *Counters {
	return &Counters{
		Queued:  m.Queued.WithLabelValues(client),
		Dropped: m.Dropped.WithLabelValues(client),
		Sent:    m.Sent.WithLabelValues(client),
		Errors:  m.Errors.WithLabelValues(client),
		Batches: m.Batches.WithLabelValues(client),
	}
}

// Counters are the metrics of a single client.
type Counters struct {
	Queued  prometheus.Counter
	Dropped prometheus.Counter
	Sent    prometheus.Counter
	Errors  prometheus.Counter
	Batches prometheus.Counter
}

// NewCounters returns standalone counters, for clients whose metrics are not exported.
func NewCounters() *Counters {
	return NewClientMetrics().For("")
}
