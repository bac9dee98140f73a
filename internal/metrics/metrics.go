package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tcprelay"

// Relay groups the relay's collectors on a private registry.
// A nil *Relay is valid and records nothing.
type Relay struct {
	registry *prometheus.Registry

	accepted     prometheus.Counter
	authFailures *prometheus.CounterVec
	clients      prometheus.Gauge
	routed       *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	bytesIn      prometheus.Counter
	bytesOut     prometheus.Counter
}

// New registers all relay collectors plus the Go runtime collectors.
func New() *Relay {
	m := &Relay{
		registry: prometheus.NewRegistry(),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "TCP connections accepted by the listener.",
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Handshakes rejected, by reason.",
		}, []string{"reason"}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clients_active",
			Help:      "Authenticated clients currently registered.",
		}),
		routed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_routed_total",
			Help:      "Inbound frames relayed, by payload kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Frames dropped instead of relayed, by reason.",
		}, []string{"reason"}),
		bytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_bytes_total",
			Help:      "Payload bytes read from clients.",
		}),
		bytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_bytes_total",
			Help:      "Payload bytes written to clients.",
		}),
	}

	m.registry.MustRegister(
		m.accepted,
		m.authFailures,
		m.clients,
		m.routed,
		m.dropped,
		m.bytesIn,
		m.bytesOut,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Relay) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry for tests and custom exporters.
func (m *Relay) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

func (m *Relay) ConnectionAccepted() {
	if m != nil {
		m.accepted.Inc()
	}
}

func (m *Relay) AuthFailed(reason string) {
	if m != nil {
		m.authFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Relay) SetClients(n int) {
	if m != nil {
		m.clients.Set(float64(n))
	}
}

func (m *Relay) FrameRouted(kind string) {
	if m != nil {
		m.routed.WithLabelValues(kind).Inc()
	}
}

func (m *Relay) FrameDropped(reason string) {
	if m != nil {
		m.dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Relay) BytesIn(n int) {
	if m != nil {
		m.bytesIn.Add(float64(n))
	}
}

func (m *Relay) BytesOut(n int) {
	if m != nil {
		m.bytesOut.Add(float64(n))
	}
}
