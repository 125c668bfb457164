package websocket

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kevinbdx35/rocket-telemetry/metric"
)

const subsystem = "websocket"

// Metrics holds Prometheus metrics for the WebSocket output.
type Metrics struct {
	clientsConnected   prometheus.Gauge
	connectionTotal    prometheus.Counter
	disconnectionTotal *prometheus.CounterVec
	bytesSent          prometheus.Counter
	messagesDropped    prometheus.Counter
	messageSizeBytes   prometheus.Histogram
}

// newMetrics creates and registers the output metrics. A nil registry yields
// nil metrics; every record method tolerates that.
func newMetrics(registry *metric.MetricsRegistry) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &Metrics{
		clientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: subsystem,
			Name:      "clients_connected",
			Help:      "Number of currently connected clients",
		}),
		connectionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: subsystem,
			Name:      "client_connections_total",
			Help:      "Total client connections (including disconnected)",
		}),
		disconnectionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: subsystem,
			Name:      "client_disconnections_total",
			Help:      "Total client disconnections",
		}, []string{"reason"}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: subsystem,
			Name:      "bytes_sent_total",
			Help:      "Total bytes written to clients",
		}),
		messagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: subsystem,
			Name:      "messages_dropped_total",
			Help:      "Messages evicted from a slow client's queue",
		}),
		messageSizeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: subsystem,
			Name:      "message_size_bytes",
			Help:      "Size distribution of broadcast messages",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 5000},
		}),
	}

	if err := registry.RegisterGauge(subsystem, "clients_connected", m.clientsConnected); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(subsystem, "client_connections_total", m.connectionTotal); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec(subsystem, "client_disconnections_total", m.disconnectionTotal); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(subsystem, "bytes_sent_total", m.bytesSent); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(subsystem, "messages_dropped_total", m.messagesDropped); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogram(subsystem, "message_size_bytes", m.messageSizeBytes); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) recordConnect(clients int) {
	if m == nil {
		return
	}
	m.connectionTotal.Inc()
	m.clientsConnected.Set(float64(clients))
}

func (m *Metrics) recordDisconnect(reason string, clients int) {
	if m == nil {
		return
	}
	m.disconnectionTotal.WithLabelValues(reason).Inc()
	m.clientsConnected.Set(float64(clients))
}

func (m *Metrics) recordSent(n int) {
	if m == nil {
		return
	}
	m.bytesSent.Add(float64(n))
}

func (m *Metrics) recordDrop() {
	if m == nil {
		return
	}
	m.messagesDropped.Inc()
}

func (m *Metrics) recordBroadcast(size int) {
	if m == nil {
		return
	}
	m.messageSizeBytes.Observe(float64(size))
}
