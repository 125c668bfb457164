package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric exported by the pipeline.
const Namespace = "telemetry"

// Callback outcomes used as the "outcome" label.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomePanic = "panic"
)

// Metrics contains the core pipeline metrics
type Metrics struct {
	// Processor
	ReadingsAdded     prometheus.Counter
	ReadingsRejected  prometheus.Counter
	ReadingsProcessed prometheus.Counter
	CallbackResults   *prometheus.CounterVec
	CallbackDuration  prometheus.Histogram
	QueueDepth        prometheus.Gauge
	ProcessorRunning  prometheus.Gauge

	// Sensor
	SensorConnected  prometheus.Gauge
	SensorReadErrors prometheus.Counter

	// Outputs and storage
	OutputPublished   *prometheus.CounterVec
	OutputErrors      *prometheus.CounterVec
	StorageOperations *prometheus.CounterVec

	// NATS
	NATSConnected      prometheus.Gauge
	NATSReconnects     prometheus.Counter
	NATSCircuitBreaker prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all core metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ReadingsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "processor",
			Name:      "readings_added_total",
			Help:      "Total number of readings accepted into the processing queue",
		}),
		ReadingsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "processor",
			Name:      "readings_rejected_total",
			Help:      "Total number of readings refused because the processor was not running",
		}),
		ReadingsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "processor",
			Name:      "readings_processed_total",
			Help:      "Total number of readings moved from the queue into history",
		}),
		CallbackResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "processor",
			Name:      "callback_results_total",
			Help:      "Data callback invocations by outcome (ok, error, panic)",
		}, []string{"outcome"}),
		CallbackDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "processor",
			Name:      "callback_duration_seconds",
			Help:      "Time spent running all data callbacks for one reading",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "processor",
			Name:      "queue_depth",
			Help:      "Readings waiting for the processing worker",
		}),
		ProcessorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "processor",
			Name:      "running",
			Help:      "Processor state (0=idle, 1=running)",
		}),

		SensorConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "sensor",
			Name:      "connected",
			Help:      "Sensor connection status (0=disconnected, 1=connected)",
		}),
		SensorReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "sensor",
			Name:      "read_errors_total",
			Help:      "Total number of failed sensor reads",
		}),

		OutputPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "output",
			Name:      "published_total",
			Help:      "Readings delivered per output",
		}, []string{"output"}),
		OutputErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "output",
			Name:      "errors_total",
			Help:      "Delivery failures per output",
		}, []string{"output"}),
		StorageOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Storage codec operations by format, operation and status",
		}, []string{"format", "operation", "status"}),

		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "nats",
			Name:      "connected",
			Help:      "NATS connection status (0=disconnected, 1=connected)",
		}),
		NATSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "nats",
			Name:      "reconnects_total",
			Help:      "Total number of NATS reconnections",
		}),
		NATSCircuitBreaker: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "nats",
			Name:      "circuit_breaker",
			Help:      "NATS circuit breaker status (0=closed, 1=open, 2=half-open)",
		}),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.ReadingsAdded,
		c.ReadingsRejected,
		c.ReadingsProcessed,
		c.CallbackResults,
		c.CallbackDuration,
		c.QueueDepth,
		c.ProcessorRunning,
		c.SensorConnected,
		c.SensorReadErrors,
		c.OutputPublished,
		c.OutputErrors,
		c.StorageOperations,
		c.NATSConnected,
		c.NATSReconnects,
		c.NATSCircuitBreaker,
	}
}

// RecordReadingAdded counts an accepted or rejected AddReading call.
func (c *Metrics) RecordReadingAdded(accepted bool) {
	if c == nil {
		return
	}
	if accepted {
		c.ReadingsAdded.Inc()
		return
	}
	c.ReadingsRejected.Inc()
}

// RecordReadingProcessed counts a reading taken off the queue.
func (c *Metrics) RecordReadingProcessed() {
	if c == nil {
		return
	}
	c.ReadingsProcessed.Inc()
}

// RecordCallback counts one callback outcome.
func (c *Metrics) RecordCallback(outcome string) {
	if c == nil {
		return
	}
	c.CallbackResults.WithLabelValues(outcome).Inc()
}

// RecordCallbackDuration observes the fan-out time for one reading.
func (c *Metrics) RecordCallbackDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.CallbackDuration.Observe(d.Seconds())
}

// RecordQueueDepth sets the pending queue length.
func (c *Metrics) RecordQueueDepth(n int) {
	if c == nil {
		return
	}
	c.QueueDepth.Set(float64(n))
}

// RecordProcessorRunning updates the processor state gauge.
func (c *Metrics) RecordProcessorRunning(running bool) {
	if c == nil {
		return
	}
	c.ProcessorRunning.Set(boolValue(running))
}

// RecordSensorConnected updates the sensor connection gauge.
func (c *Metrics) RecordSensorConnected(connected bool) {
	if c == nil {
		return
	}
	c.SensorConnected.Set(boolValue(connected))
}

// RecordSensorReadError counts a failed sensor read.
func (c *Metrics) RecordSensorReadError() {
	if c == nil {
		return
	}
	c.SensorReadErrors.Inc()
}

// RecordPublished counts a delivery through the named output.
func (c *Metrics) RecordPublished(output string) {
	if c == nil {
		return
	}
	c.OutputPublished.WithLabelValues(output).Inc()
}

// RecordOutputError counts a failed delivery through the named output.
func (c *Metrics) RecordOutputError(output string) {
	if c == nil {
		return
	}
	c.OutputErrors.WithLabelValues(output).Inc()
}

// RecordStorage counts a storage codec operation.
func (c *Metrics) RecordStorage(format, operation string, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.StorageOperations.WithLabelValues(format, operation, status).Inc()
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	if c == nil {
		return
	}
	c.NATSConnected.Set(boolValue(connected))
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	if c == nil {
		return
	}
	c.NATSReconnects.Inc()
}

// RecordCircuitBreakerState updates circuit breaker status
func (c *Metrics) RecordCircuitBreakerState(state int) {
	if c == nil {
		return
	}
	c.NATSCircuitBreaker.Set(float64(state))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
