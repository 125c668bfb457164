// Package metric provides Prometheus metrics for the telemetry pipeline and
// the HTTP server that exposes them.
//
// NewMetricsRegistry creates a private Prometheus registry pre-loaded with the
// core pipeline metrics (readings ingested and processed, callback outcomes,
// queue depth, sensor and output state) plus the Go runtime collectors.
// Components that need extra series register them through the
// MetricsRegistrar interface; registrations are keyed by component and metric
// name so a second registration of the same key is rejected.
//
// All Record methods on *Metrics are safe to call on a nil receiver, so
// components can take an optional *Metrics without guarding every call.
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry,
//	    metric.WithHealthHandler(health.Handler(mon, "telemetryd")))
//	go func() { _ = server.Start() }()
//	defer server.Stop()
package metric
