// Package telemetry is the root of the rocket telemetry acquisition module.
//
// The module acquires readings from a rocket sensor, validates them, keeps a
// bounded in-memory history, notifies observers of every accepted reading
// and persists the history as JSON and CSV documents.
//
// # Architecture
//
//	sensor.Mock --(Poller)--> processor.Processor --+--> history (pkg/buffer)
//	                                                |
//	                                                +--> callbacks: logging,
//	                                                     output/natspub,
//	                                                     output/mqtt,
//	                                                     output/websocket
//
//	storage.Codec <--- session.Session ---> metric.Server (/metrics, /health)
//
// # Packages
//
//   - reading: the Reading value, flight phases, JSON form and validation
//   - processor: ingestion queue, worker, bounded history and callbacks
//   - storage: JSON/CSV codec over a file store, schema-checked loading
//   - sensor: Sensor interface, mock rocket sensor and poller
//   - output: reading envelopes and the NATS, MQTT and WebSocket outputs
//   - natsclient: NATS connection with circuit breaker and metrics
//   - session: wires one acquisition run and its shutdown order
//   - config: file, .env and environment configuration
//   - logging: console and rotating file logging with event helpers
//   - metric, health: Prometheus registry, metrics server and health checks
//   - errors: classified errors (transient, invalid, fatal)
//   - pkg/buffer, pkg/queue, pkg/retry, pkg/timestamp: generic helpers
//
// The telemetryd command in cmd/telemetryd runs a session from the command
// line.
package telemetry
