// Package health reports whether the pipeline's parts are working.
//
// Each part (processor, sensor poller, outputs) exposes a Status. A Monitor
// collects named checkers and folds their results with Aggregate: any
// unhealthy part makes the whole unhealthy, otherwise any degraded part
// makes it degraded. Handler serves the aggregate as JSON, answering 503
// when the system is unhealthy.
//
//	mon := health.NewMonitor()
//	mon.Register("processor", proc.Health)
//	mon.Register("sensor", poller.Health)
//	http.Handle("/health", health.Handler(mon, "telemetryd"))
package health
