// Package sensor defines the capability the pipeline reads from and ships a
// simulated rocket sensor plus the poller that feeds a processor.
//
// A Sensor connects, reports its sample rate and yields one reading per Read.
// Read returns ok=false with a nil error when there is simply nothing to
// report, such as while disconnected. Poller drives a Sensor at its sample
// rate, pushes every reading into a Sink (a *processor.Processor in
// practice) and reconnects with backoff when the sensor drops out.
package sensor
