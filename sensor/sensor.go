package sensor

import (
	"context"
	"time"

	"github.com/kevinbdx35/rocket-telemetry/reading"
)

// Sensor produces readings on demand.
type Sensor interface {
	// Connect opens the sensor. Connecting a connected sensor is a no-op.
	Connect(ctx context.Context) error
	// Disconnect closes the sensor. Disconnecting twice is a no-op.
	Disconnect() error
	// Read returns the next sample. ok is false, with a nil error, when the
	// sensor has nothing to report.
	Read(ctx context.Context) (r reading.Reading, ok bool, err error)
	Connected() bool
	// SampleRate is the nominal number of samples per second.
	SampleRate() float64
	Name() string
	Status() Status
}

// Status describes a sensor for diagnostics.
type Status struct {
	Name            string     `json:"name"`
	Connected       bool       `json:"connected"`
	SampleRate      float64    `json:"sample_rate"`
	LastReadingTime *time.Time `json:"last_reading_time"`
}

// Interval converts a sample rate into the time between samples. Rates at or
// below zero fall back to DefaultSampleRate.
func Interval(rate float64) time.Duration {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	return time.Duration(float64(time.Second) / rate)
}

// DefaultSampleRate is used when a sensor is configured without a rate.
const DefaultSampleRate = 10.0
