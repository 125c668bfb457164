package sensor

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/kevinbdx35/rocket-telemetry/errors"
	"github.com/kevinbdx35/rocket-telemetry/reading"
)

// Launch site used for simulated GPS fixes.
const (
	LaunchLat = 45.5017
	LaunchLon = -73.5673
)

// Mock simulates a rocket flight: powered ascent for 5 s, coasting until
// 15 s, a steady descent until 30 s, then sitting on the ground. Flight time
// advances by one sample period per Read, not by wall-clock time.
type Mock struct {
	name string
	rate float64
	now  func() time.Time

	mu              sync.Mutex
	rng             *rand.Rand
	connected       bool
	flightTime      float64
	phase           reading.FlightPhase
	last            time.Time
	connectFailures int
}

// MockOption configures a Mock.
type MockOption func(*Mock)

// WithSeed makes the noise deterministic.
func WithSeed(seed int64) MockOption {
	return func(m *Mock) {
		m.rng = rand.New(rand.NewSource(seed))
	}
}

// WithClock sets the source of reading timestamps.
func WithClock(now func() time.Time) MockOption {
	return func(m *Mock) {
		if now != nil {
			m.now = now
		}
	}
}

// WithConnectFailures makes the first n Connect calls fail with a transient
// error, simulating a flaky link.
func WithConnectFailures(n int) MockOption {
	return func(m *Mock) {
		m.connectFailures = n
	}
}

// NewMock returns a disconnected simulated sensor. A non-positive rate
// selects DefaultSampleRate.
func NewMock(name string, rate float64, opts ...MockOption) *Mock {
	if name == "" {
		name = "Mock Rocket Sensor"
	}
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	m := &Mock{
		name:  name,
		rate:  rate,
		now:   time.Now,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		phase: reading.PhasePreLaunch,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect implements Sensor.
func (m *Mock) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.WrapTransient(err, "Mock", "Connect", "check context")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connectFailures > 0 {
		m.connectFailures--
		return errors.WrapTransient(fmt.Errorf("%w: simulated link failure", errors.ErrConnectionTimeout),
			"Mock", "Connect", "open link")
	}
	m.connected = true
	return nil
}

// Disconnect implements Sensor.
func (m *Mock) Disconnect() error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}

// Connected implements Sensor.
func (m *Mock) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SampleRate implements Sensor.
func (m *Mock) SampleRate() float64 { return m.rate }

// Name implements Sensor.
func (m *Mock) Name() string { return m.name }

// Phase returns the flight phase of the latest sample.
func (m *Mock) Phase() reading.FlightPhase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// FlightTime returns simulated seconds since launch.
func (m *Mock) FlightTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flightTime
}

// Status implements Sensor.
func (m *Mock) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{Name: m.name, Connected: m.connected, SampleRate: m.rate}
	if !m.last.IsZero() {
		t := m.last
		s.LastReadingTime = &t
	}
	return s
}

// Read implements Sensor. A disconnected mock reports nothing.
func (m *Mock) Read(ctx context.Context) (reading.Reading, bool, error) {
	if err := ctx.Err(); err != nil {
		return reading.Reading{}, false, errors.WrapTransient(err, "Mock", "Read", "check context")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return reading.Reading{}, false, nil
	}

	m.flightTime += 1.0 / m.rate
	t := m.flightTime
	altitude, velocity, phase := trajectory(t)
	m.phase = phase

	zHigh, zLow := 10.0, -10.0
	if phase == reading.PhasePoweredFlight {
		zLow, zHigh = -20, 50
	}

	r := reading.Reading{
		Timestamp: m.now(),
		Altitude:  altitude,
		Velocity:  velocity,
		Acceleration: reading.Vector3{
			X: m.uniform(-10, 10),
			Y: m.uniform(-10, 10),
			Z: m.uniform(zLow, zHigh),
		},
		Temperature: m.uniform(15, 25) - 0.006*altitude,
		Pressure:    BarometricPressure(altitude),
		Orientation: reading.Attitude{
			Roll:  m.uniform(-5, 5),
			Pitch: m.uniform(-10, 10),
			Yaw:   m.uniform(-5, 5),
		},
	}
	r = r.WithGPS(LaunchLat+m.uniform(-0.001, 0.001), LaunchLon+m.uniform(-0.001, 0.001))
	r = r.WithBattery(12.0 - 0.01*t)

	m.last = r.Timestamp
	return r, true, nil
}

func (m *Mock) uniform(lo, hi float64) float64 {
	return lo + m.rng.Float64()*(hi-lo)
}

// trajectory returns altitude (m), vertical velocity (m/s) and phase at t
// seconds after launch.
func trajectory(t float64) (float64, float64, reading.FlightPhase) {
	switch {
	case t < 5:
		return t * t * 20, t * 40, reading.PhasePoweredFlight
	case t < 15:
		tc := t - 5
		return 500 + 200*tc - 4.9*tc*tc, 200 - 9.8*tc, reading.PhaseCoasting
	case t < 30:
		td := t - 15
		return 1500 - 15*td, -15, reading.PhaseDescent
	default:
		return 0, 0, reading.PhaseLanded
	}
}

// BarometricPressure returns the standard-atmosphere pressure in Pa at the
// given altitude in meters.
func BarometricPressure(altitude float64) float64 {
	return 101325 * math.Pow(1-0.0065*altitude/288.15, 5.257)
}
