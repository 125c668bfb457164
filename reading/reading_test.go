package reading

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Reading {
	return Reading{
		Timestamp:    time.Date(2026, 10, 19, 12, 0, 0, 123456789, time.UTC),
		Altitude:     1000.0,
		Velocity:     50.0,
		Acceleration: Vector3{X: 1.0, Y: 2.0, Z: 9.8},
		Temperature:  20.0,
		Pressure:     101325.0,
		Orientation:  Attitude{Roll: 0.0, Pitch: 5.0, Yaw: -2.0},
	}
}

func TestReading_Optionals(t *testing.T) {
	r := sample()
	assert.False(t, r.HasGPS())
	assert.False(t, r.HasBattery())

	full := r.WithGPS(45.5017, -73.5673).WithBattery(12.0)
	require.True(t, full.HasGPS())
	require.True(t, full.HasBattery())
	assert.Equal(t, 45.5017, full.GPS.Lat)
	assert.Equal(t, -73.5673, full.GPS.Lon)
	assert.Equal(t, 12.0, *full.BatteryVoltage)

	// the original is untouched
	assert.False(t, r.HasGPS())
}

func TestReading_ZeroBatteryIsPresent(t *testing.T) {
	r := sample().WithBattery(0)
	assert.True(t, r.HasBattery())
	assert.False(t, r.Equal(sample()))
}

func TestReading_Clone(t *testing.T) {
	r := sample().WithGPS(1, 2).WithBattery(3)
	c := r.Clone()
	require.True(t, r.Equal(c))

	c.GPS.Lat = 99
	*c.BatteryVoltage = 99
	assert.Equal(t, 1.0, r.GPS.Lat)
	assert.Equal(t, 3.0, *r.BatteryVoltage)
}

func TestReading_Equal(t *testing.T) {
	base := sample().WithGPS(1, 2).WithBattery(3)

	tests := []struct {
		name   string
		mutate func(*Reading)
		equal  bool
	}{
		{"identical", func(*Reading) {}, true},
		{"same instant other zone", func(r *Reading) { r.Timestamp = r.Timestamp.In(time.FixedZone("X", 3600)) }, true},
		{"timestamp", func(r *Reading) { r.Timestamp = r.Timestamp.Add(time.Nanosecond) }, false},
		{"altitude", func(r *Reading) { r.Altitude++ }, false},
		{"acceleration z", func(r *Reading) { r.Acceleration.Z = 0 }, false},
		{"orientation yaw", func(r *Reading) { r.Orientation.Yaw = 1 }, false},
		{"gps dropped", func(r *Reading) { r.GPS = nil }, false},
		{"gps moved", func(r *Reading) { r.GPS = &GPS{Lat: 1, Lon: 2.5} }, false},
		{"battery dropped", func(r *Reading) { r.BatteryVoltage = nil }, false},
		{"nan against number", func(r *Reading) { r.Velocity = math.NaN() }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			other := base.Clone()
			tc.mutate(&other)
			assert.Equal(t, tc.equal, base.Equal(other))
		})
	}

	a, b := sample(), sample()
	a.Velocity, b.Velocity = math.NaN(), math.NaN()
	assert.True(t, a.Equal(b))
}

func TestFlightPhase(t *testing.T) {
	labels := []string{"pre_launch", "powered_flight", "coasting", "apogee", "descent", "recovery", "landed"}
	for i, label := range labels {
		p := FlightPhase(i)
		assert.Equal(t, label, p.String())

		parsed, err := ParseFlightPhase(label)
		require.NoError(t, err)
		assert.Equal(t, p, parsed)

		text, err := p.MarshalText()
		require.NoError(t, err)
		var back FlightPhase
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, p, back)
	}

	assert.Equal(t, "unknown", FlightPhase(42).String())
	_, err := ParseFlightPhase("orbit")
	assert.Error(t, err)
	_, err = FlightPhase(-1).MarshalText()
	assert.Error(t, err)
}
