package sensor

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinbdx35/rocket-telemetry/errors"
	"github.com/kevinbdx35/rocket-telemetry/reading"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestMock(rate float64, opts ...MockOption) *Mock {
	opts = append([]MockOption{WithSeed(42), WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewMock("", rate, opts...)
}

func TestNewMockDefaults(t *testing.T) {
	m := NewMock("", 0)
	assert.Equal(t, "Mock Rocket Sensor", m.Name())
	assert.Equal(t, DefaultSampleRate, m.SampleRate())
	assert.False(t, m.Connected())
	assert.Equal(t, reading.PhasePreLaunch, m.Phase())

	st := m.Status()
	assert.Nil(t, st.LastReadingTime)
	assert.False(t, st.Connected)
}

func TestMockReadWhileDisconnected(t *testing.T) {
	m := newTestMock(10)

	r, ok, err := m.Read(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, reading.Reading{}, r)
	assert.Zero(t, m.FlightTime())
}

func TestMockConnectDisconnect(t *testing.T) {
	m := newTestMock(10)
	ctx := context.Background()

	require.NoError(t, m.Connect(ctx))
	require.NoError(t, m.Connect(ctx))
	assert.True(t, m.Connected())

	require.NoError(t, m.Disconnect())
	require.NoError(t, m.Disconnect())
	assert.False(t, m.Connected())
}

func TestMockConnectFailures(t *testing.T) {
	m := newTestMock(10, WithConnectFailures(2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := m.Connect(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsTransient(err))
		assert.False(t, m.Connected())
	}
	require.NoError(t, m.Connect(ctx))
	assert.True(t, m.Connected())
}

func TestMockReadCancelledContext(t *testing.T) {
	m := newTestMock(10)
	require.NoError(t, m.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := m.Read(ctx)
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockTrajectory(t *testing.T) {
	// At 1 Hz flight time advances in whole seconds.
	m := newTestMock(1)
	require.NoError(t, m.Connect(context.Background()))

	want := map[int]struct {
		altitude float64
		velocity float64
		phase    reading.FlightPhase
	}{
		1:  {20, 40, reading.PhasePoweredFlight},
		4:  {320, 160, reading.PhasePoweredFlight},
		5:  {500, 200, reading.PhaseCoasting},
		10: {1377.5, 151, reading.PhaseCoasting},
		15: {1500, -15, reading.PhaseDescent},
		20: {1425, -15, reading.PhaseDescent},
		30: {0, 0, reading.PhaseLanded},
		31: {0, 0, reading.PhaseLanded},
	}

	for second := 1; second <= 31; second++ {
		r, ok, err := m.Read(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, reading.Validate(r), "second %d produced an invalid reading", second)

		w, check := want[second]
		if !check {
			continue
		}
		assert.InDelta(t, w.altitude, r.Altitude, 1e-9, "altitude at %ds", second)
		assert.InDelta(t, w.velocity, r.Velocity, 1e-9, "velocity at %ds", second)
		assert.Equal(t, w.phase, m.Phase(), "phase at %ds", second)
	}
	assert.InDelta(t, 31.0, m.FlightTime(), 1e-9)
}

func TestMockReadingChannels(t *testing.T) {
	m := newTestMock(1)
	require.NoError(t, m.Connect(context.Background()))

	r, ok, err := m.Read(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, fixedNow, r.Timestamp)
	assert.InDelta(t, 0, r.Acceleration.X, 10)
	assert.InDelta(t, 0, r.Acceleration.Y, 10)
	assert.GreaterOrEqual(t, r.Acceleration.Z, -20.0)
	assert.LessOrEqual(t, r.Acceleration.Z, 50.0)

	// altitude 20 m lowers the 15..25 °C base by 0.12
	assert.GreaterOrEqual(t, r.Temperature, 15-0.12)
	assert.LessOrEqual(t, r.Temperature, 25-0.12)
	assert.InDelta(t, BarometricPressure(20), r.Pressure, 1e-9)

	assert.InDelta(t, 0, r.Orientation.Roll, 5)
	assert.InDelta(t, 0, r.Orientation.Pitch, 10)
	assert.InDelta(t, 0, r.Orientation.Yaw, 5)

	require.True(t, r.HasGPS())
	assert.InDelta(t, LaunchLat, r.GPS.Lat, 0.001)
	assert.InDelta(t, LaunchLon, r.GPS.Lon, 0.001)
	require.True(t, r.HasBattery())
	assert.InDelta(t, 11.99, *r.BatteryVoltage, 1e-9)

	st := m.Status()
	require.NotNil(t, st.LastReadingTime)
	assert.Equal(t, fixedNow, *st.LastReadingTime)
	assert.True(t, st.Connected)
	assert.Equal(t, 1.0, st.SampleRate)
}

func TestMockSeedIsDeterministic(t *testing.T) {
	a := newTestMock(10)
	b := newTestMock(10)
	ctx := context.Background()
	require.NoError(t, a.Connect(ctx))
	require.NoError(t, b.Connect(ctx))

	for i := 0; i < 20; i++ {
		ra, _, err := a.Read(ctx)
		require.NoError(t, err)
		rb, _, err := b.Read(ctx)
		require.NoError(t, err)
		assert.True(t, ra.Equal(rb), "read %d diverged", i)
	}
}

func TestBarometricPressure(t *testing.T) {
	assert.InDelta(t, 101325, BarometricPressure(0), 1e-9)
	assert.InDelta(t, 89872.3, BarometricPressure(1000), 0.5)
	assert.True(t, BarometricPressure(500) < BarometricPressure(0))
	assert.False(t, math.IsNaN(BarometricPressure(1500)))
}

func TestInterval(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, Interval(10))
	assert.Equal(t, time.Second, Interval(1))
	assert.Equal(t, 100*time.Millisecond, Interval(0))
	assert.Equal(t, 100*time.Millisecond, Interval(-3))
}
