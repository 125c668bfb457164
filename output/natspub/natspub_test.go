package natspub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinbdx35/rocket-telemetry/errors"
	"github.com/kevinbdx35/rocket-telemetry/metric"
	"github.com/kevinbdx35/rocket-telemetry/natsclient"
	"github.com/kevinbdx35/rocket-telemetry/output"
	"github.com/kevinbdx35/rocket-telemetry/processor"
	"github.com/kevinbdx35/rocket-telemetry/reading"
)

type message struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, message{subject: subject, data: append([]byte(nil), data...)})
	return nil
}

func (f *fakePublisher) messages() []message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message(nil), f.msgs...)
}

func testReading(alt float64) reading.Reading {
	return reading.Reading{
		Timestamp:   time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Altitude:    alt,
		Temperature: 20,
		Pressure:    100000,
	}
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, "telemetry.readings")
	assert.True(t, errors.IsInvalid(err))

	_, err = New(&fakePublisher{}, "")
	assert.True(t, errors.IsInvalid(err))
}

func TestCallbackPublishesEnvelope(t *testing.T) {
	pub := &fakePublisher{}
	reg := metric.NewMetricsRegistry()
	now := time.UnixMilli(1_777_000_000_000)
	out, err := New(pub, "telemetry.readings",
		WithSource("Mock Rocket Sensor"),
		WithMetrics(reg.CoreMetrics()),
		WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	assert.Equal(t, "telemetry.readings", out.Subject())

	require.NoError(t, out.Callback(context.Background(), testReading(42)))

	msgs := pub.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "telemetry.readings", msgs[0].subject)

	var env output.Envelope
	require.NoError(t, json.Unmarshal(msgs[0].data, &env))
	assert.Equal(t, "Mock Rocket Sensor", env.Source)
	assert.Equal(t, now.UnixMilli(), env.Timestamp)
	got, err := env.Reading()
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.Altitude)

	assert.Equal(t, int64(1), out.Published())
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.CoreMetrics().OutputPublished.WithLabelValues(Name)))
	assert.True(t, out.Health().IsHealthy())
}

func TestCallbackReportsPublishFailure(t *testing.T) {
	reg := metric.NewMetricsRegistry()
	pub := &fakePublisher{err: errors.WrapTransient(natsclient.ErrNotConnected, "Client", "Publish", "check connection")}
	out, err := New(pub, "telemetry.readings", WithMetrics(reg.CoreMetrics()))
	require.NoError(t, err)

	err = out.Callback(context.Background(), testReading(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, natsclient.ErrNotConnected)

	assert.Equal(t, int64(1), out.Failed())
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.CoreMetrics().OutputErrors.WithLabelValues(Name)))

	status := out.Health()
	assert.True(t, status.IsDegraded())
	assert.Contains(t, status.Message, "1 failed publishes")
}

func TestPublishesProcessedReadingsInOrder(t *testing.T) {
	pub := &fakePublisher{}
	out, err := New(pub, "telemetry.readings")
	require.NoError(t, err)

	proc, err := processor.New(processor.DefaultConfig())
	require.NoError(t, err)
	proc.AddDataCallback(out.Callback)
	require.NoError(t, proc.Start(context.Background()))

	for i := 1; i <= 5; i++ {
		require.True(t, proc.AddReading(testReading(float64(i))))
	}
	require.NoError(t, proc.Stop())

	msgs := pub.messages()
	require.Len(t, msgs, 5)
	for i, m := range msgs {
		var env output.Envelope
		require.NoError(t, json.Unmarshal(m.data, &env))
		r, err := env.Reading()
		require.NoError(t, err)
		assert.Equal(t, float64(i+1), r.Altitude)
	}
}
