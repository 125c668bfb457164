package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinbdx35/rocket-telemetry/errors"
	"github.com/kevinbdx35/rocket-telemetry/metric"
	"github.com/kevinbdx35/rocket-telemetry/output"
	"github.com/kevinbdx35/rocket-telemetry/reading"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Port = 0
	cfg.WriteTimeout = time.Second
	cfg.PingInterval = 50 * time.Millisecond
	cfg.PongWait = 5 * time.Second
	cfg.ClientBuffer = 16
	return cfg
}

func testReading(alt float64) reading.Reading {
	return reading.Reading{
		Timestamp:   time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Altitude:    alt,
		Temperature: 20,
		Pressure:    100000,
	}
}

// serve mounts the output on an httptest server and returns the ws:// URL.
func serve(t *testing.T, w *Output) string {
	t.Helper()
	srv := httptest.NewServer(w.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(func() { _ = w.Stop(2 * time.Second) })
	return "ws" + strings.TrimPrefix(srv.URL, "http") + w.cfg.Path
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) output.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env output.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative port", func(c *Config) { c.Port = -1 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"relative path", func(c *Config) { c.Path = "ws" }},
		{"zero write timeout", func(c *Config) { c.WriteTimeout = 0 }},
		{"zero ping interval", func(c *Config) { c.PingInterval = 0 }},
		{"pong wait below ping", func(c *Config) { c.PongWait = c.PingInterval }},
		{"zero client buffer", func(c *Config) { c.ClientBuffer = 0 }},
	}
	require.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)

			_, err = New(cfg)
			assert.Error(t, err)
		})
	}
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	w, err := New(testConfig(), WithSource("Mock Rocket Sensor"))
	require.NoError(t, err)
	url := serve(t, w)

	a := dial(t, url)
	b := dial(t, url)
	require.Eventually(t, func() bool { return w.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Callback(context.Background(), testReading(123)))

	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		assert.Equal(t, output.TypeReading, env.Type)
		assert.Equal(t, "Mock Rocket Sensor", env.Source)
		r, err := env.Reading()
		require.NoError(t, err)
		assert.Equal(t, 123.0, r.Altitude)
	}
}

func TestMessagesArriveInOrder(t *testing.T) {
	w, err := New(testConfig())
	require.NoError(t, err)
	conn := dial(t, serve(t, w))
	require.Eventually(t, func() bool { return w.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	for i := 1; i <= 10; i++ {
		require.NoError(t, w.Callback(context.Background(), testReading(float64(i))))
	}
	for i := 1; i <= 10; i++ {
		r, err := readEnvelope(t, conn).Reading()
		require.NoError(t, err)
		assert.Equal(t, float64(i), r.Altitude)
	}
}

func TestBroadcastWithoutClients(t *testing.T) {
	w, err := New(testConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, w.Broadcast([]byte(`{}`)))
	assert.NoError(t, w.Callback(context.Background(), testReading(1)))
}

func TestClientDisconnectIsRemoved(t *testing.T) {
	w, err := New(testConfig())
	require.NoError(t, err)
	conn := dial(t, serve(t, w))
	require.Eventually(t, func() bool { return w.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))
	_ = conn.Close()

	require.Eventually(t, func() bool { return w.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPlainHTTPRequestRejected(t *testing.T) {
	w, err := New(testConfig())
	require.NoError(t, err)
	srv := httptest.NewServer(w.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSlowClientDropsOldest(t *testing.T) {
	cfg := testConfig()
	cfg.ClientBuffer = 2
	reg := metric.NewMetricsRegistry()
	w, err := New(cfg, WithMetrics(reg))
	require.NoError(t, err)

	// no writer is attached, so the queue only fills
	c, err := w.newClient(nil)
	require.NoError(t, err)
	for _, msg := range []string{"a", "b", "c"} {
		assert.True(t, c.enqueue([]byte(msg)))
	}

	queued := c.outbox.Snapshot()
	require.Len(t, queued, 2)
	assert.Equal(t, "b", string(queued[0]))
	assert.Equal(t, "c", string(queued[1]))
	assert.Equal(t, int64(1), c.dropped.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(w.wsMetrics.messagesDropped))

	c.close(reasonShutdown)
	assert.False(t, c.enqueue([]byte("d")))
}

func TestStartStop(t *testing.T) {
	reg := metric.NewMetricsRegistry()
	w, err := New(testConfig(), WithMetrics(reg))
	require.NoError(t, err)

	assert.True(t, w.Health().IsUnhealthy())
	assert.Empty(t, w.Addr())

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.Running())
	err = w.Start(context.Background())
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)

	addr := w.Addr()
	require.NotEmpty(t, addr)
	port := addr[strings.LastIndex(addr, ":"):]
	conn := dial(t, "ws://127.0.0.1"+port+"/ws")
	require.Eventually(t, func() bool { return w.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(w.wsMetrics.clientsConnected))

	status := w.Health()
	assert.True(t, status.IsHealthy())
	assert.Contains(t, status.Message, "1 clients connected")

	require.NoError(t, w.Callback(context.Background(), testReading(7)))
	readEnvelope(t, conn)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.CoreMetrics().OutputPublished.WithLabelValues(Name)))

	require.NoError(t, w.Stop(2*time.Second))
	assert.False(t, w.Running())
	assert.Equal(t, 0, w.Clients())
	assert.True(t, w.Health().IsUnhealthy())
	assert.Equal(t, 1.0, testutil.ToFloat64(w.wsMetrics.disconnectionTotal.WithLabelValues(reasonShutdown)))

	// the client sees the connection go away
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)

	assert.NoError(t, w.Stop(time.Second))
}

func TestStartRejectsCancelledContext(t *testing.T) {
	w, err := New(testConfig())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, w.Start(ctx))
	assert.False(t, w.Running())
}

func TestDuplicateMetricsRegistrationFails(t *testing.T) {
	reg := metric.NewMetricsRegistry()
	_, err := New(testConfig(), WithMetrics(reg))
	require.NoError(t, err)
	_, err = New(testConfig(), WithMetrics(reg))
	assert.Error(t, err)
}
