package metric

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinbdx35/rocket-telemetry/errors"
)

func gatheredNames(t *testing.T, r *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()
	require.NotNil(t, registry)
	require.NotNil(t, registry.CoreMetrics())

	// vectors only show up once a label set exists
	registry.CoreMetrics().RecordCallback(OutcomeOK)
	registry.CoreMetrics().RecordProcessorRunning(true)

	names := gatheredNames(t, registry)
	assert.True(t, names["telemetry_processor_readings_added_total"])
	assert.True(t, names["telemetry_processor_callback_results_total"])
	assert.True(t, names["telemetry_processor_running"])
	assert.True(t, names["go_goroutines"])
}

func TestMetricsRegistry_Register(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "test"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "test"})
	hist := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_hist", Help: "test"})
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_vec", Help: "test"}, []string{"k"})

	require.NoError(t, registry.RegisterCounter("svc", "counter", counter))
	require.NoError(t, registry.RegisterGauge("svc", "gauge", gauge))
	require.NoError(t, registry.RegisterHistogram("svc", "hist", hist))
	require.NoError(t, registry.RegisterCounterVec("svc", "vec", vec))

	counter.Inc()
	gauge.Set(3)
	hist.Observe(1)
	vec.WithLabelValues("a").Inc()

	names := gatheredNames(t, registry)
	for _, n := range []string{"test_counter", "test_gauge", "test_hist", "test_vec"} {
		assert.True(t, names[n], n)
	}
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "test"})
	require.NoError(t, registry.RegisterCounter("svc", "dup", first))

	// same key
	err := registry.RegisterCounter("svc", "dup", first)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Contains(t, err.Error(), "duplicate metric registration")

	// different key, same prometheus descriptor
	second := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "test"})
	err = registry.RegisterCounter("other", "dup", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "temp_gauge", Help: "test"})

	require.NoError(t, registry.RegisterGauge("svc", "temp", gauge))
	assert.True(t, registry.Unregister("svc", "temp"))
	assert.False(t, registry.Unregister("svc", "temp"))

	// registering again after removal is allowed
	require.NoError(t, registry.RegisterGauge("svc", "temp", gauge))
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_%d", i),
				Help: "test",
			})
			errs <- registry.RegisterCounter("svc", fmt.Sprintf("c%d", i), c)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestMetricsRegistrar_Interface(t *testing.T) {
	var _ MetricsRegistrar = NewMetricsRegistry()
}

func TestCoreMetrics_RecordMethods(t *testing.T) {
	m := NewMetricsRegistry().CoreMetrics()

	m.RecordReadingAdded(true)
	m.RecordReadingAdded(true)
	m.RecordReadingAdded(false)
	m.RecordReadingProcessed()
	m.RecordCallback(OutcomePanic)
	m.RecordCallbackDuration(2 * time.Millisecond)
	m.RecordQueueDepth(7)
	m.RecordSensorConnected(true)
	m.RecordSensorReadError()
	m.RecordPublished("mqtt")
	m.RecordOutputError("nats")
	m.RecordStorage("json", "save", nil)
	m.RecordStorage("json", "load", fmt.Errorf("boom"))
	m.RecordNATSStatus(true)
	m.RecordNATSReconnect()
	m.RecordCircuitBreakerState(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReadingsAdded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReadingsRejected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReadingsProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallbackResults.WithLabelValues(OutcomePanic)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.QueueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SensorConnected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutputPublished.WithLabelValues("mqtt")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutputErrors.WithLabelValues("nats")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageOperations.WithLabelValues("json", "load", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NATSCircuitBreaker))
}

func TestCoreMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordReadingAdded(true)
		m.RecordCallback(OutcomeError)
		m.RecordQueueDepth(1)
		m.RecordStorage("csv", "save", nil)
		m.RecordNATSStatus(false)
	})

	var r *MetricsRegistry
	assert.Nil(t, r.CoreMetrics())
}

func TestServerHandler(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordReadingAdded(true)

	srv := NewServer(0, "", registry)
	assert.Equal(t, "http://localhost:9090/metrics", srv.Address())

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "telemetry_processor_readings_added_total 1")

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerCustomHealth(t *testing.T) {
	srv := NewServer(9100, "/m", NewMetricsRegistry(), WithHealthHandler(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServerStartWithoutRegistry(t *testing.T) {
	err := NewServer(9101, "", nil).Start()
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestServerStopIdempotent(t *testing.T) {
	srv := NewServer(9102, "", NewMetricsRegistry())
	assert.NoError(t, srv.Stop())
	assert.NoError(t, srv.Stop())
}
