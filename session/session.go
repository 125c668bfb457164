package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kevinbdx35/rocket-telemetry/config"
	"github.com/kevinbdx35/rocket-telemetry/errors"
	"github.com/kevinbdx35/rocket-telemetry/health"
	"github.com/kevinbdx35/rocket-telemetry/logging"
	"github.com/kevinbdx35/rocket-telemetry/metric"
	"github.com/kevinbdx35/rocket-telemetry/pkg/retry"
	"github.com/kevinbdx35/rocket-telemetry/processor"
	"github.com/kevinbdx35/rocket-telemetry/reading"
	"github.com/kevinbdx35/rocket-telemetry/sensor"
	"github.com/kevinbdx35/rocket-telemetry/storage"
)

// SystemName labels the aggregated health report.
const SystemName = "rocket-telemetry"

// Status represents the lifecycle state of a session
type Status int

// Possible session states
const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Info is a runtime summary of the session.
type Info struct {
	Session   string             `json:"session"`
	Status    string             `json:"status"`
	StartTime time.Time          `json:"start_time,omitempty"`
	Uptime    time.Duration      `json:"uptime"`
	Sensor    sensor.Status      `json:"sensor"`
	Poller    sensor.PollerStats `json:"poller"`
	Processor processor.Stats    `json:"processor"`
}

// Option configures a Session.
type Option func(*Session)

// WithSensor replaces the sensor selected by the configuration.
func WithSensor(s sensor.Sensor) Option {
	return func(sess *Session) {
		if s != nil {
			sess.sensor = s
		}
	}
}

// WithConnectRetry sets the retry policy used to connect the sensor.
func WithConnectRetry(cfg retry.Config) Option {
	return func(sess *Session) {
		sess.connectRetry = &cfg
	}
}

// WithClock sets the time source for artifact names and uptime.
func WithClock(now func() time.Time) Option {
	return func(sess *Session) {
		if now != nil {
			sess.now = now
		}
	}
}

// Session is one acquisition run.
type Session struct {
	cfg    *config.Config
	logs   *logging.Service
	logger *slog.Logger
	now    func() time.Time

	registry     *metric.MetricsRegistry
	monitor      *health.Monitor
	metricServer *metric.Server

	sensor       sensor.Sensor
	connectRetry *retry.Config
	poller       *sensor.Poller
	processor    *processor.Processor
	codec        *storage.Codec
	outputs      []output

	// Lifecycle management
	lifecycleMu sync.Mutex
	status      atomic.Value // Status
	startTime   time.Time
	cancel      context.CancelFunc
	pollDone    chan struct{}
	pollErr     error
}

// New builds every component described by cfg without starting anything.
func New(cfg *config.Config, logs *logging.Service, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Session", "New", "check config")
	}
	if logs == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Session", "New", "check logger")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:      cfg,
		logs:     logs,
		logger:   logs.Logger().With("component", "session"),
		now:      time.Now,
		registry: metric.NewMetricsRegistry(),
		monitor:  health.NewMonitor(),
		pollDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status.Store(StatusStopped)

	if s.sensor == nil {
		sn, err := newSensor(cfg.Sensor)
		if err != nil {
			return nil, err
		}
		s.sensor = sn
	}

	proc, err := processor.New(cfg.Processor.ToProcessor(),
		processor.WithLogger(logs.Logger()),
		processor.WithMetrics(s.registry),
		processor.WithClock(s.now))
	if err != nil {
		return nil, errors.Wrap(err, "Session", "New", "create processor")
	}
	s.processor = proc

	pollerOpts := []sensor.PollerOption{
		sensor.WithPollerLogger(logs.Logger()),
		sensor.WithPollerMetrics(s.registry.CoreMetrics()),
	}
	if s.connectRetry != nil {
		pollerOpts = append(pollerOpts, sensor.WithConnectRetry(*s.connectRetry))
	}
	s.poller = sensor.NewPoller(s.sensor, proc, pollerOpts...)

	s.codec = storage.NewCodec(storage.NewFileStore(cfg.Storage.Directory),
		storage.WithLogger(logs.Logger()),
		storage.WithMetrics(s.registry.CoreMetrics()),
		storage.WithClock(s.now))

	outputs, err := s.buildOutputs()
	if err != nil {
		return nil, err
	}
	s.outputs = outputs

	s.monitor.Register("processor", proc.Health)
	s.monitor.Register("sensor", s.poller.Health)
	for _, o := range s.outputs {
		s.monitor.Register(o.name, o.health)
	}

	if cfg.Metrics.Enabled {
		s.metricServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, s.registry,
			metric.WithHealthHandler(health.Handler(s.monitor, SystemName)))
	}
	return s, nil
}

func newSensor(cfg config.SensorConfig) (sensor.Sensor, error) {
	switch cfg.Kind {
	case config.SensorKindMock:
		var opts []sensor.MockOption
		if cfg.Seed != 0 {
			opts = append(opts, sensor.WithSeed(cfg.Seed))
		}
		return sensor.NewMock(cfg.Name, cfg.SampleRate, opts...), nil
	default:
		return nil, errors.WrapInvalid(fmt.Errorf("%w: unknown sensor kind %q", errors.ErrInvalidConfig, cfg.Kind),
			"Session", "New", "select sensor")
	}
}

// Start brings the outputs up, starts the processor and begins polling.
// Outputs that cannot reach their broker are logged and left degraded; the
// run continues so readings are still recorded locally.
func (s *Session) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.Status() != StatusStopped {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Session", "Start", "check state")
	}
	select {
	case <-s.pollDone:
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Session", "Start", "check state")
	default:
	}
	s.status.Store(StatusStarting)

	s.logs.SystemEvent("startup", map[string]any{
		"session":     s.logs.Session(),
		"sensor":      s.sensor.Name(),
		"sample_rate": s.sensor.SampleRate(),
		"buffer_size": s.cfg.Processor.BufferSize,
		"outputs":     s.outputNames(),
	})

	if s.metricServer != nil {
		go func() {
			if err := s.metricServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logs.ErrorEvent("metrics", "metrics server failed", map[string]any{"error": err.Error()})
			}
		}()
	}

	for _, o := range s.outputs {
		if o.start == nil {
			continue
		}
		if err := o.start(ctx); err != nil {
			s.logs.ErrorEvent("output", o.name+" unavailable", map[string]any{"error": err.Error()})
		}
	}

	s.processor.AddDataCallback(func(_ context.Context, r reading.Reading) error {
		s.logs.Reading(r)
		return nil
	})
	for _, o := range s.outputs {
		s.processor.AddDataCallback(o.callback)
	}

	if err := s.processor.Start(ctx); err != nil {
		s.status.Store(StatusStopped)
		return errors.Wrap(err, "Session", "Start", "start processor")
	}

	pollCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.startTime = s.now()

	go func() {
		defer close(s.pollDone)
		s.logs.SensorEvent("polling_started", s.sensor.Name(), map[string]any{
			"sample_rate": s.sensor.SampleRate(),
			"interval":    s.poller.Interval().String(),
		})
		err := s.poller.Run(pollCtx)
		if err != nil {
			s.pollErr = err
			s.logs.ErrorEvent("sensor", "polling ended", map[string]any{
				"sensor": s.sensor.Name(),
				"error":  err.Error(),
			})
			return
		}
		s.logs.SensorEvent("polling_stopped", s.sensor.Name(), map[string]any{
			"polls": s.poller.Stats().Polls,
		})
	}()

	s.status.Store(StatusRunning)
	return nil
}

// Done is closed when polling ends, either through Stop or because the
// sensor could not be reconnected.
func (s *Session) Done() <-chan struct{} {
	return s.pollDone
}

// Err returns why polling ended on its own, or nil. Valid after Done.
func (s *Session) Err() error {
	select {
	case <-s.pollDone:
		return s.pollErr
	default:
		return nil
	}
}

// Stop shuts the run down in reverse dependency order. It is safe to call
// more than once. Errors from each stage are joined; later stages run even
// when an earlier one fails.
func (s *Session) Stop(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.Status() != StatusRunning {
		return nil
	}
	s.status.Store(StatusStopping)
	defer s.status.Store(StatusStopped)

	var errs []error

	s.cancel()
	select {
	case <-s.pollDone:
	case <-ctx.Done():
		errs = append(errs, errors.Wrap(ctx.Err(), "Session", "Stop", "wait for poller"))
	}

	if err := s.processor.Stop(); err != nil {
		errs = append(errs, errors.Wrap(err, "Session", "Stop", "stop processor"))
	}

	if s.cfg.Storage.AutosaveOnStop {
		if _, _, err := s.save(ctx, true); err != nil {
			errs = append(errs, err)
		}
	}

	for i := len(s.outputs) - 1; i >= 0; i-- {
		o := s.outputs[i]
		if o.stop == nil {
			continue
		}
		if err := o.stop(ctx); err != nil {
			errs = append(errs, errors.Wrap(err, "Session", "Stop", "close "+o.name))
		}
	}

	if s.metricServer != nil {
		if err := s.metricServer.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	stats := s.processor.Stats()
	s.logs.SystemEvent("shutdown", map[string]any{
		"processed": stats.Processed,
		"rejected":  stats.Rejected,
		"uptime":    s.now().Sub(s.startTime).String(),
	})
	return errors.Join(errs...)
}

// Save writes the recorded readings as JSON and CSV using default names.
// A failed format does not prevent the other from being written; the paths
// of the artifacts that were written are returned with the joined error.
func (s *Session) Save(ctx context.Context) (jsonPath, csvPath string, err error) {
	return s.save(ctx, false)
}

func (s *Session) save(ctx context.Context, auto bool) (string, string, error) {
	readings := s.processor.All()
	if auto && len(readings) == 0 {
		return "", "", nil
	}

	// each format is attempted even when the other fails
	jsonPath, jsonErr := s.codec.SaveJSON(ctx, readings, "")
	if jsonErr != nil {
		s.logs.ErrorEvent("storage", "save json failed", map[string]any{"error": jsonErr.Error()})
	}
	csvPath, csvErr := s.codec.SaveCSV(ctx, readings, "")
	if csvErr != nil {
		s.logs.ErrorEvent("storage", "save csv failed", map[string]any{"error": csvErr.Error()})
	}
	if err := errors.Join(jsonErr, csvErr); err != nil {
		return jsonPath, csvPath, err
	}

	event := "data_saved"
	if auto {
		event = "autosave"
	}
	s.logs.SystemEvent(event, map[string]any{
		"count": len(readings),
		"json":  jsonPath,
		"csv":   csvPath,
	})
	return jsonPath, csvPath, nil
}

// Load reads a saved JSON document through the session's store.
func (s *Session) Load(ctx context.Context, name string) ([]reading.Reading, error) {
	return s.codec.LoadJSON(ctx, name)
}

// Clear discards every recorded reading.
func (s *Session) Clear() {
	n := len(s.processor.All())
	s.processor.Clear()
	s.logs.SystemEvent("data_cleared", map[string]any{"count": n})
}

// Readings returns a copy of the recorded history, oldest first.
func (s *Session) Readings() []reading.Reading {
	return s.processor.All()
}

// Processor exposes the pipeline, e.g. to register extra callbacks.
func (s *Session) Processor() *processor.Processor {
	return s.processor
}

// Registry returns the metrics registry shared by every component.
func (s *Session) Registry() *metric.MetricsRegistry {
	return s.registry
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	return s.status.Load().(Status)
}

// Health aggregates every registered component.
func (s *Session) Health() health.Status {
	return s.monitor.Check(SystemName)
}

// Info returns a runtime summary.
func (s *Session) Info() Info {
	info := Info{
		Session:   s.logs.Session(),
		Status:    s.Status().String(),
		Sensor:    s.sensor.Status(),
		Poller:    s.poller.Stats(),
		Processor: s.processor.Stats(),
	}
	if s.Status() == StatusRunning {
		s.lifecycleMu.Lock()
		info.StartTime = s.startTime
		s.lifecycleMu.Unlock()
		info.Uptime = s.now().Sub(info.StartTime)
	}
	return info
}
