package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kevinbdx35/rocket-telemetry/errors"
	"github.com/kevinbdx35/rocket-telemetry/health"
	"github.com/kevinbdx35/rocket-telemetry/metric"
	"github.com/kevinbdx35/rocket-telemetry/pkg/retry"
	"github.com/kevinbdx35/rocket-telemetry/reading"
)

const pollerName = "sensor-poller"

// Sink accepts readings. *processor.Processor satisfies it.
type Sink interface {
	AddReading(r reading.Reading) bool
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollerLogger sets the logger. Defaults to slog.Default().
func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPollerMetrics records connection state and read errors.
func WithPollerMetrics(m *metric.Metrics) PollerOption {
	return func(p *Poller) {
		p.metrics = m
	}
}

// WithConnectRetry overrides the backoff used to (re)connect the sensor.
func WithConnectRetry(cfg retry.Config) PollerOption {
	return func(p *Poller) {
		p.retry = cfg
	}
}

// WithInterval overrides the interval derived from the sensor sample rate.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// PollerStats counts poll outcomes.
type PollerStats struct {
	Polls      int64 `json:"polls"`
	Accepted   int64 `json:"accepted"`
	Rejected   int64 `json:"rejected"`
	Empty      int64 `json:"empty"`
	ReadErrors int64 `json:"read_errors"`
	Reconnects int64 `json:"reconnects"`
}

// Poller reads a Sensor at its sample rate and pushes readings into a Sink.
type Poller struct {
	sensor   Sensor
	sink     Sink
	logger   *slog.Logger
	metrics  *metric.Metrics
	retry    retry.Config
	interval time.Duration

	running atomic.Bool

	polls      atomic.Int64
	accepted   atomic.Int64
	rejected   atomic.Int64
	empty      atomic.Int64
	readErrors atomic.Int64
	reconnects atomic.Int64

	errMu   sync.Mutex
	lastErr error
}

// NewPoller binds a sensor to a sink.
func NewPoller(s Sensor, sink Sink, opts ...PollerOption) *Poller {
	p := &Poller{
		sensor:   s,
		sink:     sink,
		logger:   slog.Default(),
		retry:    retry.Quick(),
		interval: Interval(s.SampleRate()),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", pollerName, "sensor", s.Name())
	return p
}

// Run connects the sensor and polls until ctx is cancelled. It disconnects
// the sensor before returning. A cancelled context is a clean exit and
// returns nil; failing to connect returns the connect error.
func (p *Poller) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Poller", "Run", "start polling")
	}
	defer p.running.Store(false)

	if err := p.connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer p.disconnect()

	p.logger.Info("Sensor polling started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Sensor polling stopped", "polls", p.polls.Load())
			return nil
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// poll performs one read. Only a failed reconnect is returned.
func (p *Poller) poll(ctx context.Context) error {
	p.polls.Add(1)

	r, ok, err := p.sensor.Read(ctx)
	switch {
	case err != nil:
		p.readErrors.Add(1)
		p.setErr(err)
		p.metrics.RecordSensorReadError()
		p.logger.Warn("Sensor read failed", "error", err)
		return nil
	case !ok:
		p.empty.Add(1)
		if p.sensor.Connected() {
			return nil
		}
		p.metrics.RecordSensorConnected(false)
		p.logger.Warn("Sensor dropped out, reconnecting")
		p.reconnects.Add(1)
		return p.connect(ctx)
	}

	if p.sink.AddReading(r) {
		p.accepted.Add(1)
	} else {
		p.rejected.Add(1)
	}
	return nil
}

func (p *Poller) connect(ctx context.Context) error {
	cfg := p.retry
	cfg.OnRetry = func(attempt int, err error, next time.Duration) {
		p.logger.Warn("Sensor connect failed, retrying",
			"attempt", attempt, "error", err, "next", next)
	}

	err := retry.Do(ctx, cfg, func() error {
		return p.sensor.Connect(ctx)
	})
	if err != nil {
		p.setErr(err)
		p.metrics.RecordSensorConnected(false)
		p.logger.Error("Sensor connect failed", "error", err)
		return errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrSensorOffline, err),
			"Poller", "connect", "connect sensor")
	}

	p.metrics.RecordSensorConnected(true)
	p.logger.Info("Sensor connected", "sample_rate", p.sensor.SampleRate())
	return nil
}

func (p *Poller) disconnect() {
	if err := p.sensor.Disconnect(); err != nil {
		p.logger.Warn("Sensor disconnect failed", "error", err)
	}
	p.metrics.RecordSensorConnected(false)
	p.logger.Info("Sensor disconnected")
}

func (p *Poller) setErr(err error) {
	p.errMu.Lock()
	p.lastErr = err
	p.errMu.Unlock()
}

// Running reports whether Run is active.
func (p *Poller) Running() bool {
	return p.running.Load()
}

// Interval returns the poll period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Stats returns current counters.
func (p *Poller) Stats() PollerStats {
	return PollerStats{
		Polls:      p.polls.Load(),
		Accepted:   p.accepted.Load(),
		Rejected:   p.rejected.Load(),
		Empty:      p.empty.Load(),
		ReadErrors: p.readErrors.Load(),
		Reconnects: p.reconnects.Load(),
	}
}

// Health is unhealthy while the sensor is disconnected and degraded once any
// read has failed.
func (p *Poller) Health() health.Status {
	stats := p.Stats()

	var status health.Status
	switch {
	case !p.running.Load() || !p.sensor.Connected():
		p.errMu.Lock()
		err := p.lastErr
		p.errMu.Unlock()
		if err != nil {
			status = health.FromError(pollerName, err)
		} else {
			status = health.NewUnhealthy(pollerName, "sensor not connected")
		}
	case stats.ReadErrors > 0:
		status = health.NewDegraded(pollerName, fmt.Sprintf("%d sensor read errors", stats.ReadErrors))
	default:
		status = health.NewHealthy(pollerName, "polling "+p.sensor.Name())
	}

	return status.WithMetrics(&health.Metrics{
		ErrorCount:        stats.ReadErrors,
		ReadingsProcessed: stats.Accepted,
	})
}
