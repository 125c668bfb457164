package natspub

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
	"github.com/kevinbdx35/rocket-telemetry/output"
	"github.com/kevinbdx35/rocket-telemetry/reading"
)

// Name labels this output in metrics and health.
const Name = "nats"

// Publisher sends bytes on a subject. *natsclient.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Option configures an Output.
type Option func(*Output)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Output) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics counts deliveries and failures.
func WithMetrics(m *metric.Metrics) Option {
	return func(o *Output) {
		o.metrics = m
	}
}

// WithSource sets the envelope source, normally the sensor name.
func WithSource(source string) Option {
	return func(o *Output) {
		o.source = source
	}
}

// WithClock sets the source of envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Output) {
		if now != nil {
			o.now = now
		}
	}
}

// Output publishes readings to one subject.
type Output struct {
	pub     Publisher
	subject string
	source  string
	logger  *slog.Logger
	metrics *metric.Metrics
	now     func() time.Time

	published atomic.Int64
	failed    atomic.Int64

	errMu   sync.Mutex
	lastErr error
}

// New binds a publisher to a subject.
func New(pub Publisher, subject string, opts ...Option) (*Output, error) {
	if pub == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "natspub", "New", "check publisher")
	}
	if subject == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: empty subject", errors.ErrInvalidConfig),
			"natspub", "New", "check subject")
	}
	o := &Output{
		pub:     pub,
		subject: subject,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "output", "output", Name, "subject", subject)
	return o, nil
}

// Subject returns the subject readings are published on.
func (o *Output) Subject() string {
	return o.subject
}

// Callback publishes one reading. Its signature matches processor.Callback.
func (o *Output) Callback(ctx context.Context, r reading.Reading) error {
	data, err := output.EncodeReading(o.source, r, o.now())
	if err != nil {
		return o.fail(err)
	}
	if err := o.pub.Publish(ctx, o.subject, data); err != nil {
		return o.fail(errors.Wrap(err, "natspub", "Callback", "publish reading"))
	}
	o.published.Add(1)
	o.metrics.RecordPublished(Name)
	return nil
}

func (o *Output) fail(err error) error {
	o.failed.Add(1)
	o.metrics.RecordOutputError(Name)
	o.errMu.Lock()
	o.lastErr = err
	o.errMu.Unlock()
	o.logger.Debug("Reading not published", "error", err)
	return err
}

// Published returns the number of readings delivered.
func (o *Output) Published() int64 {
	return o.published.Load()
}

// Failed returns the number of readings that could not be delivered.
func (o *Output) Failed() int64 {
	return o.failed.Load()
}

// Health is degraded once any publish has failed.
func (o *Output) Health() health.Status {
	published, failed := o.published.Load(), o.failed.Load()

	var status health.Status
	if failed == 0 {
		status = health.NewHealthy("output-"+Name, fmt.Sprintf("publishing to %s", o.subject))
	} else {
		o.errMu.Lock()
		msg := health.SanitizeMessage(o.lastErr.Error())
		o.errMu.Unlock()
		status = health.NewDegraded("output-"+Name, fmt.Sprintf("%d failed publishes, last: %s", failed, msg))
	}
	return status.WithMetrics(&health.Metrics{ErrorCount: failed, ReadingsProcessed: published})
}
