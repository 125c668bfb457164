package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kevinbdx35/rocket-telemetry/errors"
	"github.com/kevinbdx35/rocket-telemetry/health"
	"github.com/kevinbdx35/rocket-telemetry/metric"
	"github.com/kevinbdx35/rocket-telemetry/output"
	"github.com/kevinbdx35/rocket-telemetry/reading"
)

// Name labels this output in metrics and health.
const Name = "mqtt"

// disconnectQuiesce is how long Close lets in-flight work finish, in ms.
const disconnectQuiesce = 250

// ErrNotConnected is returned when publishing without a broker connection.
var ErrNotConnected = errors.New("mqtt client not connected")

// Client is the part of paho.Client the output uses.
type Client interface {
	IsConnected() bool
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

var _ Client = (paho.Client)(nil)

// Config holds MQTT output configuration.
type Config struct {
	Broker         string
	ClientID       string
	Topic          string
	QoS            byte
	Retained       bool
	Username       string
	Password       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// DefaultConfig returns the default MQTT output configuration.
func DefaultConfig() Config {
	return Config{
		Broker:         "tcp://localhost:1883",
		ClientID:       "rocket-telemetry",
		Topic:          "rocket/telemetry",
		QoS:            1,
		KeepAlive:      60 * time.Second,
		ConnectTimeout: 10 * time.Second,
		PublishTimeout: 5 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var problem string
	switch {
	case c.Broker == "":
		problem = "empty broker"
	case c.Topic == "":
		problem = "empty topic"
	case c.QoS > 2:
		problem = fmt.Sprintf("qos %d", c.QoS)
	case c.ConnectTimeout <= 0:
		problem = fmt.Sprintf("connect timeout %s", c.ConnectTimeout)
	case c.PublishTimeout <= 0:
		problem = fmt.Sprintf("publish timeout %s", c.PublishTimeout)
	default:
		return nil
	}
	return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrInvalidConfig, problem),
		"mqtt", "Validate", "check config")
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

// WithClient uses c instead of building a paho client from the config.
func WithClient(c Client) Option {
	return func(o *Output) {
		o.client = c
	}
}

// Output publishes readings to one MQTT topic.
type Output struct {
	cfg     Config
	client  Client
	logger  *slog.Logger
	metrics *metric.Metrics
	source  string
	now     func() time.Time

	closeOnce sync.Once

	published atomic.Int64
	failed    atomic.Int64
	lost      atomic.Int64

	errMu   sync.Mutex
	lastErr error
}

// New creates the output. It does not connect; call Connect.
func New(cfg Config, opts ...Option) (*Output, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Output{
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "output", "output", Name, "topic", cfg.Topic)
	if o.client == nil {
		o.client = paho.NewClient(o.clientOptions())
	}
	return o, nil
}

func (o *Output) clientOptions() *paho.ClientOptions {
	opts := paho.NewClientOptions()
	opts.AddBroker(o.cfg.Broker)
	opts.SetClientID(o.cfg.ClientID)
	if o.cfg.Username != "" {
		opts.SetUsername(o.cfg.Username)
		opts.SetPassword(o.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(o.cfg.ConnectTimeout)
	if o.cfg.KeepAlive > 0 {
		opts.SetKeepAlive(o.cfg.KeepAlive)
	}
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(paho.Client) {
		o.logger.Info("MQTT connection established")
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		o.lost.Add(1)
		o.setErr(err)
		o.logger.Warn("MQTT connection lost", "error", err)
	})
	opts.SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
		o.logger.Info("MQTT reconnecting")
	})
	return opts
}

// Connect dials the broker and waits until the connection is up, ctx is done
// or the connect timeout expires.
func (o *Output) Connect(ctx context.Context) error {
	if o.client.IsConnected() {
		return nil
	}
	if err := o.wait(ctx, o.client.Connect(), o.cfg.ConnectTimeout); err != nil {
		o.setErr(err)
		return errors.WrapTransient(err, "mqtt", "Connect", "connect to broker")
	}
	o.logger.Info("Connected to MQTT broker", "client_id", o.cfg.ClientID)
	return nil
}

// wait blocks on a paho token.
func (o *Output) wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.ErrConnectionTimeout
	}
}

// Callback publishes one reading. Its signature matches processor.Callback.
func (o *Output) Callback(ctx context.Context, r reading.Reading) error {
	if !o.client.IsConnected() {
		return o.fail(errors.WrapTransient(ErrNotConnected, "mqtt", "Callback", "check connection"))
	}
	data, err := output.EncodeReading(o.source, r, o.now())
	if err != nil {
		return o.fail(err)
	}
	token := o.client.Publish(o.cfg.Topic, o.cfg.QoS, o.cfg.Retained, data)
	if err := o.wait(ctx, token, o.cfg.PublishTimeout); err != nil {
		return o.fail(errors.WrapTransient(err, "mqtt", "Callback", "publish reading"))
	}
	o.published.Add(1)
	o.metrics.RecordPublished(Name)
	return nil
}

func (o *Output) fail(err error) error {
	o.failed.Add(1)
	o.metrics.RecordOutputError(Name)
	o.setErr(err)
	o.logger.Debug("Reading not published", "error", err)
	return err
}

func (o *Output) setErr(err error) {
	o.errMu.Lock()
	o.lastErr = err
	o.errMu.Unlock()
}

// Close disconnects from the broker. Later calls do nothing.
func (o *Output) Close() {
	o.closeOnce.Do(func() {
		if o.client.IsConnected() {
			o.client.Disconnect(disconnectQuiesce)
			o.logger.Info("Disconnected from MQTT broker")
		}
	})
}

// Published returns the number of readings delivered.
func (o *Output) Published() int64 {
	return o.published.Load()
}

// Failed returns the number of readings that could not be delivered.
func (o *Output) Failed() int64 {
	return o.failed.Load()
}

// Health is unhealthy while disconnected and degraded after failed publishes.
func (o *Output) Health() health.Status {
	component := "output-" + Name
	metrics := &health.Metrics{
		ErrorCount:        o.failed.Load(),
		ReadingsProcessed: o.published.Load(),
	}

	o.errMu.Lock()
	lastErr := o.lastErr
	o.errMu.Unlock()

	if !o.client.IsConnected() {
		msg := "not connected to broker"
		if lastErr != nil {
			msg = fmt.Sprintf("%s: %s", msg, health.SanitizeMessage(lastErr.Error()))
		}
		return health.NewUnhealthy(component, msg).WithMetrics(metrics)
	}
	if failed := o.failed.Load(); failed > 0 {
		return health.NewDegraded(component, fmt.Sprintf("%d failed publishes, %d connection losses",
			failed, o.lost.Load())).WithMetrics(metrics)
	}
	return health.NewHealthy(component, fmt.Sprintf("publishing to %s", o.cfg.Topic)).WithMetrics(metrics)
}
