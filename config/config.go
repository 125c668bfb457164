package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/kevinbdx35/rocket-telemetry/errors"
	"github.com/kevinbdx35/rocket-telemetry/logging"
	"github.com/kevinbdx35/rocket-telemetry/processor"
)

// Duration is a time.Duration written as a string such as "250ms".
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the complete telemetryd configuration.
type Config struct {
	Processor ProcessorConfig `json:"processor" yaml:"processor" toml:"processor"`
	Storage   StorageConfig   `json:"storage" yaml:"storage" toml:"storage"`
	Sensor    SensorConfig    `json:"sensor" yaml:"sensor" toml:"sensor"`
	Logging   logging.Config  `json:"logging" yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics" toml:"metrics"`
	NATS      NATSConfig      `json:"nats" yaml:"nats" toml:"nats"`
	MQTT      MQTTConfig      `json:"mqtt" yaml:"mqtt" toml:"mqtt"`
	WebSocket WebSocketConfig `json:"websocket" yaml:"websocket" toml:"websocket"`
}

// ProcessorConfig sizes the history buffer and bounds worker timing.
type ProcessorConfig struct {
	BufferSize   int      `json:"buffer_size" yaml:"buffer_size" toml:"buffer_size"`
	PollInterval Duration `json:"poll_interval" yaml:"poll_interval" toml:"poll_interval"`
	StopTimeout  Duration `json:"stop_timeout" yaml:"stop_timeout" toml:"stop_timeout"`
}

// ToProcessor converts to the processor's own configuration.
func (p ProcessorConfig) ToProcessor() processor.Config {
	return processor.Config{
		BufferSize:   p.BufferSize,
		PollInterval: p.PollInterval.Std(),
		StopTimeout:  p.StopTimeout.Std(),
	}
}

// StorageConfig says where saved documents go.
type StorageConfig struct {
	Directory      string `json:"directory" yaml:"directory" toml:"directory"`
	AutosaveOnStop bool   `json:"autosave_on_stop" yaml:"autosave_on_stop" toml:"autosave_on_stop"`
}

// SensorConfig selects the sensor driver.
type SensorConfig struct {
	Kind       string  `json:"kind" yaml:"kind" toml:"kind"`
	Name       string  `json:"name" yaml:"name" toml:"name"`
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate" toml:"sample_rate"`
	Seed       int64   `json:"seed,omitempty" yaml:"seed,omitempty" toml:"seed,omitempty"`
}

// SensorKindMock is the only built-in driver.
const SensorKindMock = "mock"

// MetricsConfig controls the Prometheus and health endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Port    int    `json:"port" yaml:"port" toml:"port"`
	Path    string `json:"path" yaml:"path" toml:"path"`
}

// NATSConfig controls the NATS reading publisher.
type NATSConfig struct {
	Enabled       bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	URL           string   `json:"url" yaml:"url" toml:"url"`
	Subject       string   `json:"subject" yaml:"subject" toml:"subject"`
	MaxReconnects int      `json:"max_reconnects" yaml:"max_reconnects" toml:"max_reconnects"`
	ReconnectWait Duration `json:"reconnect_wait" yaml:"reconnect_wait" toml:"reconnect_wait"`
	Username      string   `json:"username,omitempty" yaml:"username,omitempty" toml:"username,omitempty"`
	Password      string   `json:"password,omitempty" yaml:"password,omitempty" toml:"password,omitempty"`
	Token         string   `json:"token,omitempty" yaml:"token,omitempty" toml:"token,omitempty"`
}

// MQTTConfig controls the MQTT reading publisher.
type MQTTConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Broker   string `json:"broker" yaml:"broker" toml:"broker"`
	ClientID string `json:"client_id" yaml:"client_id" toml:"client_id"`
	Topic    string `json:"topic" yaml:"topic" toml:"topic"`
	QoS      int    `json:"qos" yaml:"qos" toml:"qos"`
	Retained bool   `json:"retained" yaml:"retained" toml:"retained"`
	Username string `json:"username,omitempty" yaml:"username,omitempty" toml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" toml:"password,omitempty"`
}

// WebSocketConfig controls the live browser feed.
type WebSocketConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Port    int    `json:"port" yaml:"port" toml:"port"`
	Path    string `json:"path" yaml:"path" toml:"path"`
}

// Default returns a runnable configuration: mock sensor at 10 Hz, metrics on
// :9090, every network output disabled.
func Default() *Config {
	return &Config{
		Processor: ProcessorConfig{
			BufferSize:   1000,
			PollInterval: Duration(100 * time.Millisecond),
			StopTimeout:  Duration(5 * time.Second),
		},
		Storage: StorageConfig{
			Directory:      "logs",
			AutosaveOnStop: true,
		},
		Sensor: SensorConfig{
			Kind:       SensorKindMock,
			Name:       "Mock Rocket Sensor",
			SampleRate: 10,
		},
		Logging: logging.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Subject:       "telemetry.readings",
			MaxReconnects: -1,
			ReconnectWait: Duration(2 * time.Second),
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "rocket-telemetry",
			Topic:    "rocket/telemetry",
			QoS:      1,
		},
		WebSocket: WebSocketConfig{
			Port: 8080,
			Path: "/ws",
		},
	}
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err),
			"Config", "Validate", "validate configuration")
	}
	return nil
}

func (c *Config) validate() error {
	if c.Processor.BufferSize < 1 {
		return fmt.Errorf("processor.buffer_size must be at least 1, got %d", c.Processor.BufferSize)
	}
	if c.Processor.PollInterval <= 0 {
		return fmt.Errorf("processor.poll_interval must be positive")
	}
	if c.Processor.StopTimeout <= 0 {
		return fmt.Errorf("processor.stop_timeout must be positive")
	}

	if strings.TrimSpace(c.Storage.Directory) == "" {
		return fmt.Errorf("storage.directory is required")
	}

	if c.Sensor.Kind != SensorKindMock {
		return fmt.Errorf("sensor.kind %q is not supported (want %q)", c.Sensor.Kind, SensorKindMock)
	}
	if !(c.Sensor.SampleRate > 0 && c.Sensor.SampleRate <= 1000) {
		return fmt.Errorf("sensor.sample_rate must be in (0, 1000], got %v", c.Sensor.SampleRate)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if c.Metrics.Enabled {
		if err := validateEndpoint("metrics", c.Metrics.Port, c.Metrics.Path); err != nil {
			return err
		}
	}

	if c.NATS.Enabled {
		if err := validateURL("nats.url", c.NATS.URL, "nats", "tls"); err != nil {
			return err
		}
		if !isValidNATSSubject(c.NATS.Subject) {
			return fmt.Errorf("nats.subject %q is not a valid publish subject", c.NATS.Subject)
		}
	}

	if c.MQTT.Enabled {
		if err := validateURL("mqtt.broker", c.MQTT.Broker, "tcp", "ssl", "tls", "mqtt", "mqtts", "ws", "wss"); err != nil {
			return err
		}
		if c.MQTT.Topic == "" || strings.ContainsAny(c.MQTT.Topic, "+#") {
			return fmt.Errorf("mqtt.topic %q must be a non-empty topic without wildcards", c.MQTT.Topic)
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
		}
	}

	if c.WebSocket.Enabled {
		if err := validateEndpoint("websocket", c.WebSocket.Port, c.WebSocket.Path); err != nil {
			return err
		}
		if c.Metrics.Enabled && c.Metrics.Port == c.WebSocket.Port {
			return fmt.Errorf("metrics.port and websocket.port are both %d", c.Metrics.Port)
		}
	}

	return nil
}

func validateEndpoint(section string, port int, path string) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s.port must be in 1..65535, got %d", section, port)
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%s.path %q must start with /", section, path)
	}
	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	// Comma-separated server lists are allowed for NATS.
	for _, part := range strings.Split(raw, ",") {
		u, err := url.Parse(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		ok := false
		for _, s := range schemes {
			if u.Scheme == s {
				ok = true
				break
			}
		}
		if !ok || u.Host == "" {
			return fmt.Errorf("%s %q must look like %s://host:port", field, part, schemes[0])
		}
	}
	return nil
}

// isValidNATSSubject accepts dot-separated tokens of letters, digits, '-'
// and '_'. Wildcards are rejected; this is a publish subject.
func isValidNATSSubject(s string) bool {
	if s == "" {
		return false
	}
	for _, token := range strings.Split(s, ".") {
		if token == "" {
			return false
		}
		for _, r := range token {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
				return false
			}
		}
	}
	return true
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return Default()
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// Redacted returns a copy safe to print: secrets are masked and credentials
// embedded in URLs are stripped.
func (c *Config) Redacted() *Config {
	out := c.Clone()
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	out.NATS.Password = mask(out.NATS.Password)
	out.NATS.Token = mask(out.NATS.Token)
	out.MQTT.Password = mask(out.MQTT.Password)
	out.NATS.URL = stripUserinfo(out.NATS.URL)
	out.MQTT.Broker = stripUserinfo(out.MQTT.Broker)
	return out
}

func stripUserinfo(raw string) string {
	parts := strings.Split(raw, ",")
	for i, part := range parts {
		u, err := url.Parse(strings.TrimSpace(part))
		if err != nil || u.User == nil {
			continue
		}
		u.User = nil
		parts[i] = u.String()
	}
	return strings.Join(parts, ",")
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically updates the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "SafeConfig", "Update", "check config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg.Clone()
	return nil
}
