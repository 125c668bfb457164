package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kevinbdx35/rocket-telemetry/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TELEMETRY"

// Loader layers a file, .env files and the process environment over
// Default().
type Loader struct {
	envPrefix string
	envFiles  []string
	validate  bool
	getenv    func(string) (string, bool)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithEnvFiles replaces the default ".env". Missing files are skipped.
func WithEnvFiles(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.envFiles = paths
	}
}

// WithEnvPrefix changes the TELEMETRY prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithoutValidation returns the merged config without calling Validate.
func WithoutValidation() LoaderOption {
	return func(l *Loader) {
		l.validate = false
	}
}

// NewLoader creates a new configuration loader
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		envPrefix: EnvPrefix,
		envFiles:  []string{".env"},
		validate:  true,
		getenv:    os.LookupEnv,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads path with the default Loader. An empty path skips the file
// layer.
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// Load builds a Config from the defaults, the file at path, .env files and
// the environment, then validates it.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", "decode "+path)
		}
	}

	dotenv, err := l.readEnvFiles()
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "read env files")
	}
	lookup := func(key string) (string, bool) {
		if v, ok := l.getenv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := l.applyEnvOverrides(cfg, lookup); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "apply environment overrides")
	}

	if l.validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// decodeFile overlays the file onto cfg so absent keys keep their defaults.
func decodeFile(path string, cfg *Config) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}
	data, err := safeReadFile(path)
	if err != nil {
		return err
	}

	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return fmt.Errorf("parse toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
	default:
		// JSON is a subset of YAML; one decoder covers both.
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("parse %s: %w", format, err)
		}
	}
	return nil
}

func (l *Loader) readEnvFiles() (map[string]string, error) {
	var present []string
	for _, p := range l.envFiles {
		if _, err := os.Stat(p); err == nil {
			present = append(present, p)
		}
	}
	if len(present) == 0 {
		return map[string]string{}, nil
	}
	return godotenv.Read(present...)
}

// applyEnvOverrides applies TELEMETRY_* overrides. A malformed value is an
// error rather than silently ignored.
func (l *Loader) applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	var firstErr error
	get := func(name string) (string, bool) {
		key := l.envPrefix + "_" + name
		v, ok := lookup(key)
		if !ok || v == "" {
			return "", false
		}
		if err := validateEnvVar(key, v); err != nil && firstErr == nil {
			firstErr = err
			return "", false
		}
		return v, true
	}
	str := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("%s_%s: %w", l.envPrefix, name, err)
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := get(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("%s_%s: %w", l.envPrefix, name, err)
				return
			}
			*dst = b
		}
	}
	duration := func(name string, dst *Duration) {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("%s_%s: %w", l.envPrefix, name, err)
				return
			}
			*dst = Duration(d)
		}
	}

	integer("BUFFER_SIZE", &cfg.Processor.BufferSize)
	duration("POLL_INTERVAL", &cfg.Processor.PollInterval)
	duration("STOP_TIMEOUT", &cfg.Processor.StopTimeout)

	str("STORAGE_DIR", &cfg.Storage.Directory)
	boolean("AUTOSAVE", &cfg.Storage.AutosaveOnStop)

	str("SENSOR_NAME", &cfg.Sensor.Name)
	if v, ok := get("SAMPLE_RATE"); ok {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s_SAMPLE_RATE: %w", l.envPrefix, err)
		} else if err == nil {
			cfg.Sensor.SampleRate = rate
		}
	}

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	str("LOG_DIR", &cfg.Logging.Directory)

	boolean("METRICS_ENABLED", &cfg.Metrics.Enabled)
	integer("METRICS_PORT", &cfg.Metrics.Port)

	boolean("NATS_ENABLED", &cfg.NATS.Enabled)
	str("NATS_URL", &cfg.NATS.URL)
	str("NATS_SUBJECT", &cfg.NATS.Subject)
	str("NATS_USERNAME", &cfg.NATS.Username)
	str("NATS_PASSWORD", &cfg.NATS.Password)
	str("NATS_TOKEN", &cfg.NATS.Token)

	boolean("MQTT_ENABLED", &cfg.MQTT.Enabled)
	str("MQTT_BROKER", &cfg.MQTT.Broker)
	str("MQTT_TOPIC", &cfg.MQTT.Topic)
	str("MQTT_USERNAME", &cfg.MQTT.Username)
	str("MQTT_PASSWORD", &cfg.MQTT.Password)

	boolean("WEBSOCKET_ENABLED", &cfg.WebSocket.Enabled)
	integer("WEBSOCKET_PORT", &cfg.WebSocket.Port)

	return firstErr
}
