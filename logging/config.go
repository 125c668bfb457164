package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// Default rotation limits.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 5
)

// Log file names inside Config.Directory.
const (
	MainLogFile  = "telemetry.log"
	ErrorLogFile = "errors.log"
)

// Config selects the console format and level and where rotating files go.
type Config struct {
	Level      string `json:"level" yaml:"level" toml:"level"`
	Format     string `json:"format" yaml:"format" toml:"format"`
	Directory  string `json:"directory" yaml:"directory" toml:"directory"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" toml:"max_backups"`
	NoColor    bool   `json:"no_color" yaml:"no_color" toml:"no_color"`
}

// DefaultConfig logs info and above as colored text and rotates files under
// ./logs.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "text",
		Directory:  "logs",
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
	}
}

// Validate checks level and format names.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.Format)
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 {
		return fmt.Errorf("log rotation limits cannot be negative")
	}
	return nil
}

// ParseLevel maps debug, info, warn and error (any case) to a slog level.
// An empty string is info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}
