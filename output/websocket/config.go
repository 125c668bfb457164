package websocket

import (
	"fmt"
	"strings"
	"time"

	"github.com/kevinbdx35/rocket-telemetry/errors"
)

// Config holds configuration for the WebSocket output.
type Config struct {
	// Port the server listens on. Zero picks a free port.
	Port int
	// Path of the upgrade endpoint.
	Path string
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration
	// PingInterval is how often clients are pinged.
	PingInterval time.Duration
	// PongWait is how long a client may stay silent before it is dropped.
	// Must exceed PingInterval.
	PongWait time.Duration
	// ClientBuffer is the number of messages queued per client.
	ClientBuffer int
}

// DefaultConfig returns the default WebSocket output configuration.
func DefaultConfig() Config {
	return Config{
		Port:         8080,
		Path:         "/ws",
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		PongWait:     60 * time.Second,
		ClientBuffer: 256,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var problem string
	switch {
	case c.Port < 0 || c.Port > 65535:
		problem = fmt.Sprintf("port %d out of range", c.Port)
	case !strings.HasPrefix(c.Path, "/"):
		problem = fmt.Sprintf("path %q must start with /", c.Path)
	case c.WriteTimeout <= 0:
		problem = fmt.Sprintf("write timeout %s", c.WriteTimeout)
	case c.PingInterval <= 0:
		problem = fmt.Sprintf("ping interval %s", c.PingInterval)
	case c.PongWait <= c.PingInterval:
		problem = fmt.Sprintf("pong wait %s must exceed ping interval %s", c.PongWait, c.PingInterval)
	case c.ClientBuffer <= 0:
		problem = fmt.Sprintf("client buffer %d", c.ClientBuffer)
	default:
		return nil
	}
	return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrInvalidConfig, problem),
		"websocket", "Validate", "check config")
}
