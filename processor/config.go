package processor

import (
	"fmt"
	"time"

	"github.com/kevinbdx35/rocket-telemetry/errors"
)

// Config holds the processor tuning knobs.
type Config struct {
	// BufferSize is the history capacity; the oldest reading is evicted beyond it.
	BufferSize int
	// PollInterval bounds how long the worker waits on an empty queue before
	// re-checking for shutdown.
	PollInterval time.Duration
	// StopTimeout bounds how long Stop waits for the worker to drain and exit.
	StopTimeout time.Duration
}

// DefaultConfig returns the default processor configuration.
func DefaultConfig() Config {
	return Config{
		BufferSize:   1000,
		PollInterval: 100 * time.Millisecond,
		StopTimeout:  5 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BufferSize <= 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: buffer size %d", errors.ErrInvalidConfig, c.BufferSize),
			"Config", "Validate", "check buffer size")
	}
	if c.PollInterval <= 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: poll interval %s", errors.ErrInvalidConfig, c.PollInterval),
			"Config", "Validate", "check poll interval")
	}
	if c.StopTimeout <= 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: stop timeout %s", errors.ErrInvalidConfig, c.StopTimeout),
			"Config", "Validate", "check stop timeout")
	}
	return nil
}
