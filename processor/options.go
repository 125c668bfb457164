package processor

import (
	"log/slog"
	"time"

	"github.com/kevinbdx35/rocket-telemetry/metric"
)

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records processor and history-buffer metrics in registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(p *Processor) {
		p.registry = registry
	}
}

// WithClock replaces time.Now as the source of "now" for Recent and for
// activity timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}
