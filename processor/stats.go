package processor

import (
	"fmt"
	"time"

	"github.com/kevinbdx35/rocket-telemetry/health"
)

// Stats is a point-in-time view of processor activity.
type Stats struct {
	Running          bool  `json:"running"`
	Accepted         int64 `json:"accepted"`
	Rejected         int64 `json:"rejected"`
	Processed        int64 `json:"processed"`
	CallbackFailures int64 `json:"callback_failures"`
	Callbacks        int   `json:"callbacks"`
	QueueDepth       int   `json:"queue_depth"`
	BufferSize       int   `json:"buffer_size"`
	BufferCapacity   int   `json:"buffer_capacity"`
	Evicted          int64 `json:"evicted"`
}

// Stats returns current counters.
func (p *Processor) Stats() Stats {
	p.cbMu.RLock()
	callbacks := len(p.callbacks)
	p.cbMu.RUnlock()

	return Stats{
		Running:          p.running.Load(),
		Accepted:         p.accepted.Load(),
		Rejected:         p.rejected.Load(),
		Processed:        p.processed.Load(),
		CallbackFailures: p.callbackFailures.Load(),
		Callbacks:        callbacks,
		QueueDepth:       p.pending.Len(),
		BufferSize:       p.history.Size(),
		BufferCapacity:   p.history.Capacity(),
		Evicted:          p.history.Stats().Drops(),
	}
}

// Health reports healthy while running without callback failures, degraded
// while running with failures, and unhealthy when idle.
func (p *Processor) Health() health.Status {
	stats := p.Stats()

	var status health.Status
	switch {
	case !stats.Running:
		status = health.NewUnhealthy(componentName, "processor is not running")
	case stats.CallbackFailures > 0:
		status = health.NewDegraded(componentName,
			fmt.Sprintf("%d data callback failures", stats.CallbackFailures))
	default:
		status = health.NewHealthy(componentName, "processing readings")
	}

	m := &health.Metrics{
		ErrorCount:        stats.CallbackFailures,
		ReadingsProcessed: stats.Processed,
	}
	if started := p.startTime.Load(); stats.Running && started != 0 {
		m.Uptime = p.now().Sub(time.Unix(0, started))
	}
	if ns := p.lastActivity.Load(); ns != 0 {
		m.LastActivity = time.Unix(0, ns)
	}
	return status.WithMetrics(m)
}
