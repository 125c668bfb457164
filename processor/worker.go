package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/petermattis/goid"

	"github.com/kevinbdx35/rocket-telemetry/errors"
	"github.com/kevinbdx35/rocket-telemetry/metric"
	"github.com/kevinbdx35/rocket-telemetry/reading"
)

// run is the worker loop. loopCtx ends on Stop or when the Start context is
// cancelled; cbCtx is handed to callbacks and stays live while draining.
func (p *Processor) run(loopCtx, cbCtx context.Context, ready, done chan struct{}) {
	p.workerID.Store(goid.Get())
	close(ready)

	defer func() {
		p.workerID.Store(0)
		close(done)
	}()

	for {
		if loopCtx.Err() != nil {
			break
		}
		r, ok := p.pending.Pop(loopCtx, p.cfg.PollInterval)
		if ok {
			p.process(cbCtx, r)
		}
	}

	drained := p.pending.Drain()
	for _, r := range drained {
		p.process(cbCtx, r)
	}
	if len(drained) > 0 {
		p.logger.Debug("Drained queue on shutdown", "count", len(drained))
	}

	// Start context cancelled without Stop
	if p.running.CompareAndSwap(true, false) {
		p.metrics.RecordProcessorRunning(false)
		p.logger.Info("Processor stopped by context cancellation")
	}
}

func (p *Processor) process(ctx context.Context, r reading.Reading) {
	if err := p.history.Write(r); err != nil {
		p.logger.Error("History write failed", "error", err, "timestamp", r.Timestamp)
	}
	p.processed.Add(1)
	p.lastActivity.Store(p.now().UnixNano())
	p.metrics.RecordReadingProcessed()
	p.metrics.RecordQueueDepth(p.pending.Len())

	p.cbMu.RLock()
	callbacks := make([]registration, len(p.callbacks))
	copy(callbacks, p.callbacks)
	p.cbMu.RUnlock()

	if len(callbacks) == 0 {
		return
	}

	start := time.Now()
	for _, reg := range callbacks {
		outcome := metric.OutcomeOK
		if err := p.invoke(ctx, reg, r); err != nil {
			outcome = metric.OutcomeError
			if errors.Is(err, errPanicked) {
				outcome = metric.OutcomePanic
			}
			p.callbackFailures.Add(1)
			p.logger.Error("Data callback failed",
				"callback_id", reg.id,
				"timestamp", r.Timestamp,
				"error", err)
		}
		p.metrics.RecordCallback(outcome)
	}
	p.metrics.RecordCallbackDuration(time.Since(start))
}

var errPanicked = errors.New("callback panicked")

// invoke runs one callback, turning a panic into an error. Each callback gets
// its own copy so one observer cannot mutate what the next one sees.
func (p *Processor) invoke(ctx context.Context, reg registration, r reading.Reading) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %w: %v", errors.ErrCallbackFailed, errPanicked, rec)
		}
	}()

	if cbErr := reg.fn(ctx, r.Clone()); cbErr != nil {
		return fmt.Errorf("%w: %w", errors.ErrCallbackFailed, cbErr)
	}
	return nil
}
