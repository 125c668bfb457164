package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"

	"github.com/kevinbdx35/rocket-telemetry/errors"
	"github.com/kevinbdx35/rocket-telemetry/metric"
	"github.com/kevinbdx35/rocket-telemetry/pkg/buffer"
	"github.com/kevinbdx35/rocket-telemetry/pkg/queue"
	"github.com/kevinbdx35/rocket-telemetry/reading"
)

const componentName = "processor"

// Callback observes every processed reading. Returning an error or panicking
// marks this invocation as failed; it never stops the pipeline.
type Callback func(ctx context.Context, r reading.Reading) error

// CallbackID identifies a registered callback.
type CallbackID uint64

type registration struct {
	id CallbackID
	fn Callback
}

// Processor is the telemetry pipeline: validate, queue, record, fan out.
type Processor struct {
	cfg      Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	metrics  *metric.Metrics
	now      func() time.Time

	history buffer.Buffer[reading.Reading]
	pending *queue.Queue[reading.Reading]

	cbMu      sync.RWMutex
	callbacks []registration
	nextID    CallbackID

	// Lifecycle management
	lifecycleMu sync.Mutex
	running     atomic.Bool
	cancel      context.CancelFunc
	done        chan struct{} // closed when the worker exits
	workerID    atomic.Int64
	startTime   atomic.Int64 // unix nanos

	// Statistics
	accepted         atomic.Int64
	rejected         atomic.Int64
	processed        atomic.Int64
	callbackFailures atomic.Int64
	lastActivity     atomic.Int64 // unix nanos
}

// New creates an idle processor with an empty history.
func New(cfg Config, opts ...Option) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Processor{
		cfg:     cfg,
		logger:  slog.Default(),
		now:     time.Now,
		pending: queue.New[reading.Reading](),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", componentName)
	p.metrics = p.registry.CoreMetrics()

	bufOpts := []buffer.Option[reading.Reading]{
		buffer.WithOverflowPolicy[reading.Reading](buffer.DropOldest),
	}
	if p.registry != nil {
		bufOpts = append(bufOpts, buffer.WithMetrics[reading.Reading](p.registry, "history"))
	}
	history, err := buffer.NewCircularBuffer(cfg.BufferSize, bufOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "Processor", "New", "create history buffer")
	}
	p.history = history

	return p, nil
}

// Start moves the processor to Running and spawns the worker. Starting a
// running processor is a no-op.
func (p *Processor) Start(ctx context.Context) error {
	if p.onWorker() {
		return nil
	}

	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.running.Load() {
		return nil
	}

	// a worker left behind by a timed-out Stop must finish first
	if p.done != nil {
		select {
		case <-p.done:
		default:
			return errors.WrapTransient(errors.ErrShuttingDown, "Processor", "Start",
				"previous worker still draining")
		}
	}

	workerCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.startTime.Store(p.now().UnixNano())
	p.running.Store(true)
	p.metrics.RecordProcessorRunning(true)

	ready := make(chan struct{})
	go p.run(workerCtx, context.WithoutCancel(ctx), ready, p.done)
	<-ready

	p.logger.Info("Processor started",
		"buffer_size", p.cfg.BufferSize,
		"queued", p.pending.Len())
	return nil
}

// Stop moves the processor to Idle. Readings queued when Stop is called are
// recorded and fanned out before it returns. Stop waits at most
// Config.StopTimeout for the worker; on timeout it returns an error wrapping
// ErrStopTimeout and the worker finishes in the background. Stopping an idle
// processor is a no-op.
func (p *Processor) Stop() error {
	if p.onWorker() {
		err := errors.WrapInvalid(errors.ErrStopFromCallback, "Processor", "Stop", "check caller")
		p.logger.Error("Stop called from a data callback", "error", err)
		return err
	}

	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.running.Load() {
		return nil
	}

	p.running.Store(false)
	p.metrics.RecordProcessorRunning(false)
	p.cancel()

	timer := time.NewTimer(p.cfg.StopTimeout)
	defer timer.Stop()

	select {
	case <-p.done:
		p.logger.Info("Processor stopped",
			"processed", p.processed.Load(),
			"callback_failures", p.callbackFailures.Load())
		return nil
	case <-timer.C:
		err := errors.WrapTransient(
			fmt.Errorf("%w after %s", errors.ErrStopTimeout, p.cfg.StopTimeout),
			"Processor", "Stop", "wait for worker")
		p.logger.Error("Processor stop timed out", "error", err, "queued", p.pending.Len())
		return err
	}
}

// Running reports whether the worker is active.
func (p *Processor) Running() bool {
	return p.running.Load()
}

// AddReading validates r and queues it for the worker. It returns false,
// queueing nothing, when r fails validation.
func (p *Processor) AddReading(r reading.Reading) bool {
	if !reading.Validate(r) {
		p.rejected.Add(1)
		p.metrics.RecordReadingAdded(false)
		p.logger.Warn("Reading rejected",
			"timestamp", r.Timestamp,
			"altitude", r.Altitude,
			"velocity", r.Velocity,
			"temperature", r.Temperature,
			"pressure", r.Pressure)
		return false
	}

	p.pending.Push(r.Clone())
	p.accepted.Add(1)
	p.metrics.RecordReadingAdded(true)
	p.metrics.RecordQueueDepth(p.pending.Len())
	return true
}

// AddDataCallback registers fn and returns its id. Callbacks run in
// registration order.
func (p *Processor) AddDataCallback(fn Callback) CallbackID {
	p.cbMu.Lock()
	defer p.cbMu.Unlock()

	p.nextID++
	p.callbacks = append(p.callbacks, registration{id: p.nextID, fn: fn})
	return p.nextID
}

// RemoveDataCallback unregisters a callback. It reports whether id was registered.
func (p *Processor) RemoveDataCallback(id CallbackID) bool {
	p.cbMu.Lock()
	defer p.cbMu.Unlock()

	for i, reg := range p.callbacks {
		if reg.id == id {
			p.callbacks = append(p.callbacks[:i:i], p.callbacks[i+1:]...)
			return true
		}
	}
	return false
}

// All returns a copy of the history, oldest first.
func (p *Processor) All() []reading.Reading {
	return p.history.Snapshot()
}

// Recent returns the readings whose timestamp is not older than d before
// now, in history order.
func (p *Processor) Recent(d time.Duration) []reading.Reading {
	cutoff := p.now().Add(-d)

	snap := p.history.Snapshot()
	out := make([]reading.Reading, 0, len(snap))
	for _, r := range snap {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// Latest returns the newest reading in the history.
func (p *Processor) Latest() (reading.Reading, bool) {
	return p.history.Last()
}

// Clear empties the history. Queued readings are not affected.
func (p *Processor) Clear() {
	p.history.Clear()
	p.logger.Info("History cleared")
}

// onWorker reports whether the caller runs on the worker goroutine, i.e.
// inside a data callback.
func (p *Processor) onWorker() bool {
	id := p.workerID.Load()
	return id != 0 && id == goid.Get()
}
