// Package processor ingests telemetry readings, keeps a bounded history of
// them and fans each one out to registered callbacks.
//
// # Flow
//
// AddReading validates a reading and pushes it onto an unbounded FIFO queue.
// It never waits for the worker and works whether or not the processor is
// running. A single worker goroutine, started by Start, pops readings in
// arrival order, appends each to the history buffer (the oldest reading is
// evicted once the buffer is full) and then invokes every callback in
// registration order.
//
//	proc, err := processor.New(processor.DefaultConfig(),
//	    processor.WithLogger(logger),
//	    processor.WithMetrics(registry))
//	id := proc.AddDataCallback(func(ctx context.Context, r reading.Reading) error {
//	    return publisher.Publish(ctx, r)
//	})
//	_ = proc.Start(ctx)
//	proc.AddReading(r)
//	...
//	_ = proc.Stop() // drains the queue first
//
// # Callbacks
//
// A callback that returns an error or panics is logged and counted; the
// worker moves on to the next callback and the next reading. Callbacks run on
// the worker goroutine, so a slow callback delays every reading behind it.
// Calling Stop from inside a callback returns ErrStopFromCallback instead of
// waiting on itself.
//
// # Queries
//
// All, Recent and Latest copy the history under the buffer lock, so they
// never observe a half-applied append or Clear.
package processor
