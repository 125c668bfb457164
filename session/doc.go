// Package session wires one telemetry acquisition run together.
//
// A Session owns the sensor, its poller, the processor, the storage codec,
// the optional network outputs and the metrics endpoint. It starts them in
// dependency order and stops them in reverse:
//
//	poller -> processor (drains its queue) -> autosave -> outputs -> metrics
//
// The caller owns the logging.Service and closes it after Stop.
//
// Lifecycle:
//
//	sess, err := session.New(cfg, logs)
//	if err != nil {
//		return err
//	}
//	if err := sess.Start(ctx); err != nil {
//		return err
//	}
//	select {
//	case <-ctx.Done():
//	case <-sess.Done():
//		// polling ended on its own; sess.Err() says why
//	}
//	return sess.Stop(context.Background())
package session
