// Package natsclient manages the NATS connection used to publish telemetry.
//
// Client wraps a *nats.Conn with a small circuit breaker: after a threshold
// of consecutive connect failures the client refuses further attempts for a
// backoff period that doubles up to a maximum. Once connected, reconnection is
// left to nats.go; the client tracks the connection state through the
// library's disconnect, reconnect and closed handlers and mirrors it into
// the telemetry metrics.
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//		natsclient.WithLogger(logger),
//		natsclient.WithMetrics(registry.CoreMetrics()),
//	)
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close(ctx)
//	err = client.Publish(ctx, "telemetry.readings", payload)
package natsclient
