// Package websocket pushes processed readings to browser clients.
//
// The Output owns a small HTTP server with one WebSocket endpoint. Each
// reading handed to Callback is wrapped in an output.Envelope and queued for
// every connected client. A client's queue is bounded: when a client cannot
// keep up, its oldest pending messages are dropped so that it always catches
// up to the live feed instead of lagging further behind.
//
// Usage:
//
//	ws, err := websocket.New(websocket.DefaultConfig(),
//		websocket.WithLogger(logger),
//		websocket.WithMetrics(registry))
//	if err != nil {
//		return err
//	}
//	if err := ws.Start(ctx); err != nil {
//		return err
//	}
//	defer ws.Stop(5 * time.Second)
//	proc.AddDataCallback(ws.Callback)
//
// Clients may send anything; incoming frames are read only to service
// control frames and to notice disconnects. The server pings every client
// at PingInterval and drops clients that stop answering.
package websocket
