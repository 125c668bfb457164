// Package logging builds the process-wide structured logger.
//
// A Service fans every record out to the console (tint text or JSON), a
// rotating telemetry.log that keeps everything down to debug, and a rotating
// errors.log that keeps only errors. Files rotate through lumberjack.
//
// The payload maps accepted by Info, Warn, Error and Debug are attached under
// a "data" group:
//
//	svc.Info("Data saved", map[string]any{"path": p, "count": n})
//
// Every record also carries the session id of the running process, so the
// lines of one run can be correlated across the three sinks.
package logging
