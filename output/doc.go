// Package output holds the pieces shared by the reading observers in its
// subpackages: the wire envelope every published reading travels in.
//
// Each subpackage exposes an Output whose Callback method matches
// processor.Callback, so wiring is a single AddDataCallback:
//
//	pub, _ := natspub.New(client, "telemetry.readings")
//	proc.AddDataCallback(pub.Callback)
//
// A delivery failure is returned from the callback; the processor logs it
// and counts it against its health without interrupting other observers.
package output
