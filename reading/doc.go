// Package reading defines the telemetry sample carried through the pipeline.
//
// A Reading is a plain value: copy it freely, it holds no references into
// pipeline state. The optional fields (GPS fix and battery voltage) are
// pointers so that "absent" stays distinguishable from a present zero value
// all the way to disk and back.
//
// Validate is the single gate applied by the processor before a reading is
// queued. It only checks the four scalar ranges; vectors and optional fields
// are never inspected.
package reading
