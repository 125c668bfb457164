// Package storage persists telemetry readings as JSON documents and CSV
// tables and reloads the JSON form.
//
// A Codec encodes readings and hands the bytes to a Store. FileStore, the
// only Store shipped, resolves relative names under a base directory
// (created on demand), uses absolute names as given, and writes through a
// temporary file and rename so a failed save never leaves a truncated
// artifact behind.
//
// JSON documents are arrays of reading objects. Absent optional fields are
// written as null and timestamps use the fixed nanosecond layout of package
// timestamp, so LoadJSON(SaveJSON(rs)) reproduces rs exactly. LoadJSON checks
// the document against an embedded JSON Schema before decoding it; any
// problem with the content is reported as errors.ErrFormat and any
// filesystem problem as errors.ErrIO. CSV is write-only.
//
//	codec := storage.NewCodec(storage.NewFileStore("logs"))
//	path, err := codec.SaveJSON(ctx, proc.All(), "")  // logs/telemetry_20250314_092653.json
//	readings, err := codec.LoadJSON(ctx, "flight1.json") // logs/flight1.json
package storage
