// Package errors provides standardized error handling for the telemetry pipeline.
//
// # Overview
//
// Errors fall into three classes: Transient (temporary, retryable), Invalid
// (bad input, non-retryable) and Fatal (unrecoverable, stop processing). The
// classification lets the processor, the storage codec and the outputs decide
// how to react without matching on error strings.
//
// # Error Wrapping Pattern
//
// All wrapping follows the format
//
//	"component.method: action failed: %w"
//
// and the classified wrappers keep the class through the chain:
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
//
// # Storage Errors
//
// The storage codec reports two families of failure:
//
//   - ErrFormat: the persisted document is not an array of well-formed
//     readings. Built with Format and always of class Invalid.
//   - ErrIO: the filesystem refused the operation. Built with IO; permission
//     errors are Fatal, the rest Transient.
//
// Check them with IsFormat and IsIO:
//
//	readings, err := codec.LoadJSON(ctx, "flight.json")
//	if errors.IsFormat(err) {
//	    // corrupted or hand-edited artifact
//	}
//
// # Pipeline Errors
//
// A rejected reading is not an error value: Processor.AddReading returns
// false. A failing observer is wrapped in ErrCallbackFailed, logged and
// dropped; it never reaches the caller of AddReading.
package errors
