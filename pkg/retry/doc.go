// Package retry runs an operation with exponential backoff until it succeeds,
// the attempts run out, the context ends, or the error is permanent.
//
// An error is permanent when it is wrapped with NonRetryable or classified as
// invalid or fatal by the errors package; those fail on the first attempt:
//
//	err := retry.Do(ctx, retry.Quick(), func() error {
//	    return sensor.Connect(ctx)
//	})
//
// Config.OnRetry is called before each backoff sleep, which is where callers
// log the failed attempt.
package retry
