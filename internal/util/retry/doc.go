// Package retry provides exponential backoff for transient cloud failures.
//
// [WithExponentialBackoff] retries an operation until it succeeds, returns an
// error marked with [Fatal], or runs out of attempts. [Backoff] exposes the
// same delay schedule to callers that drive their own loop, such as the
// status poller.
package retry
