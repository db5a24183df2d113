// Package dispatcher runs media queries off the caller's goroutine.
//
// A Task moves through three states:
//
//	pending -> running -> completed
//
// Execute schedules the pipeline (plan, query, map) on a new goroutine and
// returns at once. When the pipeline finishes, the registered Listener is
// called exactly once with the full result. If the primary query fails the
// Listener is not called; the ErrorListener and Wait report the error.
//
// Tasks are single-use. Calling Execute twice returns ErrAlreadyStarted.
// There is no cancellation: the pipeline ignores cancellation of the
// context passed to Execute and runs to completion.
//
// Listeners run on the task goroutine unless SetDelivery installs a
// handoff, for example a send onto a channel drained by the caller.
package dispatcher
