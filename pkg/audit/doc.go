// Package audit records one immutable record per completion request after
// the request reaches a terminal state. Records capture what was sent
// upstream, what came back (reconstructed text for streams), token usage,
// and timing, keyed to the tenant and user that made the call.
//
// Writes are asynchronous: the recorder enqueues records to a background
// worker so the request path never blocks on storage. A retention pruner
// enforces age and count limits on a cron schedule.
package audit
