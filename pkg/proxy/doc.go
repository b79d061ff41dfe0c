// Package proxy implements the AI completion relay: it resolves the
// calling tenant's upstream configuration, forwards the completion request,
// and delivers the response either as a single buffered body or as a
// pass-through byte stream, whichever the upstream actually returned.
//
// Every completion call produces exactly one audit record, written after
// the call's terminal state is known. When the request names a stored
// conversation, the relay also drives the assistant message lifecycle:
// placeholder before the upstream call, finalize once afterwards.
package proxy
