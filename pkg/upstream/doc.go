// Package upstream owns outbound HTTP calls to the tenant-configured AI
// completion service.
//
// A call is classified once, when response headers arrive, as buffered or
// streaming, based on what the upstream actually returned rather than what the
// caller requested. Intermediaries (workflow engines in particular) are
// known to ignore a non-streaming request and still chunk transport-level
// bytes, so classification looks at both the content type and the transfer
// encoding. Classification and consumption are separate steps: Classify
// metadata is available immediately, the body is read exactly once by
// whichever relay path the classification selects.
//
// Completion calls are not idempotent and are never retried here.
package upstream
