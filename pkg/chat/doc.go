// Package chat persists conversations and their messages, and manages the
// lifecycle of assistant messages produced by completion requests.
//
// An assistant message starts as an in-progress placeholder created before
// the upstream call, and is finalized exactly once with the completed text
// or an error. The finalize guard lives in the store: the status update is
// conditional on the row still being in progress, so racing finalizers and
// late disconnect handlers cannot overwrite a terminal state.
package chat
