// Package types defines the wire types of the completion proxy's HTTP
// boundary: the completion request body, the conversation payloads, and
// the uniform error envelope.
package types
