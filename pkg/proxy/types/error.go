package types

// ErrorResponse is the uniform error envelope for every failure the proxy
// reports: a single human-readable string, never upstream internals
// verbatim.
type ErrorResponse struct {
	Error string `json:"error"`
}
