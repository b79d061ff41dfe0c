// Aidash is the dashboard AI backend: a multi-tenant completion proxy with
// conversation persistence and audit logging.
//
// It sits between the dashboard frontend and the upstream AI service,
// providing:
//   - Per-tenant upstream configuration (base URL, credential, model, prompt)
//   - Streaming and buffered completion pass-through
//   - Conversation and message persistence
//   - Asynchronous audit records with scheduled retention pruning
//
// Usage:
//
//	# Start the backend with default configuration
//	aidash run
//
//	# Start with a custom configuration file
//	aidash run --config /path/to/config.yaml
//
//	# Show version information
//	aidash version
package main

func main() {
	Execute()
}
