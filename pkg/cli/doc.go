// Package cli provides command-line helpers for the aidash command:
// typed command errors and signal-aware contexts for graceful shutdown.
package cli
