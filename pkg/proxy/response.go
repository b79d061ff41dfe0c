package proxy

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/proxy/types"
)

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// writeError writes the uniform error envelope. Only valid before any
// response bytes have been sent; the callers enforce that.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, types.ErrorResponse{Error: message})
}

// streamHeaders prepares the response for pass-through streaming: the
// upstream's framing content type, no intermediary caching, no proxy
// buffering.
func streamHeaders(w http.ResponseWriter, contentType string) {
	if contentType == "" {
		contentType = "text/event-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}
