package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// readyCheckTimeout bounds each dependency probe on /ready.
const readyCheckTimeout = 2 * time.Second

// handleHealth is a liveness probe: it answers as long as the process
// serves HTTP.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleReady is a readiness probe: it runs each registered dependency
// check and reports 503 when any fails.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := map[string]string{}

	for name, check := range s.readyChecks {
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		err := check(ctx)
		cancel()

		if err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
		} else {
			checks[name] = "ok"
		}
	}

	body := map[string]any{"checks": checks}
	if status == http.StatusOK {
		body["status"] = "ready"
	} else {
		body["status"] = "unavailable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
