// Package upstreamtest provides fake upstream AI services for tests:
// buffered JSON completions, SSE delta-envelope streams, and ndjson
// item/end streams.
package upstreamtest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"
)

// NewBuffered returns a server answering every request with a single JSON
// body.
func NewBuffered(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}))
}

// NewFailing returns a server answering every request with the given
// status and body.
func NewFailing(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

// NewSSE returns a server streaming the given lines as a text/event-stream
// response, one line per flush, pausing delay between lines.
func NewSSE(lines []string, delay time.Duration) *httptest.Server {
	return newStreaming("text/event-stream", lines, delay)
}

// NewNDJSON returns a server streaming the given lines as an ndjson
// response, one line per flush, pausing delay between lines.
func NewNDJSON(lines []string, delay time.Duration) *httptest.Server {
	return newStreaming("application/x-ndjson", lines, delay)
}

func newStreaming(contentType string, lines []string, delay time.Duration) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)

		flusher, _ := w.(http.Flusher)
		for i, line := range lines {
			if i > 0 && delay > 0 {
				select {
				case <-r.Context().Done():
					return
				case <-time.After(delay):
				}
			}
			if _, err := w.Write([]byte(line + "\n")); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
}
