package proxy

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/chat"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/upstream"
)

// errInvalidBody is reported for unreadable or malformed JSON bodies.
var errInvalidBody = fmt.Errorf("invalid JSON in request body")

// upstreamFailure maps an upstream client error to a caller-visible status
// and message. The upstream's own status is passed through when known;
// transport failures become 502. Upstream error bodies are logged but never
// forwarded verbatim.
func upstreamFailure(err error) (int, string) {
	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		if upErr.StatusCode > 0 {
			return upErr.StatusCode, "upstream request failed"
		}
		return http.StatusBadGateway, "upstream service unavailable"
	}
	return http.StatusInternalServerError, "internal server error"
}

// storeFailure maps a chat store error to a caller-visible status and
// message.
func storeFailure(err error) (int, string) {
	var notFound *chat.NotFoundError
	if errors.As(err, &notFound) {
		return http.StatusNotFound, notFound.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}
