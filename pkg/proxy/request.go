package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/proxy/types"
)

// maxRequestBytes bounds the completion request body.
const maxRequestBytes = 1 << 20 // 1MB

// parseCompletionRequest decodes and validates the completion request body.
func parseCompletionRequest(r *http.Request) (*types.CompletionRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body")
	}
	if len(body) > maxRequestBytes {
		return nil, fmt.Errorf("request body too large")
	}

	var req types.CompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("invalid JSON in request body")
	}

	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages is required and must not be empty")
	}
	for i, msg := range req.Messages {
		switch msg.Role {
		case types.RoleSystem, types.RoleUser, types.RoleAssistant:
		default:
			return nil, fmt.Errorf("messages[%d]: invalid role %q", i, msg.Role)
		}
	}

	return &req, nil
}

// lastUserContent returns the content of the newest user-role message,
// which anchors the stored conversation turn.
func lastUserContent(messages []types.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// hasSystemMessage reports whether the message list already carries a
// system-role entry.
func hasSystemMessage(messages []types.ChatMessage) bool {
	for _, msg := range messages {
		if msg.Role == types.RoleSystem {
			return true
		}
	}
	return false
}
