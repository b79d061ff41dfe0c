package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/chat"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/proxy/middleware"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/proxy/types"
)

// CreateConversation handles POST /ai/conversations.
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req types.CreateConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	conv := &chat.Conversation{
		ID:        uuid.New().String(),
		TenantID:  identity.TenantID,
		UserID:    identity.UserID,
		Title:     req.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.chats.Store().CreateConversation(r.Context(), conv); err != nil {
		status, msg := storeFailure(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

// ListConversations handles GET /ai/conversations. Archived conversations
// are included with ?archived=true.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	includeArchived := r.URL.Query().Get("archived") == "true"
	list, err := h.chats.Store().ListConversations(r.Context(),
		identity.TenantID, identity.UserID, includeArchived)
	if err != nil {
		status, msg := storeFailure(err)
		writeError(w, status, msg)
		return
	}
	if list == nil {
		list = []*chat.Conversation{}
	}

	writeJSON(w, http.StatusOK, list)
}

// GetConversation handles GET /ai/conversations/{id}.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	conv, err := h.chats.Store().GetConversation(r.Context(),
		identity.TenantID, r.PathValue("id"))
	if err != nil {
		status, msg := storeFailure(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// UpdateConversation handles PATCH /ai/conversations/{id}: rename and
// archive/unarchive.
func (h *Handler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req types.UpdateConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == nil && req.Archived == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	id := r.PathValue("id")
	store := h.chats.Store()

	if req.Title != nil {
		if err := store.RenameConversation(r.Context(), identity.TenantID, id, *req.Title); err != nil {
			status, msg := storeFailure(err)
			writeError(w, status, msg)
			return
		}
	}
	if req.Archived != nil {
		if err := store.SetArchived(r.Context(), identity.TenantID, id, *req.Archived); err != nil {
			status, msg := storeFailure(err)
			writeError(w, status, msg)
			return
		}
	}

	conv, err := store.GetConversation(r.Context(), identity.TenantID, id)
	if err != nil {
		status, msg := storeFailure(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// DeleteConversation handles DELETE /ai/conversations/{id}. Deletion is a
// soft delete; the row survives for audit purposes.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	err := h.chats.Store().DeleteConversation(r.Context(),
		identity.TenantID, r.PathValue("id"))
	if err != nil {
		status, msg := storeFailure(err)
		writeError(w, status, msg)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMessages handles GET /ai/conversations/{id}/messages.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	msgs, err := h.chats.Store().ListMessages(r.Context(),
		identity.TenantID, r.PathValue("id"))
	if err != nil {
		status, msg := storeFailure(err)
		writeError(w, status, msg)
		return
	}
	if msgs == nil {
		msgs = []*chat.Message{}
	}

	writeJSON(w, http.StatusOK, msgs)
}

// decodeJSON decodes a small JSON request body.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return errInvalidBody
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errInvalidBody
	}
	return nil
}
