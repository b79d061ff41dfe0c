package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/chat"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/proxy/middleware"
)

func conversationRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.WithIdentity(req.Context(), testIdentity))
}

func decodeConversation(t *testing.T, rec *httptest.ResponseRecorder) *chat.Conversation {
	t.Helper()
	var conv chat.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
		t.Fatalf("decode conversation: %v (body %s)", err, rec.Body.String())
	}
	return &conv
}

func TestCreateAndGetConversation(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.CreateConversation(rec, conversationRequest(
		http.MethodPost, "/ai/conversations", `{"title":"quarterly report"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decodeConversation(t, rec)
	if created.ID == "" {
		t.Fatal("created conversation has no ID")
	}
	if created.Title != "quarterly report" {
		t.Errorf("title = %q", created.Title)
	}
	if created.TenantID != testIdentity.TenantID || created.UserID != testIdentity.UserID {
		t.Errorf("ownership = %s/%s", created.TenantID, created.UserID)
	}

	rec = httptest.NewRecorder()
	req := conversationRequest(http.MethodGet, "/ai/conversations/"+created.ID, "")
	req.SetPathValue("id", created.ID)
	env.handler.GetConversation(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if got := decodeConversation(t, rec); got.ID != created.ID {
		t.Errorf("got ID %q, want %q", got.ID, created.ID)
	}
}

func TestGetConversationNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	req := conversationRequest(http.MethodGet, "/ai/conversations/nope", "")
	req.SetPathValue("id", "nope")
	env.handler.GetConversation(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListConversationsFiltersArchived(t *testing.T) {
	env := newTestEnv(t)

	for _, title := range []string{"active one", "to archive"} {
		rec := httptest.NewRecorder()
		env.handler.CreateConversation(rec, conversationRequest(
			http.MethodPost, "/ai/conversations", `{"title":"`+title+`"}`))
		if rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d", rec.Code)
		}
		if title == "to archive" {
			conv := decodeConversation(t, rec)
			patch := httptest.NewRecorder()
			req := conversationRequest(http.MethodPatch,
				"/ai/conversations/"+conv.ID, `{"archived":true}`)
			req.SetPathValue("id", conv.ID)
			env.handler.UpdateConversation(patch, req)
			if patch.Code != http.StatusOK {
				t.Fatalf("archive status = %d", patch.Code)
			}
		}
	}

	rec := httptest.NewRecorder()
	env.handler.ListConversations(rec, conversationRequest(
		http.MethodGet, "/ai/conversations", ""))
	var active []*chat.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &active); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(active) != 1 || active[0].Title != "active one" {
		t.Errorf("default list = %+v, want only the active conversation", active)
	}

	rec = httptest.NewRecorder()
	env.handler.ListConversations(rec, conversationRequest(
		http.MethodGet, "/ai/conversations?archived=true", ""))
	var all []*chat.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("archived list has %d conversations, want 2", len(all))
	}
}

func TestUpdateConversationRename(t *testing.T) {
	env := newTestEnv(t)
	conv := env.newConversation(t)

	rec := httptest.NewRecorder()
	req := conversationRequest(http.MethodPatch,
		"/ai/conversations/"+conv.ID, `{"title":"renamed"}`)
	req.SetPathValue("id", conv.ID)
	env.handler.UpdateConversation(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeConversation(t, rec); got.Title != "renamed" {
		t.Errorf("title = %q, want renamed", got.Title)
	}
}

func TestUpdateConversationEmptyPatch(t *testing.T) {
	env := newTestEnv(t)
	conv := env.newConversation(t)

	rec := httptest.NewRecorder()
	req := conversationRequest(http.MethodPatch,
		"/ai/conversations/"+conv.ID, `{}`)
	req.SetPathValue("id", conv.ID)
	env.handler.UpdateConversation(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteConversationIsSoft(t *testing.T) {
	env := newTestEnv(t)
	conv := env.newConversation(t)

	rec := httptest.NewRecorder()
	req := conversationRequest(http.MethodDelete, "/ai/conversations/"+conv.ID, "")
	req.SetPathValue("id", conv.ID)
	env.handler.DeleteConversation(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	// Gone from the API.
	rec = httptest.NewRecorder()
	req = conversationRequest(http.MethodGet, "/ai/conversations/"+conv.ID, "")
	req.SetPathValue("id", conv.ID)
	env.handler.GetConversation(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestConversationTenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	conv := env.newConversation(t)

	other := middleware.Identity{TenantID: "tenant-2", UserID: "user-9"}
	req := httptest.NewRequest(http.MethodGet, "/ai/conversations/"+conv.ID, nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), other))
	req.SetPathValue("id", conv.ID)

	rec := httptest.NewRecorder()
	env.handler.GetConversation(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-tenant get = %d, want 404", rec.Code)
	}
}

func TestListMessagesEmptyConversation(t *testing.T) {
	env := newTestEnv(t)
	conv := env.newConversation(t)

	rec := httptest.NewRecorder()
	req := conversationRequest(http.MethodGet,
		"/ai/conversations/"+conv.ID+"/messages", "")
	req.SetPathValue("id", conv.ID)
	env.handler.ListMessages(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// Empty array, never null.
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestConversationHandlersRequireIdentity(t *testing.T) {
	env := newTestEnv(t)

	handlers := map[string]http.HandlerFunc{
		"create": env.handler.CreateConversation,
		"list":   env.handler.ListConversations,
		"get":    env.handler.GetConversation,
		"update": env.handler.UpdateConversation,
		"delete": env.handler.DeleteConversation,
	}
	for name, fn := range handlers {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ai/conversations", nil)
			rec := httptest.NewRecorder()
			fn(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}
