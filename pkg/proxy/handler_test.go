package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/internal/upstreamtest"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/audit"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/chat"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/config"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/proxy/middleware"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/tenant"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/upstream"
)

var testIdentity = middleware.Identity{
	TenantID:   "tenant-1",
	UserID:     "user-1",
	TenantName: "Acme",
	UserName:   "Ada",
}

type testEnv struct {
	handler    *Handler
	auditStore *audit.MemoryStore
	recorder   *audit.Recorder
	chatStore  *chat.SQLiteStore
	resolver   *tenant.Resolver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	tenantStore, err := tenant.NewSQLiteStore(filepath.Join(dir, "tenant.db"))
	if err != nil {
		t.Fatalf("tenant store: %v", err)
	}
	t.Cleanup(func() { tenantStore.Close() })

	cache := tenant.NewMemoryCache(time.Minute, 100)
	t.Cleanup(func() { cache.Close() })
	resolver := tenant.NewResolver(tenantStore, cache, time.Minute)

	chatStore, err := chat.NewSQLiteStore(filepath.Join(dir, "chat.db"))
	if err != nil {
		t.Fatalf("chat store: %v", err)
	}
	t.Cleanup(func() { chatStore.Close() })

	auditStore := audit.NewMemoryStore()
	recorder := audit.NewRecorder(auditStore, config.AuditConfig{
		Enabled:      true,
		AsyncBuffer:  64,
		WriteTimeout: time.Second,
		MaxBodyBytes: 1 << 20,
	})

	client := upstream.NewClient(config.UpstreamConfig{
		Timeout:             5 * time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     time.Minute,
	})

	return &testEnv{
		handler:    NewHandler(resolver, client, recorder, chat.NewManager(chatStore), nil),
		auditStore: auditStore,
		recorder:   recorder,
		chatStore:  chatStore,
		resolver:   resolver,
	}
}

// configure enables the AI feature for the test tenant against the given
// upstream.
func (env *testEnv) configure(t *testing.T, baseURL string) {
	t.Helper()
	ctx := context.Background()
	settings := map[string]string{
		tenant.KeyEnabled: "true",
		tenant.KeyBaseURL: baseURL,
		tenant.KeyAPIKey:  "sk-test",
		tenant.KeyModel:   "gpt-4o-mini",
	}
	for key, value := range settings {
		if err := env.resolver.Set(ctx, key, testIdentity.TenantID, value); err != nil {
			t.Fatalf("configure %s: %v", key, err)
		}
	}
}

// auditRecords drains the async recorder and returns everything written.
func (env *testEnv) auditRecords(t *testing.T) []*audit.Record {
	t.Helper()
	env.recorder.Close()
	records, err := env.auditStore.List(context.Background(), audit.Query{})
	if err != nil {
		t.Fatalf("audit list: %v", err)
	}
	return records
}

func (env *testEnv) newConversation(t *testing.T) *chat.Conversation {
	t.Helper()
	now := time.Now().UTC()
	conv := &chat.Conversation{
		ID:        "conv-1",
		TenantID:  testIdentity.TenantID,
		UserID:    testIdentity.UserID,
		Title:     "test",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := env.chatStore.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	return conv
}

func completionRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/ai/chat/completions", strings.NewReader(body))
	return req.WithContext(middleware.WithIdentity(req.Context(), testIdentity))
}

func TestCompletionsBufferedFidelity(t *testing.T) {
	upstreamBody := `{"choices":[{"message":{"content":"Hello!"}}],"usage":{"prompt_tokens":7,"completion_tokens":2,"total_tokens":9}}`
	srv := upstreamtest.NewBuffered(upstreamBody)
	defer srv.Close()

	env := newTestEnv(t)
	env.configure(t, srv.URL)

	rec := httptest.NewRecorder()
	env.handler.Completions(rec, completionRequest(`{"messages":[{"role":"user","content":"hi"}]}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	// Byte-identical forwarding.
	if rec.Body.String() != upstreamBody {
		t.Errorf("forwarded body = %q, want upstream body verbatim", rec.Body.String())
	}

	records := env.auditRecords(t)
	if len(records) != 1 {
		t.Fatalf("got %d audit records, want exactly 1", len(records))
	}
	r := records[0]
	if r.Mode != "buffered" {
		t.Errorf("mode = %q, want buffered", r.Mode)
	}
	if r.ResponseBody != upstreamBody {
		t.Errorf("audited body = %q", r.ResponseBody)
	}
	if r.TotalTokens != 9 {
		t.Errorf("total tokens = %d, want 9", r.TotalTokens)
	}
	if r.TenantID != testIdentity.TenantID {
		t.Errorf("tenant = %q", r.TenantID)
	}
}

func TestCompletionsStreamingPassThrough(t *testing.T) {
	lines := []string{
		`data: {"choices":[{"delta":{"content":"Hello"}}]}`,
		`data: {"choices":[{"delta":{"content":", world"}}]}`,
		`data: {"choices":[{"delta":{}}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`,
		`data: [DONE]`,
	}
	srv := upstreamtest.NewSSE(lines, 0)
	defer srv.Close()

	env := newTestEnv(t)
	env.configure(t, srv.URL)

	rec := httptest.NewRecorder()
	env.handler.Completions(rec, completionRequest(`{"messages":[{"role":"user","content":"hi"}],"stream":true}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("content type = %q", got)
	}
	// Pass-through fidelity: the caller sees the raw upstream bytes.
	want := strings.Join(lines, "\n") + "\n"
	if rec.Body.String() != want {
		t.Errorf("stream body = %q, want %q", rec.Body.String(), want)
	}

	records := env.auditRecords(t)
	if len(records) != 1 {
		t.Fatalf("got %d audit records, want exactly 1", len(records))
	}
	r := records[0]
	if r.Mode != "streaming" {
		t.Errorf("mode = %q, want streaming", r.Mode)
	}
	if r.ResponseBody != "Hello, world" {
		t.Errorf("accumulated text = %q, want %q", r.ResponseBody, "Hello, world")
	}
	if r.TotalTokens != 5 {
		t.Errorf("total tokens = %d, want 5", r.TotalTokens)
	}
	if r.Error != "" {
		t.Errorf("unexpected error detail %q", r.Error)
	}
}

func TestCompletionsItemEndStream(t *testing.T) {
	lines := []string{
		`{"type":"item","content":"Hel"}`,
		`not a valid chunk at all`,
		`{"type":"item","content":"lo"}`,
		`{"type":"end","usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`,
	}
	srv := upstreamtest.NewNDJSON(lines, 0)
	defer srv.Close()

	env := newTestEnv(t)
	env.configure(t, srv.URL)

	rec := httptest.NewRecorder()
	env.handler.Completions(rec, completionRequest(`{"messages":[{"role":"user","content":"hi"}],"stream":true}`))

	// Malformed line forwarded untouched, skipped by the accumulator.
	want := strings.Join(lines, "\n") + "\n"
	if rec.Body.String() != want {
		t.Errorf("stream body = %q", rec.Body.String())
	}

	records := env.auditRecords(t)
	if len(records) != 1 {
		t.Fatalf("got %d audit records", len(records))
	}
	if records[0].ResponseBody != "Hello" {
		t.Errorf("accumulated text = %q, want Hello", records[0].ResponseBody)
	}
}

func TestCompletionsUnconfiguredTenantFailsClosed(t *testing.T) {
	env := newTestEnv(t)
	// No settings at all: feature disabled, no credential.
	conv := env.newConversation(t)

	rec := httptest.NewRecorder()
	env.handler.Completions(rec, completionRequest(
		fmt.Sprintf(`{"messages":[{"role":"user","content":"hi"}],"conversation_id":%q}`, conv.ID)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("error envelope: %v", err)
	}
	if envelope.Error == "" {
		t.Error("expected non-empty error message")
	}

	// No audit record, no message rows.
	if records := env.auditRecords(t); len(records) != 0 {
		t.Errorf("got %d audit records, want 0", len(records))
	}
	msgs, err := env.chatStore.ListMessages(context.Background(), testIdentity.TenantID, conv.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages, want 0", len(msgs))
	}
}

func TestCompletionsConversationLifecycle(t *testing.T) {
	upstreamBody := `{"choices":[{"message":{"content":"The answer."}}],"usage":{"prompt_tokens":4,"completion_tokens":3,"total_tokens":7}}`
	srv := upstreamtest.NewBuffered(upstreamBody)
	defer srv.Close()

	env := newTestEnv(t)
	env.configure(t, srv.URL)
	conv := env.newConversation(t)

	rec := httptest.NewRecorder()
	env.handler.Completions(rec, completionRequest(
		fmt.Sprintf(`{"messages":[{"role":"user","content":"question?"}],"conversation_id":%q}`, conv.ID)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	msgs, err := env.chatStore.ListMessages(context.Background(), testIdentity.TenantID, conv.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want user + assistant", len(msgs))
	}
	if msgs[0].Role != chat.RoleUser || msgs[0].Content != "question?" {
		t.Errorf("user message = %s %q", msgs[0].Role, msgs[0].Content)
	}
	assistant := msgs[1]
	if assistant.Status != chat.StatusCompleted {
		t.Errorf("assistant status = %q", assistant.Status)
	}
	if assistant.Content != "The answer." {
		t.Errorf("assistant content = %q", assistant.Content)
	}
	if assistant.TotalTokens != 7 {
		t.Errorf("assistant tokens = %d, want 7", assistant.TotalTokens)
	}

	// The audit record references the stored rows.
	records := env.auditRecords(t)
	if len(records) != 1 {
		t.Fatalf("got %d audit records", len(records))
	}
	if records[0].ConversationID != conv.ID || records[0].MessageID != assistant.ID {
		t.Errorf("audit refs = %q/%q", records[0].ConversationID, records[0].MessageID)
	}
}

// brokenWriter fails every write after the first, simulating a caller that
// disconnected mid-stream.
type brokenWriter struct {
	*httptest.ResponseRecorder
	writes int
}

func (bw *brokenWriter) Write(p []byte) (int, error) {
	bw.writes++
	if bw.writes > 1 {
		return 0, fmt.Errorf("connection reset by peer")
	}
	return bw.ResponseRecorder.Write(p)
}

func (bw *brokenWriter) Flush() {}

func TestCompletionsStreamDisconnect(t *testing.T) {
	lines := []string{
		`data: {"choices":[{"delta":{"content":"first"}}]}`,
		`data: {"choices":[{"delta":{"content":"second"}}]}`,
		`data: [DONE]`,
	}
	// A delay between lines forces one relay write per line.
	srv := upstreamtest.NewSSE(lines, 20*time.Millisecond)
	defer srv.Close()

	env := newTestEnv(t)
	env.configure(t, srv.URL)
	conv := env.newConversation(t)

	bw := &brokenWriter{ResponseRecorder: httptest.NewRecorder()}
	done := make(chan struct{})
	go func() {
		defer close(done)
		env.handler.Completions(bw, completionRequest(
			fmt.Sprintf(`{"messages":[{"role":"user","content":"hi"}],"stream":true,"conversation_id":%q}`, conv.ID)))
	}()

	// The relay loop must terminate promptly after the write failure.
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("relay loop did not terminate after disconnect")
	}

	records := env.auditRecords(t)
	if len(records) != 1 {
		t.Fatalf("got %d audit records, want exactly 1", len(records))
	}
	r := records[0]
	if r.Error == "" {
		t.Error("expected disconnect noted in audit record")
	}
	// At most the content decodable from what was delivered.
	if r.ResponseBody != "first" {
		t.Errorf("accumulated text = %q, want %q", r.ResponseBody, "first")
	}

	msgs, _ := env.chatStore.ListMessages(context.Background(), testIdentity.TenantID, conv.ID)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[1].Status != chat.StatusError {
		t.Errorf("assistant status = %q, want error", msgs[1].Status)
	}
	if msgs[1].Content != "first" {
		t.Errorf("assistant partial content = %q", msgs[1].Content)
	}
}

func TestCompletionsUpstreamErrorStatus(t *testing.T) {
	srv := upstreamtest.NewFailing(http.StatusServiceUnavailable, `{"error":"overloaded"}`)
	defer srv.Close()

	env := newTestEnv(t)
	env.configure(t, srv.URL)

	rec := httptest.NewRecorder()
	env.handler.Completions(rec, completionRequest(`{"messages":[{"role":"user","content":"hi"}]}`))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want upstream's 503", rec.Code)
	}
	// Upstream internals are not leaked verbatim.
	if strings.Contains(rec.Body.String(), "overloaded") {
		t.Errorf("upstream body leaked: %s", rec.Body.String())
	}

	records := env.auditRecords(t)
	if len(records) != 1 {
		t.Fatalf("got %d audit records", len(records))
	}
	if records[0].Error == "" {
		t.Error("expected error detail in audit record")
	}
}

func TestCompletionsInvalidRequest(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty messages", `{"messages":[]}`},
		{"bad role", `{"messages":[{"role":"robot","content":"hi"}]}`},
		{"malformed json", `{"messages":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.handler.Completions(rec, completionRequest(tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

// captureServer records the request body it receives and answers with a
// fixed buffered completion.
func captureServer(captured *[]byte) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*captured = body
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", "2")
		w.Write([]byte(`{}`))
	}))
}

func TestCompletionsSystemPromptInjection(t *testing.T) {
	var captured []byte
	srv := captureServer(&captured)
	defer srv.Close()

	env := newTestEnv(t)
	env.configure(t, srv.URL)
	err := env.resolver.Set(context.Background(), tenant.KeySystemPrompt,
		testIdentity.TenantID, "You assist {user_name} at {tenant_name}.")
	if err != nil {
		t.Fatalf("set prompt: %v", err)
	}

	rec := httptest.NewRecorder()
	env.handler.Completions(rec, completionRequest(`{"messages":[{"role":"user","content":"hi"}]}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var sent struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(captured, &sent); err != nil {
		t.Fatalf("captured body: %v", err)
	}
	if len(sent.Messages) != 2 {
		t.Fatalf("got %d upstream messages, want system + user", len(sent.Messages))
	}
	if sent.Messages[0].Role != "system" {
		t.Errorf("first role = %q", sent.Messages[0].Role)
	}
	if want := "You assist Ada at Acme."; sent.Messages[0].Content != want {
		t.Errorf("system prompt = %q, want %q", sent.Messages[0].Content, want)
	}
}

func TestCompletionsSystemPromptNotDuplicated(t *testing.T) {
	var captured []byte
	srv := captureServer(&captured)
	defer srv.Close()

	env := newTestEnv(t)
	env.configure(t, srv.URL)
	err := env.resolver.Set(context.Background(), tenant.KeySystemPrompt,
		testIdentity.TenantID, "tenant default prompt")
	if err != nil {
		t.Fatalf("set prompt: %v", err)
	}

	rec := httptest.NewRecorder()
	env.handler.Completions(rec, completionRequest(
		`{"messages":[{"role":"system","content":"caller prompt"},{"role":"user","content":"hi"}]}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var sent struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(captured, &sent); err != nil {
		t.Fatalf("captured body: %v", err)
	}
	if len(sent.Messages) != 2 {
		t.Fatalf("got %d upstream messages, want 2 (no injection)", len(sent.Messages))
	}
	if sent.Messages[0].Content != "caller prompt" {
		t.Errorf("system message = %q, caller's prompt replaced", sent.Messages[0].Content)
	}
}

func TestCompletionsStreamRequestedButUpstreamBuffered(t *testing.T) {
	upstreamBody := `{"choices":[{"message":{"content":"whole"}}]}`
	srv := upstreamtest.NewBuffered(upstreamBody)
	defer srv.Close()

	env := newTestEnv(t)
	env.configure(t, srv.URL)

	rec := httptest.NewRecorder()
	// Caller asks for a stream; delivery follows the upstream's actual
	// transport.
	env.handler.Completions(rec, completionRequest(`{"messages":[{"role":"user","content":"hi"}],"stream":true}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q, want application/json", got)
	}
	if rec.Body.String() != upstreamBody {
		t.Errorf("body = %q", rec.Body.String())
	}

	records := env.auditRecords(t)
	if len(records) != 1 || records[0].Mode != "buffered" {
		t.Fatalf("audit records = %+v", records)
	}
}

func TestCompletionsUnauthenticated(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/ai/chat/completions",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	rec := httptest.NewRecorder()
	env.handler.Completions(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
