package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/audit"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/chat"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/proxy/middleware"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/proxy/types"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/stream"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/telemetry/metrics"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/tenant"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/upstream"
)

// completionsPath is the path forwarded to the upstream service.
const completionsPath = "/chat/completions"

// Handler serves the completion proxy endpoint.
type Handler struct {
	resolver *tenant.Resolver
	client   *upstream.Client
	recorder *audit.Recorder
	chats    *chat.Manager
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewHandler creates the completion handler. metrics may be nil when the
// metrics endpoint is disabled.
func NewHandler(resolver *tenant.Resolver, client *upstream.Client, recorder *audit.Recorder, chats *chat.Manager, collector *metrics.Collector) *Handler {
	return &Handler{
		resolver: resolver,
		client:   client,
		recorder: recorder,
		chats:    chats,
		metrics:  collector,
		logger:   slog.Default().With("component", "proxy.handler"),
	}
}

// Completions handles POST /ai/chat/completions.
//
// The tenant comes from the authenticated binding. Configuration gaps fail
// closed with 400 before anything is persisted: no audit record, no
// placeholder message. After the upstream call, delivery branches on the
// actual transport classification regardless of what the caller requested.
func (h *Handler) Completions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	req, err := parseCompletionRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	settings, err := h.resolver.Snapshot(ctx, identity.TenantID)
	if err != nil {
		h.logger.Error("failed to resolve tenant settings",
			"tenant_id", identity.TenantID,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !settings.Configured() {
		h.logger.Warn("completion rejected: tenant not configured",
			"tenant_id", identity.TenantID,
			"enabled", settings.Enabled,
		)
		writeError(w, http.StatusBadRequest, "AI is not configured for this tenant")
		return
	}

	model := req.Model
	if model == "" {
		model = settings.Model
	}
	messages := h.withSystemPrompt(req, settings, identity)

	// Persist the conversation turn before dispatching: the placeholder
	// anchors finalize regardless of how the call ends.
	var turn *chat.Turn
	if req.ConversationID != "" {
		turn, err = h.chats.Begin(ctx, identity.TenantID, req.ConversationID,
			lastUserContent(req.Messages), model)
		if err != nil {
			status, msg := storeFailure(err)
			writeError(w, status, msg)
			return
		}
	}

	upstreamBody, err := json.Marshal(types.UpstreamRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		Stream:      req.Stream,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	started := time.Now()

	call, err := h.client.Do(ctx, upstream.Request{
		BaseURL: settings.BaseURL,
		Method:  http.MethodPost,
		Path:    completionsPath,
		Body:    upstreamBody,
		Headers: map[string]string{
			"Authorization": "Bearer " + settings.APIKey,
		},
	})
	if err != nil {
		status, msg := upstreamFailure(err)
		h.logger.Error("upstream call failed",
			"tenant_id", identity.TenantID,
			"model", model,
			"status", status,
			"error", err,
		)
		writeError(w, status, msg)

		fctx := finalizeContext(ctx)
		if turn != nil {
			h.finalizeTurn(fctx, turn, func() error {
				return turn.Fail(fctx, "", msg, status)
			})
		}
		h.audit(r, identity, callOutcome{
			mode:        upstream.ModeBuffered.String(),
			statusCode:  status,
			model:       model,
			requestBody: upstreamBody,
			errDetail:   err.Error(),
			duration:    time.Since(started),
			turn:        turn,
		})
		h.observe(model, upstream.ModeBuffered.String(), "error", time.Since(started), nil)
		return
	}

	switch call.Mode {
	case upstream.ModeStreaming:
		h.finishStreaming(w, r, identity, call, turn, model, upstreamBody, started)
	default:
		h.finishBuffered(w, r, identity, call, turn, model, upstreamBody, started)
	}
}

// withSystemPrompt prepends the resolved system prompt unless the message
// list already carries a system entry. An explicit request override wins
// over the tenant default.
func (h *Handler) withSystemPrompt(req *types.CompletionRequest, settings *tenant.Settings, identity middleware.Identity) []types.ChatMessage {
	if hasSystemMessage(req.Messages) {
		return req.Messages
	}

	template := settings.SystemPrompt
	if req.SystemPrompt != "" {
		template = req.SystemPrompt
	}
	if template == "" {
		return req.Messages
	}

	rendered := tenant.RenderPrompt(template, tenant.PromptVars{
		TenantName: identity.TenantName,
		UserName:   identity.UserName,
	})

	out := make([]types.ChatMessage, 0, len(req.Messages)+1)
	out = append(out, types.ChatMessage{Role: types.RoleSystem, Content: rendered})
	return append(out, req.Messages...)
}

// finishBuffered consumes the whole upstream body, forwards it byte for
// byte, then persists the terminal state.
func (h *Handler) finishBuffered(w http.ResponseWriter, r *http.Request, identity middleware.Identity, call *upstream.Call, turn *chat.Turn, model string, upstreamBody []byte, started time.Time) {
	ctx := r.Context()

	respBody, err := call.Consume()
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to read upstream response")

		fctx := finalizeContext(ctx)
		if turn != nil {
			h.finalizeTurn(fctx, turn, func() error {
				return turn.Fail(fctx, "", "failed to read upstream response", http.StatusBadGateway)
			})
		}
		h.audit(r, identity, callOutcome{
			mode:        call.Mode.String(),
			statusCode:  http.StatusBadGateway,
			model:       model,
			upstreamURL: call.URL,
			requestBody: upstreamBody,
			errDetail:   err.Error(),
			duration:    time.Since(started),
			turn:        turn,
		})
		h.observe(model, call.Mode.String(), "error", time.Since(started), nil)
		return
	}

	contentType := call.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(call.StatusCode)
	if _, err := w.Write(respBody); err != nil {
		h.logger.Warn("caller went away before buffered response delivery",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
	}

	usage := stream.ExtractUsage(respBody)
	content := stream.ExtractMessageContent(respBody)
	duration := time.Since(started)

	fctx := finalizeContext(ctx)
	if turn != nil {
		h.finalizeTurn(fctx, turn, func() error {
			p, c, t := usageTriple(usage)
			return turn.Complete(fctx, content, call.StatusCode, p, c, t)
		})
	}
	h.audit(r, identity, callOutcome{
		mode:         call.Mode.String(),
		statusCode:   call.StatusCode,
		model:        model,
		upstreamURL:  call.URL,
		requestBody:  upstreamBody,
		responseBody: string(respBody),
		usage:        usage,
		duration:     duration,
		turn:         turn,
	})
	h.observe(model, call.Mode.String(), "success", duration, usage)
}

// finishStreaming relays the upstream byte stream and persists the terminal
// state afterwards. Once the stream headers go out no error can change the
// status code; failures only close the connection early.
func (h *Handler) finishStreaming(w http.ResponseWriter, r *http.Request, identity middleware.Identity, call *upstream.Call, turn *chat.Turn, model string, upstreamBody []byte, started time.Time) {
	ctx := r.Context()

	streamHeaders(w, call.Header.Get("Content-Type"))
	w.WriteHeader(http.StatusOK)

	res := relayStream(ctx, w, call.Body())
	duration := time.Since(started)

	status := "success"
	errDetail := ""
	switch {
	case res.disconnected:
		status = "disconnect"
		errDetail = "caller disconnected mid-stream"
	case res.err != nil:
		status = "error"
		errDetail = "upstream stream failed: " + res.err.Error()
	}

	if errDetail != "" {
		h.logger.Warn("stream ended early",
			"request_id", middleware.GetRequestID(ctx),
			"tenant_id", identity.TenantID,
			"bytes_sent", res.bytesSent,
			"detail", errDetail,
		)
	}

	fctx := finalizeContext(ctx)
	if turn != nil {
		h.finalizeTurn(fctx, turn, func() error {
			if errDetail != "" {
				return turn.Fail(fctx, res.text, errDetail, http.StatusOK)
			}
			p, c, t := usageTriple(res.usage)
			return turn.Complete(fctx, res.text, http.StatusOK, p, c, t)
		})
	}
	h.audit(r, identity, callOutcome{
		mode:         call.Mode.String(),
		statusCode:   http.StatusOK,
		model:        model,
		upstreamURL:  call.URL,
		requestBody:  upstreamBody,
		responseBody: res.text,
		usage:        res.usage,
		errDetail:    errDetail,
		duration:     duration,
		turn:         turn,
	})
	h.observe(model, call.Mode.String(), status, duration, res.usage)
}

// finalizeTurn runs a finalize call, logging failures instead of surfacing
// them: the caller's response always takes priority over persistence.
func (h *Handler) finalizeTurn(ctx context.Context, turn *chat.Turn, fn func() error) {
	if err := fn(); err != nil {
		h.logger.Error("failed to finalize assistant message",
			"message_id", turn.MessageID(),
			"error", err,
		)
	}
}

// callOutcome collects the terminal facts of one completion call for the
// audit record.
type callOutcome struct {
	mode         string
	statusCode   int
	model        string
	upstreamURL  string
	requestBody  []byte
	responseBody string
	usage        *stream.Usage
	errDetail    string
	duration     time.Duration
	turn         *chat.Turn
}

// audit enqueues the call's single audit record. Failures are logged by
// the recorder and never reach the caller.
func (h *Handler) audit(r *http.Request, identity middleware.Identity, outcome callOutcome) {
	record := &audit.Record{
		RequestID:      middleware.GetRequestID(r.Context()),
		TenantID:       identity.TenantID,
		UserID:         identity.UserID,
		Method:         r.Method,
		Path:           r.URL.Path,
		UpstreamURL:    outcome.upstreamURL,
		Model:          outcome.model,
		RequestHeaders: selectedHeaders(r),
		Mode:           outcome.mode,
		StatusCode:     outcome.statusCode,
		RequestBody:    string(outcome.requestBody),
		ResponseBody:   outcome.responseBody,
		DurationMS:     outcome.duration.Milliseconds(),
		Error:          outcome.errDetail,
	}
	if outcome.usage != nil {
		record.PromptTokens = outcome.usage.PromptTokens
		record.CompletionTokens = outcome.usage.CompletionTokens
		record.TotalTokens = outcome.usage.TotalTokens
	}
	if outcome.turn != nil {
		record.ConversationID = outcome.turn.ConversationID()
		record.MessageID = outcome.turn.MessageID()
	}

	_ = h.recorder.Record(record)
}

// observe records completion metrics when the collector is enabled.
func (h *Handler) observe(model, mode, status string, duration time.Duration, usage *stream.Usage) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordCompletion(model, mode, status, duration)
	if usage != nil {
		h.metrics.RecordTokens(model, usage.PromptTokens, usage.CompletionTokens)
	}
}

// selectedHeaders JSON-encodes the non-sensitive request headers kept in
// audit records.
func selectedHeaders(r *http.Request) string {
	selected := map[string]string{}
	if ua := r.UserAgent(); ua != "" {
		selected["user-agent"] = ua
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		selected["content-type"] = ct
	}
	if len(selected) == 0 {
		return ""
	}
	encoded, err := json.Marshal(selected)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// usageTriple unpacks a usage report, zero when absent.
func usageTriple(usage *stream.Usage) (prompt, completion, total int) {
	if usage == nil {
		return 0, 0, 0
	}
	return usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens
}
