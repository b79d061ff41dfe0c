package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/config"
)

// maxErrorBodyBytes bounds how much of an upstream error body is kept for
// the error message.
const maxErrorBodyBytes = 4 * 1024

// Mode is the transport classification of an upstream response.
type Mode int

const (
	// ModeBuffered means the upstream returned a single-shot payload.
	ModeBuffered Mode = iota

	// ModeStreaming means the upstream returned an incremental byte stream.
	ModeStreaming
)

// String returns the mode name for logs and metrics labels.
func (m Mode) String() string {
	if m == ModeStreaming {
		return "streaming"
	}
	return "buffered"
}

// Client issues outbound calls to the upstream AI service. One client is
// shared across tenants; the per-tenant base URL and credential arrive with
// each request.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an upstream client with a pooled transport.
//
// There is deliberately no overall client timeout: a streamed completion
// may legitimately run for minutes. Header arrival is bounded by the
// configured timeout; body reads are bounded by the caller's context.
func NewClient(cfg config.UpstreamConfig) *Client {
	transport := &http.Transport{
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		logger:     slog.Default().With("component", "upstream.client"),
	}
}

// Request describes one outbound upstream call.
type Request struct {
	// BaseURL is the upstream service root, from tenant settings.
	BaseURL string

	// Method is the HTTP method.
	Method string

	// Path is appended to BaseURL.
	Path string

	// Body is the request payload.
	Body []byte

	// Headers are set on the outbound request. Content-Type defaults to
	// application/json when a body is present.
	Headers map[string]string
}

// Call is a classified, unconsumed upstream response.
type Call struct {
	// Mode is the transport classification, resolved once from the
	// response headers.
	Mode Mode

	// StatusCode is the upstream HTTP status.
	StatusCode int

	// Header is the upstream response header.
	Header http.Header

	// URL is the full request URL, kept for audit records.
	URL string

	resp     *http.Response
	consumed bool
}

// Do issues the call and classifies the response. Network failures and
// non-2xx statuses surface as *Error; the request is never retried because
// completion calls are not idempotent.
func (c *Client) Do(ctx context.Context, req Request) (*Call, error) {
	url := strings.TrimRight(req.BaseURL, "/") + req.Path

	var bodyReader io.Reader
	if req.Body != nil {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bodyReader)
	if err != nil {
		return nil, &Error{Cause: fmt.Errorf("failed to create request: %w", err)}
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if httpReq.Header.Get("Content-Type") == "" && req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("sending upstream request",
		"method", req.Method,
		"url", url,
		"body_bytes", len(req.Body),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		resp.Body.Close()
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    string(errorBody),
		}
	}

	call := &Call{
		Mode:       classify(resp),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		URL:        url,
		resp:       resp,
	}

	c.logger.Debug("upstream response classified",
		"url", url,
		"status", resp.StatusCode,
		"mode", call.Mode.String(),
	)

	return call, nil
}

// classify decides the transport mode from the response headers.
// Streaming iff the content type indicates an incremental event format OR
// the transfer encoding is chunked. This reflects what the upstream
// actually returned, independent of what was requested.
func classify(resp *http.Response) Mode {
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "text/event-stream") ||
		strings.Contains(contentType, "application/x-ndjson") {
		return ModeStreaming
	}

	for _, enc := range resp.TransferEncoding {
		if strings.EqualFold(enc, "chunked") {
			return ModeStreaming
		}
	}

	return ModeBuffered
}

// Consume reads the entire response body and closes it, returning owned
// bytes. It is the buffered-path counterpart to Body and may be called at
// most once.
func (c *Call) Consume() ([]byte, error) {
	if c.consumed {
		return nil, &ConsumedError{}
	}
	c.consumed = true

	defer c.resp.Body.Close()
	body, err := io.ReadAll(c.resp.Body)
	if err != nil {
		return nil, &Error{
			StatusCode: c.StatusCode,
			Message:    "failed to read response body",
			Cause:      err,
		}
	}
	return body, nil
}

// Body exposes the raw response stream for the streaming relay path.
// The caller owns closing it.
func (c *Call) Body() io.ReadCloser {
	c.consumed = true
	return c.resp.Body
}

// Close releases the response without consuming it.
func (c *Call) Close() error {
	return c.resp.Body.Close()
}
