package tenant

import (
	"context"
	"strings"
	"time"
)

// Setting keys consumed by the AI completion proxy. Other dashboard
// features store their own keys in the same table; the proxy only ever
// reads these five.
const (
	// KeyBaseURL is the upstream AI service base URL.
	KeyBaseURL = "ai.base_url"

	// KeyAPIKey is the upstream AI service credential.
	KeyAPIKey = "ai.api_key"

	// KeyModel is the default model when the request does not override it.
	KeyModel = "ai.model"

	// KeySystemPrompt is the default system prompt template. It may contain
	// {tenant_name}, {user_name}, and {date} placeholders.
	KeySystemPrompt = "ai.system_prompt"

	// KeyEnabled is the AI feature flag ("true"/"false").
	KeyEnabled = "ai.enabled"
)

// Settings is an immutable snapshot of a tenant's AI configuration,
// resolved once per completion call.
type Settings struct {
	TenantID     string
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	Enabled      bool
}

// Configured reports whether the snapshot is usable for a completion call:
// the feature is enabled and both the upstream URL and credential are set.
func (s *Settings) Configured() bool {
	return s.Enabled && s.BaseURL != "" && s.APIKey != ""
}

// PromptVars are the values substituted into system prompt placeholders.
type PromptVars struct {
	TenantName string
	UserName   string
}

// RenderPrompt substitutes {tenant_name}, {user_name}, and {date}
// placeholders in a prompt template. Unknown placeholders are left as-is.
func RenderPrompt(template string, vars PromptVars) string {
	r := strings.NewReplacer(
		"{tenant_name}", vars.TenantName,
		"{user_name}", vars.UserName,
		"{date}", time.Now().Format("2006-01-02"),
	)
	return r.Replace(template)
}

// Store is the persistence interface for tenant settings.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for a tenant-scoped key.
	// The second return value is false when the key is not set.
	Get(ctx context.Context, tenantID, key string) (string, bool, error)

	// Set writes the value for a tenant-scoped key, replacing any previous
	// value.
	Set(ctx context.Context, tenantID, key, value string) error

	// Delete removes a tenant-scoped key.
	Delete(ctx context.Context, tenantID, key string) error

	// Close releases resources held by the store.
	Close() error
}

// Cache is the read-through cache in front of the settings store.
// Implementations must be safe for concurrent use; a cache failure is never
// fatal, callers fall back to the store.
type Cache interface {
	// Get returns a cached value. The second return value is false on miss
	// or expiry.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a value with a TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes a single cached value.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all cached values whose key starts with prefix.
	// Used to invalidate one tenant's entries.
	DeletePrefix(ctx context.Context, prefix string) error

	// Close releases resources held by the cache.
	Close() error
}
