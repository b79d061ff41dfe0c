package tenant

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// Resolver resolves tenant-scoped settings through a read-through cache.
//
// Reads tolerate a stale cache up to the TTL; writes go to the store first
// and then invalidate, so a subsequent read repopulates from the store. A
// cache failure is downgraded to a store read and logged, never surfaced.
type Resolver struct {
	store  Store
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewResolver creates a settings resolver.
func NewResolver(store Store, cache Cache, ttl time.Duration) *Resolver {
	return &Resolver{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: slog.Default().With("component", "tenant.resolver"),
	}
}

// Get returns the value for a tenant-scoped key, consulting the cache first.
// The second return value is false when the key is not set for the tenant.
func (r *Resolver) Get(ctx context.Context, key, tenantID string) (string, bool, error) {
	cacheKey := tenantID + ":" + key

	if value, ok, err := r.cache.Get(ctx, cacheKey); err == nil && ok {
		return value, true, nil
	} else if err != nil {
		r.logger.Warn("settings cache read failed, falling back to store",
			"tenant_id", tenantID,
			"key", key,
			"error", err,
		)
	}

	value, ok, err := r.store.Get(ctx, tenantID, key)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}

	if err := r.cache.Set(ctx, cacheKey, value, r.ttl); err != nil {
		r.logger.Warn("settings cache write failed",
			"tenant_id", tenantID,
			"key", key,
			"error", err,
		)
	}

	return value, true, nil
}

// Set writes a tenant-scoped setting and invalidates the cached value.
func (r *Resolver) Set(ctx context.Context, key, tenantID, value string) error {
	if err := r.store.Set(ctx, tenantID, key, value); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, tenantID+":"+key); err != nil {
		r.logger.Warn("settings cache invalidation failed",
			"tenant_id", tenantID,
			"key", key,
			"error", err,
		)
	}
	return nil
}

// Clear invalidates all cached settings for a tenant. Configuration update
// operations elsewhere in the dashboard call this after bulk writes.
func (r *Resolver) Clear(ctx context.Context, tenantID string) error {
	return r.cache.DeletePrefix(ctx, tenantID+":")
}

// ClearAll invalidates the whole settings cache, e.g. after a configuration
// file reload.
func (r *Resolver) ClearAll(ctx context.Context) error {
	return r.cache.DeletePrefix(ctx, "")
}

// Snapshot resolves the AI settings for a tenant into an immutable view.
// Missing keys resolve to zero values; the caller decides whether the
// snapshot is sufficiently configured via Settings.Configured.
func (r *Resolver) Snapshot(ctx context.Context, tenantID string) (*Settings, error) {
	s := &Settings{TenantID: tenantID}

	var err error
	if s.BaseURL, _, err = r.Get(ctx, KeyBaseURL, tenantID); err != nil {
		return nil, err
	}
	if s.APIKey, _, err = r.Get(ctx, KeyAPIKey, tenantID); err != nil {
		return nil, err
	}
	if s.Model, _, err = r.Get(ctx, KeyModel, tenantID); err != nil {
		return nil, err
	}
	if s.SystemPrompt, _, err = r.Get(ctx, KeySystemPrompt, tenantID); err != nil {
		return nil, err
	}

	enabled, ok, err := r.Get(ctx, KeyEnabled, tenantID)
	if err != nil {
		return nil, err
	}
	if ok {
		s.Enabled, _ = strconv.ParseBool(enabled)
	}

	return s, nil
}
