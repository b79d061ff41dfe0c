package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/config"
)

func newTestRedisCache(t *testing.T) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)

	cache, err := NewRedisCache(context.Background(), config.RedisConfig{
		Addr: mr.Addr(),
	})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestRedisCacheSetGet(t *testing.T) {
	c := newTestRedisCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "t1:ai.model", "gpt-4o-mini", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	value, ok, err := c.Get(ctx, "t1:ai.model")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || value != "gpt-4o-mini" {
		t.Errorf("got (%q, %v), want hit", value, ok)
	}

	if _, ok, _ := c.Get(ctx, "t1:missing"); ok {
		t.Error("expected miss for unset key")
	}
}

func TestRedisCacheDelete(t *testing.T) {
	c := newTestRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "t1:ai.model", "a", time.Minute)
	if err := c.Delete(ctx, "t1:ai.model"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "t1:ai.model"); ok {
		t.Error("entry survived delete")
	}
}

func TestRedisCacheDeletePrefix(t *testing.T) {
	c := newTestRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "t1:ai.model", "a", time.Minute)
	c.Set(ctx, "t1:ai.base_url", "b", time.Minute)
	c.Set(ctx, "t2:ai.model", "c", time.Minute)

	if err := c.DeletePrefix(ctx, "t1:"); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}

	if _, ok, _ := c.Get(ctx, "t1:ai.model"); ok {
		t.Error("t1 entry survived prefix delete")
	}
	if _, ok, _ := c.Get(ctx, "t1:ai.base_url"); ok {
		t.Error("t1 entry survived prefix delete")
	}
	if _, ok, _ := c.Get(ctx, "t2:ai.model"); !ok {
		t.Error("t2 entry removed by t1 prefix delete")
	}
}

func TestRedisCacheConnectionFailure(t *testing.T) {
	_, err := NewRedisCache(context.Background(), config.RedisConfig{
		Addr: "127.0.0.1:1",
	})
	if err == nil {
		t.Fatal("expected connection error for unreachable redis")
	}
}
