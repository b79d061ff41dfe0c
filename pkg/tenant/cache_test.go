package tenant

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, 10)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "t1:ai.model", "gpt-4o-mini", 0); err != nil {
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

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, 10)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "t1:ai.model", "old", 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "t1:ai.model"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestMemoryCacheDeletePrefix(t *testing.T) {
	c := NewMemoryCache(time.Minute, 10)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "t1:ai.model", "a", 0)
	c.Set(ctx, "t1:ai.base_url", "b", 0)
	c.Set(ctx, "t2:ai.model", "c", 0)

	if err := c.DeletePrefix(ctx, "t1:"); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}

	if _, ok, _ := c.Get(ctx, "t1:ai.model"); ok {
		t.Error("t1 entry survived prefix delete")
	}
	if _, ok, _ := c.Get(ctx, "t2:ai.model"); !ok {
		t.Error("t2 entry removed by t1 prefix delete")
	}
}

func TestMemoryCacheEvictsLRU(t *testing.T) {
	c := NewMemoryCache(time.Minute, 2)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", "1", 0)
	c.Set(ctx, "b", "2", 0)

	// Touch "a" so "b" is the eviction candidate.
	time.Sleep(time.Millisecond)
	c.Get(ctx, "a")
	time.Sleep(time.Millisecond)

	c.Set(ctx, "c", "3", 0)

	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Error("expected least recently used entry to be evicted")
	}
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Error("recently used entry was evicted")
	}
	if c.Size() != 2 {
		t.Errorf("size = %d, want 2", c.Size())
	}
}
