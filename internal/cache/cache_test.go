package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

func TestNilCacheIsNoop(t *testing.T) {
	ctx := context.Background()

	for name, c := range map[string]*Cache{
		"nil cache":  nil,
		"nil client": New(nil, time.Minute),
	} {
		t.Run(name, func(t *testing.T) {
			var dest []int
			if c.GetJSON(ctx, "k", &dest) {
				t.Fatal("GetJSON reported a hit on a disabled cache")
			}
			c.SetJSONAt(ctx, "k", []int{1}, c.TablesGeneration(ctx))
			if c.GetJSON(ctx, "k", &dest) {
				t.Fatal("disabled cache stored a value")
			}
			c.InvalidateTables(ctx)
			c.InvalidateMenu(ctx)
			c.Notify(Event{EventType: EventBillPaid})
			if err := c.Publish(ctx, Event{EventType: EventOrderCreated}); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if err := c.Ping(ctx); err != nil {
				t.Fatalf("Ping: %v", err)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	if got := AvailableTablesKey(4); got != "restro:tables:available:4" {
		t.Errorf("AvailableTablesKey(4) = %q", got)
	}
	if got := MenuKey(2, "soup", 1, 10); got != "restro:menu:2:soup:1:10" {
		t.Errorf("MenuKey = %q", got)
	}
}

// newRedisCache connects to REDIS_TEST_ADDR and skips the test without it.
func newRedisCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis at %s unavailable: %v", addr, err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return New(client, time.Minute)
}

func TestFillAfterInvalidationIsDropped(t *testing.T) {
	c := newRedisCache(t)
	ctx := context.Background()
	key := AvailableTablesKey(4)

	stale := c.TablesGeneration(ctx)
	c.InvalidateTables(ctx)
	c.SetJSONAt(ctx, key, []int{1, 2}, stale)

	var got []int
	if c.GetJSON(ctx, key, &got) {
		t.Fatalf("fill from before the invalidation was stored: %v", got)
	}

	fresh := c.TablesGeneration(ctx)
	c.SetJSONAt(ctx, key, []int{3}, fresh)
	if !c.GetJSON(ctx, key, &got) || len(got) != 1 || got[0] != 3 {
		t.Fatalf("fresh fill missing: %v", got)
	}

	c.InvalidateMenu(ctx)
	if !c.GetJSON(ctx, key, &got) {
		t.Fatal("menu invalidation dropped a tables entry")
	}
	c.InvalidateTables(ctx)
	if c.GetJSON(ctx, key, &got) {
		t.Fatal("tables invalidation left the entry in place")
	}
}
