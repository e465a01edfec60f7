package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Integration tests need a live Redis; point REDIS_ADDR at one to run them.
func testClient(t *testing.T) goredis.UniversalClient {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable at %s: %v", addr, err)
	}
	return client
}

func TestBroadcaster_CrossInstance(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	a := New(Config{Client: client, KeyPrefix: "hermes:test:"})
	b := New(Config{Client: client, KeyPrefix: "hermes:test:"})

	sub, err := b.Subscribe(ctx, "tools")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if err := a.Publish(ctx, "tools"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case <-sub.Events():
	case <-time.After(5 * time.Second):
		t.Fatalf("no cross-instance event within deadline")
	}
}

func TestBroadcaster_DropsOwnEcho(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	a := New(Config{Client: client, KeyPrefix: "hermes:test:"})
	sub, err := a.Subscribe(ctx, "tools")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if err := a.Publish(ctx, "tools"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case <-sub.Events():
		t.Fatalf("instance received its own publication")
	case <-time.After(500 * time.Millisecond):
	}
}
