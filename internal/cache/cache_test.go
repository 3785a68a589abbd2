package cache

import (
	"context"
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New[string, int](time.Minute)
	defer c.Close()

	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("expected miss for unknown key")
	}

	c.Set(ctx, "answer", 42, time.Minute)

	got, ok := c.Get(ctx, "answer")
	if !ok {
		t.Fatal("expected hit")
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}

func TestCache_Expiration(t *testing.T) {
	c := New[string, string](time.Minute)
	defer c.Close()

	ctx := context.Background()
	c.Set(ctx, "ephemeral", "v", 20*time.Millisecond)

	if _, ok := c.Get(ctx, "ephemeral"); !ok {
		t.Fatal("entry should be live before its TTL")
	}

	time.Sleep(40 * time.Millisecond)

	if _, ok := c.Get(ctx, "ephemeral"); ok {
		t.Error("entry should have expired")
	}
	if c.Len() != 0 {
		t.Errorf("expired read should drop the entry, len = %d", c.Len())
	}
}

func TestCache_SetRefreshesTTL(t *testing.T) {
	c := New[string, int](time.Minute)
	defer c.Close()

	ctx := context.Background()
	c.Set(ctx, "k", 1, 20*time.Millisecond)
	c.Set(ctx, "k", 2, time.Minute)

	time.Sleep(40 * time.Millisecond)

	got, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("refreshed entry should still be live")
	}
	if got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}

func TestCache_JanitorSweeps(t *testing.T) {
	c := New[int, int](10 * time.Millisecond)
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		c.Set(ctx, i, i, 15*time.Millisecond)
	}

	deadline := time.After(2 * time.Second)
	for c.Len() != 0 {
		select {
		case <-deadline:
			t.Fatalf("janitor never swept, len = %d", c.Len())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestCache_Delete(t *testing.T) {
	c := New[string, int](time.Minute)
	defer c.Close()

	ctx := context.Background()
	c.Set(ctx, "k", 1, time.Minute)
	c.Delete(ctx, "k")

	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("deleted entry should be gone")
	}
}
