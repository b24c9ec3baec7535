package ristretto

import (
	"context"
	"testing"
	"time"
)

func TestCacheSetGetDelete(t *testing.T) {
	c, err := New(1 << 20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "profile:default", []byte(`{"style":"concise"}`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c.Wait()

	data, ok, err := c.Get(ctx, "profile:default")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if string(data) != `{"style":"concise"}` {
		t.Errorf("value = %s", data)
	}

	if err := c.Delete(ctx, "profile:default"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	c.Wait()
	if _, ok, _ := c.Get(ctx, "profile:default"); ok {
		t.Error("expected miss after Delete")
	}
}

func TestCacheMiss(t *testing.T) {
	c, err := New(1 << 20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	_, ok, err := c.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected miss for absent key")
	}
}
