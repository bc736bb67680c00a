package cache

import (
	"testing"
	"time"
)

func TestTTLCacheSetGetDelete(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, time.Minute)
	got, ok := c.Get("a")
	if !ok || got != 1 {
		t.Fatalf("get = %d, %v; want 1, true", got, ok)
	}

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("deleted key still present")
	}
}

func TestTTLCacheExpires(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expired key still present")
	}
}

func TestTTLCacheZeroTTLIsNoOp(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, 0)
	if _, ok := c.Get("a"); ok {
		t.Fatal("zero-ttl entry was stored")
	}
}

func TestTTLCacheOverwrite(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, time.Minute)
	c.Set("a", 2, time.Minute)
	got, _ := c.Get("a")
	if got != 2 {
		t.Fatalf("get = %d, want 2", got)
	}
}
