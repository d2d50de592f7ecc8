package cache

import (
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	a := Key("https://example.com/story-1")
	b := Key("https://example.com/story-2")

	if a == b {
		t.Error("different URLs must produce different keys")
	}
	if a != Key("https://example.com/story-1") {
		t.Error("key must be stable")
	}
	if !strings.HasPrefix(a, "railwatch:v1:") {
		t.Errorf("key = %q, missing version prefix", a)
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("empty cache should miss")
	}

	c.Set("k", []byte("body"), 0)
	val, found := c.Get("k")
	if !found || string(val) != "body" {
		t.Errorf("Get = %q, %v", val, found)
	}

	c.Delete("k")
	if _, found := c.Get("k"); found {
		t.Error("value should be gone after Delete")
	}
}

func TestDiskCache(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Minute)

	c.Set(Key("https://example.com/a"), []byte("<html>page</html>"), 0)
	val, found := c.Get(Key("https://example.com/a"))
	if !found || string(val) != "<html>page</html>" {
		t.Errorf("Get = %q, %v", val, found)
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Minute)

	c.Set("k", []byte("stale"), -time.Second)
	if _, found := c.Get("k"); found {
		t.Error("expired entry should miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()

	first := NewLayeredCache(time.Minute, dir, time.Minute)
	first.Set("k", []byte("persisted"), 0)

	// A second instance simulates the next cron run: memory is cold but the
	// disk layer still has the entry.
	second := NewLayeredCache(time.Minute, dir, time.Minute)
	val, found := second.Get("k")
	if !found || string(val) != "persisted" {
		t.Fatalf("Get = %q, %v", val, found)
	}
	if _, found := second.memory.Get("k"); !found {
		t.Error("disk hit should be promoted to memory")
	}
}

func TestLayeredCache_MemoryOnly(t *testing.T) {
	c := NewLayeredCache(time.Minute, "", time.Minute)

	c.Set("k", []byte("v"), 0)
	if val, found := c.Get("k"); !found || string(val) != "v" {
		t.Errorf("Get = %q, %v", val, found)
	}
	if c.disk != nil {
		t.Error("empty dir should disable the disk layer")
	}
}
