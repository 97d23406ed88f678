package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func countEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	n := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			n++
		}
	}
	return n
}

func TestCache_PutGet(t *testing.T) {
	dir := t.TempDir()
	c, err := New(true, dir, 86400)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	key := BuildCacheKey("openai", "gpt-4o-mini", `{"messages":[]}`)
	value := `{"comments":[],"tests":[],"docs":[]}`

	if _, ok := c.Get(key); ok {
		t.Error("Expected cache miss before put")
	}
	if err := c.Put(key, value); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Expected cache hit after put")
	}
	if got != value {
		t.Errorf("Got = %q, want %q", got, value)
	}
	if n := countEntries(t, dir); n != 1 {
		t.Errorf("entries = %d, want 1 (no leftover temp files counted)", n)
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	dir := t.TempDir()
	c, err := New(true, dir, 60)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Put("expire-test", "data"); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if _, ok := c.Get("expire-test"); !ok {
		t.Error("Expected cache hit before expiration")
	}

	now = now.Add(61 * time.Second)
	if _, ok := c.Get("expire-test"); ok {
		t.Error("Expected cache miss after TTL expiration")
	}
	if n := countEntries(t, dir); n != 0 {
		t.Errorf("expired entry should be removed on read, %d left", n)
	}
}

func TestCache_Prune(t *testing.T) {
	dir := t.TempDir()
	c, err := New(true, dir, 60)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("old", "1")
	now = now.Add(2 * time.Minute)
	c.Put("fresh", "2")
	if err := os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	removed, err := c.Prune()
	if err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2 (expired + unreadable)", removed)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("fresh entry should survive prune")
	}
}

func TestCache_Disabled(t *testing.T) {
	c, err := New(false, "", 0)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if c.Enabled() {
		t.Error("Cache should be disabled")
	}
	if err := c.Put("key", "value"); err != nil {
		t.Errorf("Put on disabled cache should not error: %v", err)
	}
	if _, ok := c.Get("key"); ok {
		t.Error("Get on disabled cache should always miss")
	}
	if n, err := c.Clear(); err != nil || n != 0 {
		t.Errorf("Clear on disabled cache = %d, %v", n, err)
	}
}

func TestCache_NilIsDisabled(t *testing.T) {
	var c *Cache
	if c.Enabled() {
		t.Error("nil cache should be disabled")
	}
	if _, ok := c.Get("k"); ok {
		t.Error("nil cache should miss")
	}
	if err := c.Put("k", "v"); err != nil {
		t.Errorf("Put on nil cache: %v", err)
	}
	if c.Dir() != "" {
		t.Error("nil cache has no dir")
	}
}

func TestCache_Clear(t *testing.T) {
	dir := t.TempDir()
	c, err := New(true, dir, 86400)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := c.Put(string(rune('a'+i)), "data"); err != nil {
			t.Fatalf("Put error: %v", err)
		}
	}
	if n := countEntries(t, dir); n != 5 {
		t.Fatalf("Expected 5 cache entries, got %d", n)
	}

	removed, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if removed != 5 {
		t.Errorf("removed = %d, want 5", removed)
	}
	if n := countEntries(t, dir); n != 0 {
		t.Errorf("Expected 0 cache entries after clear, got %d", n)
	}
}

func TestCache_GetStats(t *testing.T) {
	dir := t.TempDir()
	c, err := New(true, dir, 86400)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("Entries = %d, want 0", stats.Entries)
	}

	c.Put("key1", "value1")
	c.Put("key2", "value2")

	stats, err = c.GetStats()
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Entries != 2 {
		t.Errorf("Entries = %d, want 2", stats.Entries)
	}
	if stats.TotalBytes <= 0 {
		t.Error("TotalBytes should be > 0")
	}
	if stats.Dir != dir {
		t.Errorf("Dir = %q, want %q", stats.Dir, dir)
	}
}

func TestHashKey(t *testing.T) {
	h1 := HashKey("test")
	h2 := HashKey("test")
	h3 := HashKey("other")

	if h1 != h2 {
		t.Error("Same input should produce same hash")
	}
	if h1 == h3 {
		t.Error("Different input should produce different hash")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}
}

func TestBuildCacheKey(t *testing.T) {
	k1 := BuildCacheKey("openai", "gpt-4o-mini", "payload")
	k2 := BuildCacheKey("openai", "gpt-4o-mini", "payload")
	k3 := BuildCacheKey("gemini", "gemini-2.5-flash", "payload")

	if k1 != k2 {
		t.Error("Same inputs should produce same cache key")
	}
	if k1 == k3 {
		t.Error("Different provider should produce different cache key")
	}
}

func TestDefaultDir_XDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	dir, err := DefaultDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/tmp/xdg-cache", "patchpilot") {
		t.Errorf("DefaultDir = %q", dir)
	}
}
