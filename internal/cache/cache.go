package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Entry is one cached completion.
type Entry struct {
	Key       string    `json:"key"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	TTL       int       `json:"ttl"`
}

func (e Entry) expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.CreatedAt) > time.Duration(e.TTL)*time.Second
}

// Cache is a directory of JSON entries. A nil or disabled Cache misses on
// every read and ignores writes.
type Cache struct {
	dir        string
	ttlSeconds int
	enabled    bool
	now        func() time.Time
}

// New creates a Cache. If dir is empty the default cache directory is used.
func New(enabled bool, dir string, ttlSeconds int) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false, now: time.Now}, nil
	}
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{
		dir:        dir,
		ttlSeconds: ttlSeconds,
		enabled:    true,
		now:        time.Now,
	}, nil
}

// Get returns the cached text for key. Expired entries are removed and miss.
func (c *Cache) Get(key string) (string, bool) {
	if !c.Enabled() {
		return "", false
	}
	path := c.entryPath(key)
	entry, err := readEntry(path)
	if err != nil {
		return "", false
	}
	if entry.expired(c.now()) {
		os.Remove(path)
		return "", false
	}
	return entry.Text, true
}

// Put stores text under key.
func (c *Cache) Put(key, text string) error {
	if !c.Enabled() {
		return nil
	}
	entry := Entry{
		Key:       HashKey(key),
		Text:      text,
		CreatedAt: c.now(),
		TTL:       c.ttlSeconds,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	// Replace atomically.
	tmp := c.entryPath(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return os.Rename(tmp, c.entryPath(key))
}

// Clear removes every entry and returns how many were deleted.
func (c *Cache) Clear() (int, error) {
	return c.removeWhere(func(Entry, error) bool { return true })
}

// Prune removes expired or unreadable entries and returns how many were deleted.
func (c *Cache) Prune() (int, error) {
	now := c.now()
	return c.removeWhere(func(e Entry, err error) bool {
		return err != nil || e.expired(now)
	})
}

func (c *Cache) removeWhere(match func(Entry, error) bool) (int, error) {
	if !c.Enabled() || c.dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache directory: %w", err)
	}
	var removed int
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(c.dir, e.Name())
		entry, readErr := readEntry(path)
		if !match(entry, readErr) {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Stats describes the cache directory.
type Stats struct {
	Dir        string `json:"dir"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"totalBytes"`
	Expired    int    `json:"expired"`
}

// GetStats returns information about the cache.
func (c *Cache) GetStats() (Stats, error) {
	if c == nil {
		return Stats{}, nil
	}
	stats := Stats{Dir: c.dir}
	if !c.enabled || c.dir == "" {
		return stats, nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("reading cache directory: %w", err)
	}
	now := c.now()
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalBytes += info.Size()

		entry, err := readEntry(filepath.Join(c.dir, e.Name()))
		if err != nil {
			continue
		}
		if entry.expired(now) {
			stats.Expired++
		}
	}
	return stats, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// Enabled returns whether caching is enabled.
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// HashKey creates a SHA-256 hash of the given key material.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h)
}

// BuildCacheKey creates a cache key for one completion request.
func BuildCacheKey(provider, model, payload string) string {
	return HashKey(fmt.Sprintf("%s:%s:%s", provider, model, payload))
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, HashKey(key)+".json")
}

func readEntry(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// DefaultDir returns the platform cache directory for patchpilot.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "patchpilot"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "patchpilot"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "patchpilot", "cache"), nil
		}
		return filepath.Join(home, "AppData", "Local", "patchpilot", "cache"), nil
	default:
		return filepath.Join(home, ".cache", "patchpilot"), nil
	}
}
