package transcript

import (
	"os"
	"sync"
	"time"
)

// DefaultStatTTL is how long a cached stat stays valid.
const DefaultStatTTL = 30 * time.Second

// FileStat is the part of os.FileInfo session metadata needs.
type FileStat struct {
	Size    int64
	ModTime time.Time
}

type statEntry struct {
	stat    FileStat
	expires time.Time
}

// StatCache memoizes os.Stat results for a fixed TTL, keyed by path. It is
// safe for concurrent use.
type StatCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]statEntry
	now     func() time.Time
	stat    func(string) (os.FileInfo, error)
}

// NewStatCache creates a cache. A non-positive ttl uses DefaultStatTTL.
func NewStatCache(ttl time.Duration) *StatCache {
	if ttl <= 0 {
		ttl = DefaultStatTTL
	}
	return &StatCache{
		ttl:     ttl,
		entries: make(map[string]statEntry),
		now:     time.Now,
		stat:    os.Stat,
	}
}

// Stat returns the cached stat for path, refreshing it once expired.
// Errors are not cached.
func (c *StatCache) Stat(path string) (FileStat, error) {
	now := c.now()

	c.mu.Lock()
	if e, ok := c.entries[path]; ok && now.Before(e.expires) {
		c.mu.Unlock()
		return e.stat, nil
	}
	c.mu.Unlock()

	info, err := c.stat(path)
	if err != nil {
		c.Invalidate(path)
		return FileStat{}, err
	}
	fs := FileStat{Size: info.Size(), ModTime: info.ModTime()}

	c.mu.Lock()
	c.entries[path] = statEntry{stat: fs, expires: now.Add(c.ttl)}
	c.mu.Unlock()
	return fs, nil
}

// Invalidate drops path from the cache.
func (c *StatCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Len returns the number of cached entries, expired or not.
func (c *StatCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
