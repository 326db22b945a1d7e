package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a bounded read-side cache for upstream API responses. Entries
// carry a per-entry deadline; the least-recently-used entry is evicted when
// capacity is exceeded. It is never a system of record.
type Cache struct {
	mu         sync.Mutex
	entries    *lru.Cache[string, entry]
	defaultTTL time.Duration
	now        func() time.Time
}

// New creates a cache holding at most capacity entries, each valid for
// defaultTTL unless overridden per call.
func New(capacity int, defaultTTL time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 500
	}
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	entries, _ := lru.New[string, entry](capacity)
	return &Cache{
		entries:    entries,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the live value for key. Expired and never-set keys are both
// reported as misses; callers must treat either as needing a re-fetch.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.entries.Remove(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the cache's default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetTTL(key, value, 0)
}

// SetTTL stores value under key with an explicit TTL. A non-positive ttl
// falls back to the cache default.
func (c *Cache) SetTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(key, entry{value: value, expiresAt: c.now().Add(ttl)})
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(key)
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

// Len returns the number of stored entries, including expired ones not yet
// evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Options configures a tiered cache set.
type Options struct {
	Capacity   int
	QuoteTTL   time.Duration
	NewsTTL    time.Duration
	ProfileTTL time.Duration
}

// Tiered bundles the three independently configured caches: quote-like data
// expires quickly, news holds a bit longer, profile/fundamental data longest.
type Tiered struct {
	Quote   *Cache
	News    *Cache
	Profile *Cache
}

// NewTiered builds the three cache classes from opts, applying the standard
// TTLs (5m / 15m / 60m) where unset.
func NewTiered(opts Options) *Tiered {
	quoteTTL := opts.QuoteTTL
	if quoteTTL <= 0 {
		quoteTTL = 5 * time.Minute
	}
	newsTTL := opts.NewsTTL
	if newsTTL <= 0 {
		newsTTL = 15 * time.Minute
	}
	profileTTL := opts.ProfileTTL
	if profileTTL <= 0 {
		profileTTL = time.Hour
	}

	return &Tiered{
		Quote:   New(opts.Capacity, quoteTTL),
		News:    New(opts.Capacity, newsTTL),
		Profile: New(opts.Capacity, profileTTL),
	}
}
