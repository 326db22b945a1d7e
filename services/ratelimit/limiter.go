package ratelimit

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultLimit is applied when a caller passes a non-positive limit.
const DefaultLimit = 10

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
}

type bucket struct {
	count     int
	expiresAt time.Time
}

// Limiter bounds the number of operations an identifier may perform within a
// fixed time window. The identifier store is LRU-bounded so cycling
// identifiers cannot exhaust memory.
//
// Windows are fixed-duration per identifier, not a sliding log: a burst
// straddling a window boundary can briefly exceed the nominal rate.
type Limiter struct {
	mu      sync.Mutex
	buckets *lru.Cache[string, *bucket]
	window  time.Duration
	now     func() time.Time
}

// NewLimiter creates a limiter holding at most maxIdentifiers counters, each
// valid for one window.
func NewLimiter(maxIdentifiers int, window time.Duration) *Limiter {
	if maxIdentifiers <= 0 {
		maxIdentifiers = 500
	}
	if window <= 0 {
		window = time.Minute
	}
	cache, _ := lru.New[string, *bucket](maxIdentifiers)
	return &Limiter{
		buckets: cache,
		window:  window,
		now:     time.Now,
	}
}

// Check records one operation for identifier against limit. The first call in
// a window starts the counter at zero before incrementing. A call at or above
// the limit is rejected without incrementing, so repeated rejected calls stay
// rejected until the window lapses.
func (l *Limiter) Check(identifier string, limit int) Result {
	if limit <= 0 {
		limit = DefaultLimit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets.Get(identifier)
	if !ok || now.After(b.expiresAt) {
		b = &bucket{expiresAt: now.Add(l.window)}
		l.buckets.Add(identifier, b)
	}

	if b.count >= limit {
		return Result{Allowed: false, Remaining: 0}
	}

	b.count++
	return Result{Allowed: true, Remaining: limit - b.count}
}

// Len returns the number of tracked identifiers, counting expired entries
// that have not been evicted yet.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buckets.Len()
}
