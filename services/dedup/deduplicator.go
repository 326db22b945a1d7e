package dedup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Default bounds for the pending-request store.
const (
	DefaultMaxPending = 100
	DefaultSafetyTTL  = 30 * time.Second
)

type call struct {
	done      chan struct{}
	val       any
	err       error
	createdAt time.Time
}

// Deduplicator coalesces concurrent identical operations into a single
// in-flight call. For any set of concurrent Do calls with the same key the
// supplied function executes at most once, and every caller observes the same
// outcome. Entries are removed as soon as the call settles; the safety TTL
// only bounds staleness if cleanup is skipped by an abnormal exit.
type Deduplicator struct {
	mu      sync.Mutex
	pending *lru.Cache[string, *call]
	ttl     time.Duration
	now     func() time.Time
}

// NewDeduplicator creates a deduplicator with bounded pending storage.
func NewDeduplicator(maxPending int, safetyTTL time.Duration) *Deduplicator {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	if safetyTTL <= 0 {
		safetyTTL = DefaultSafetyTTL
	}
	cache, _ := lru.New[string, *call](maxPending)
	return &Deduplicator{
		pending: cache,
		ttl:     safetyTTL,
		now:     time.Now,
	}
}

// Do executes fn under key, or joins an already in-flight execution of the
// same key. The first caller runs fn on its own goroutine; later callers
// block until it settles and share the result. A caller whose context ends
// while waiting unblocks with the context error, leaving the shared call
// untouched.
func (d *Deduplicator) Do(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	d.mu.Lock()
	if c, ok := d.pending.Get(key); ok && d.now().Sub(c.createdAt) < d.ttl {
		d.mu.Unlock()
		select {
		case <-c.done:
			return c.val, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c := &call{done: make(chan struct{}), createdAt: d.now()}
	d.pending.Add(key, c)
	d.mu.Unlock()

	return d.run(key, c, fn)
}

func (d *Deduplicator) run(key string, c *call, fn func() (any, error)) (val any, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.err = fmt.Errorf("deduplicated call panicked: %v", r)
		}
		d.mu.Lock()
		d.pending.Remove(key)
		d.mu.Unlock()
		close(c.done)
		val, err = c.val, c.err
	}()

	c.val, c.err = fn()
	return c.val, c.err
}

// Len returns the number of in-flight entries.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending.Len()
}

// Clear drops all pending entries. Waiters already attached to a call keep
// their shared outcome.
func (d *Deduplicator) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending.Purge()
}

// RequestKey builds a canonical deduplication key from an endpoint and its
// query parameters. Parameters are serialized in sorted order so call sites
// that list them differently still collapse together.
func RequestKey(endpoint string, params map[string]string) string {
	if len(params) == 0 {
		return endpoint
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return endpoint + "?" + strings.Join(parts, "&")
}
