package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rapp-store/federation/client"
	"github.com/rapp-store/federation/internal/logger"
)

// DefaultTTL is how long a cached manifest stays fresh unless overridden
// with WithTTL.
const DefaultTTL = time.Hour

// ContentFetcher retrieves raw bytes from a URL. Implemented by
// fetch.Fetcher and fetch.CircuitBreakerFetcher.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Cache holds fetched and validated manifests keyed by normalized store URL,
// with TTL-based invalidation. Concurrent callers requesting the same
// uncached or expired store share a single fetch-and-validate flight.
type Cache struct {
	fetcher ContentFetcher
	ttl     time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]*CachedManifest
	group   singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets the freshness window for cached manifests.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// NewCache creates a manifest cache backed by the given fetcher.
func NewCache(fetcher ContentFetcher, opts ...CacheOption) *Cache {
	c := &Cache{
		fetcher: fetcher,
		ttl:     DefaultTTL,
		now:     time.Now,
		entries: make(map[string]*CachedManifest),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached manifest for a store, fetching and validating on
// first access or after TTL expiry. If a refresh fails and a previously
// valid entry exists, the stale entry is returned with Stale and RefreshErr
// set and the failure is logged; availability wins over freshness.
func (c *Cache) Get(ctx context.Context, storeURL string) (CachedManifest, error) {
	return c.get(ctx, storeURL, false)
}

// GetFresh bypasses the TTL check and propagates any refresh failure
// instead of falling back to a stale entry.
func (c *Cache) GetFresh(ctx context.Context, storeURL string) (CachedManifest, error) {
	return c.get(ctx, storeURL, true)
}

func (c *Cache) get(ctx context.Context, storeURL string, forceFresh bool) (CachedManifest, error) {
	key, err := client.NormalizeStoreURL(storeURL)
	if err != nil {
		return CachedManifest{}, err
	}

	if !forceFresh {
		if e := c.entry(key); e != nil && !e.Expired(c.now()) {
			return *e, nil
		}
	}

	// DoChan rather than Do: a caller that cancels gets its context error
	// immediately while the shared flight completes for the other waiters.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.refresh(ctx, key)
	})

	select {
	case <-ctx.Done():
		return CachedManifest{}, timeoutOr(ctx.Err(), key)
	case res := <-ch:
		if res.Err != nil {
			// The flight key is gone once the flight completes, so a
			// failed or cancelled fetch never blocks a fresh attempt.
			if !forceFresh {
				if stale := c.entry(key); stale != nil {
					logger.G(ctx).WithField("store", key).
						WithError(res.Err).
						Warn("manifest refresh failed, serving stale entry")
					cm := *stale
					cm.Stale = true
					cm.RefreshErr = res.Err
					return cm, nil
				}
			}
			return CachedManifest{}, timeoutOr(res.Err, key)
		}
		return res.Val.(CachedManifest), nil
	}
}

// timeoutOr surfaces an expired deadline as the same timeout a direct fetch
// reports, whether it fired on the waiter or inside the shared flight.
func timeoutOr(err error, key string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{URL: client.ManifestURL(key)}
	}
	return err
}

// refresh fetches and validates the manifest, replacing the cached entry
// only on success so a failing refresh never poisons a good entry.
func (c *Cache) refresh(ctx context.Context, key string) (CachedManifest, error) {
	raw, err := c.fetcher.Fetch(ctx, client.ManifestURL(key))
	if err != nil {
		return CachedManifest{}, err
	}

	m, err := ValidateManifest(raw)
	if err != nil {
		return CachedManifest{}, err
	}

	cm := CachedManifest{Manifest: m, FetchedAt: c.now(), TTL: c.ttl}

	c.mu.Lock()
	c.entries[key] = &cm
	c.mu.Unlock()

	return cm, nil
}

// Invalidate discards the cached entry for a store, if any.
func (c *Cache) Invalidate(storeURL string) {
	key, err := client.NormalizeStoreURL(storeURL)
	if err != nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Cache) entry(key string) *CachedManifest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}
