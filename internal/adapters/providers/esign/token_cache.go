package esign

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TokenFetcher obtains a fresh access token from the provider
type TokenFetcher func(ctx context.Context) (token string, expiresIn time.Duration, err error)

// expirySkew refreshes tokens slightly early so in-flight requests do not race
// the provider-side expiry
const expirySkew = 30 * time.Second

// TokenCache caches the provider access token and collapses concurrent
// refreshes into a single fetch. The fetcher is injected so adapters and tests
// control how tokens are obtained.
type TokenCache struct {
	fetch TokenFetcher
	group singleflight.Group
	now   func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewTokenCache creates a token cache around the given fetcher
func NewTokenCache(fetch TokenFetcher) *TokenCache {
	return &TokenCache{
		fetch: fetch,
		now:   time.Now,
	}
}

// Token returns a valid cached token, refreshing it when missing or expired.
// Concurrent callers during a refresh share one provider round trip.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if token, ok := c.cached(); ok {
		return token, nil
	}

	result, err, _ := c.group.Do("token", func() (interface{}, error) {
		// another caller may have refreshed while this one queued
		if token, ok := c.cached(); ok {
			return token, nil
		}

		token, expiresIn, err := c.fetch(ctx)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.token = token
		c.expiresAt = c.now().Add(expiresIn - expirySkew)
		c.mu.Unlock()

		return token, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Invalidate discards the cached token, forcing the next Token call to refresh.
// Called when the provider rejects a request with 401.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" || !c.now().Before(c.expiresAt) {
		return "", false
	}
	return c.token, true
}
