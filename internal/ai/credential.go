package ai

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CredentialLoader reads the stored API key; ok is false when none is stored.
type CredentialLoader func(ctx context.Context) (value string, ok bool, err error)

// CredentialCache holds the resolved API key in memory until Invalidate is
// called. It is shared by the model client and every path that updates the
// key.
type CredentialCache struct {
	load     CredentialLoader
	fallback string

	mu    sync.Mutex
	value string
	gen   uint64
	group singleflight.Group
}

// NewCredentialCache creates a cache reading from load. fallback (typically
// from config or the environment) is used when nothing is stored.
func NewCredentialCache(load CredentialLoader, fallback string) *CredentialCache {
	return &CredentialCache{load: load, fallback: strings.TrimSpace(fallback)}
}

// Resolve returns the cached key, loading it on first use. An empty result
// without error means no key is configured anywhere.
func (c *CredentialCache) Resolve(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.value != "" {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	gen := c.gen
	c.mu.Unlock()

	v, err, _ := c.group.Do("credential", func() (any, error) {
		var value string
		var ok bool
		if c.load != nil {
			var err error
			if value, ok, err = c.load(ctx); err != nil {
				return "", err
			}
		}
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			value = c.fallback
		}
		c.mu.Lock()
		// an Invalidate during the load means the value may already be stale
		if c.gen == gen {
			c.value = value
		}
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached key; the next Resolve reloads it.
func (c *CredentialCache) Invalidate() {
	c.mu.Lock()
	c.value = ""
	c.gen++
	c.mu.Unlock()
	c.group.Forget("credential")
}
