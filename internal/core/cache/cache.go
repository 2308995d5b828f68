// Package cache holds recently fetched remote manifests.
package cache

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"

	"github.com/Ning0612/Gitpush/internal/domain"
)

const (
	// DefaultTTL is how long a fetched manifest is reused
	DefaultTTL = time.Hour
	// DefaultMaxRefs bounds the number of cached manifests
	DefaultMaxRefs = 16
)

// Key identifies one manifest: a store and a ref within it
type Key struct {
	Store string
	Ref   string
}

func (k Key) String() string {
	return k.Store + "@" + k.Ref
}

// Options configures the cache
type Options struct {
	TTL     time.Duration
	MaxRefs int
	Clock   clockwork.Clock
}

type item struct {
	manifest *domain.Manifest
	expires  time.Time
}

// ManifestCache is a TTL cache bounded by LRU eviction; safe for concurrent use
type ManifestCache struct {
	entries *lru.Cache[Key, item]
	ttl     time.Duration
	clock   clockwork.Clock
}

// New creates a cache. Zero options fall back to the defaults.
func New(opts Options) (*ManifestCache, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxRefs <= 0 {
		opts.MaxRefs = DefaultMaxRefs
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	entries, err := lru.New[Key, item](opts.MaxRefs)
	if err != nil {
		return nil, fmt.Errorf("create manifest cache: %w", err)
	}

	return &ManifestCache{
		entries: entries,
		ttl:     opts.TTL,
		clock:   opts.Clock,
	}, nil
}

// Get returns a live manifest. Expired entries are evicted and reported as a miss.
func (c *ManifestCache) Get(key Key) (*domain.Manifest, bool) {
	it, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if !c.clock.Now().Before(it.expires) {
		c.entries.Remove(key)
		return nil, false
	}
	return it.manifest, true
}

// Put stores a manifest for the configured TTL
func (c *ManifestCache) Put(key Key, m *domain.Manifest) {
	c.entries.Add(key, item{
		manifest: m,
		expires:  c.clock.Now().Add(c.ttl),
	})
}

// Invalidate drops one manifest
func (c *ManifestCache) Invalidate(key Key) {
	c.entries.Remove(key)
}

// InvalidateAll drops every manifest
func (c *ManifestCache) InvalidateAll() {
	c.entries.Purge()
}

// Len returns the number of cached manifests, including expired ones not yet read
func (c *ManifestCache) Len() int {
	return c.entries.Len()
}
