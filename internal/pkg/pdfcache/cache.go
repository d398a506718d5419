package pdfcache

import (
	"strings"
	"sync"
	"time"

	"github.com/strategiq/swot/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultTTL is how long a rendered PDF stays servable after Set.
	DefaultTTL = 300 * time.Second
	// DefaultCleanupInterval is the minimum gap between expiry sweeps.
	DefaultCleanupInterval = 60 * time.Second

	keySeparator = ":"
)

// Options configures a Cache. Zero values fall back to the defaults.
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	Logger          *zap.Logger
	// Now is the wall clock used for timestamps and ages.
	Now func() time.Time
}

func normalizeOptions(opts Options) Options {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return opts
}

type entry struct {
	data        []byte
	fingerprint string
	createdAt   time.Time
	accessedAt  time.Time
	accessCount int
}

func (e *entry) age(now time.Time) time.Duration { return now.Sub(e.createdAt) }

func (e *entry) expired(now time.Time, ttl time.Duration) bool { return e.age(now) > ttl }

// Stats is a point-in-time snapshot of the cache.
type Stats struct {
	TotalEntries      int     `json:"total_entries"`
	TotalAccesses     int     `json:"total_accesses"`
	AverageAgeSeconds float64 `json:"average_age_seconds"`
	TTLSeconds        float64 `json:"ttl_seconds"`
}

// Cache holds rendered PDF reports keyed by session and analysis content.
//
// Entries expire lazily: a lookup that finds a stale entry deletes it, and Get
// runs a store-wide sweep at most once per cleanup interval. Buffers are
// copied on the way in and on the way out.
type Cache struct {
	mu          sync.Mutex
	entries     map[string]*entry
	lastCleanup time.Time

	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
	log             *zap.Logger
}

// New creates an empty cache.
func New(opts Options) *Cache {
	opts = normalizeOptions(opts)
	return &Cache{
		entries:         make(map[string]*entry),
		lastCleanup:     opts.Now(),
		ttl:             opts.TTL,
		cleanupInterval: opts.CleanupInterval,
		now:             opts.Now,
		log:             opts.Logger,
	}
}

// Key builds the composite cache key for a session and content fingerprint.
func Key(sessionID, fingerprint string) string {
	return sessionID + keySeparator + fingerprint
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns a copy of the cached PDF for the session and analysis content.
// The boolean is false on a miss, including when the entry had expired.
func (c *Cache) Get(sessionID string, analysis models.SwotAnalysis) ([]byte, bool) {
	key := Key(sessionID, Fingerprint(analysis))

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.cleanupExpiredLocked(now)

	e, ok := c.entries[key]
	if !ok {
		c.log.Info("pdf cache miss", zap.String("key", key))
		return nil, false
	}
	if e.expired(now, c.ttl) {
		delete(c.entries, key)
		c.log.Info("pdf cache expired", zap.String("key", key))
		return nil, false
	}

	e.accessedAt = now
	e.accessCount++
	c.log.Info("pdf cache hit",
		zap.String("key", key),
		zap.Duration("age", e.age(now)),
		zap.Int("accesses", e.accessCount),
	)
	return cloneBytes(e.data), true
}

// Set stores a copy of pdf, replacing any entry under the same key.
func (c *Cache) Set(sessionID string, analysis models.SwotAnalysis, pdf []byte) {
	fingerprint := Fingerprint(analysis)
	key := Key(sessionID, fingerprint)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = &entry{
		data:        cloneBytes(pdf),
		fingerprint: fingerprint,
		createdAt:   now,
		accessedAt:  now,
	}
	c.log.Info("pdf cached",
		zap.String("key", key),
		zap.Int("bytes", len(pdf)),
		zap.Duration("ttl", c.ttl),
	)
}

// Invalidate drops every entry belonging to sessionID and returns how many
// were removed.
func (c *Cache) Invalidate(sessionID string) int {
	prefix := sessionID + keySeparator

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		delete(c.entries, key)
		removed++
		c.log.Info("pdf cache invalidated", zap.String("key", key))
	}
	return removed
}

// Clear empties the cache and returns how many entries were dropped.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]*entry)
	c.log.Info("pdf cache cleared", zap.Int("removed", n))
	return n
}

// Stats reports entry count, summed access counts and mean entry age.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stats := Stats{
		TotalEntries: len(c.entries),
		TTLSeconds:   c.ttl.Seconds(),
	}
	if len(c.entries) == 0 {
		return stats
	}

	var totalAge time.Duration
	for _, e := range c.entries {
		stats.TotalAccesses += e.accessCount
		totalAge += e.age(now)
	}
	stats.AverageAgeSeconds = totalAge.Seconds() / float64(len(c.entries))
	return stats
}

// cleanupExpiredLocked sweeps stale entries, at most once per cleanup
// interval. c.mu must be held.
func (c *Cache) cleanupExpiredLocked(now time.Time) {
	if now.Sub(c.lastCleanup) < c.cleanupInterval {
		return
	}

	removed := 0
	for key, e := range c.entries {
		if !e.expired(now, c.ttl) {
			continue
		}
		delete(c.entries, key)
		removed++
		c.log.Debug("pdf cache entry swept", zap.String("key", key))
	}
	if removed > 0 {
		c.log.Info("pdf cache cleanup", zap.Int("removed", removed))
	}
	c.lastCleanup = now
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
