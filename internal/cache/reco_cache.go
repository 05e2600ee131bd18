// Package cache provides the short-lived per-user recommendation cache: LRU
// storage with per-entry TTL, keyed by (feed type, user).
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/scholarnet/reco/internal/models"
)

// entry is one cached payload with its computation time. An entry older than
// the cache TTL is treated as absent (lazy expiry, no background sweep).
type entry struct {
	payload    []models.RecommendationScore
	computedAt time.Time
}

// RecoCache caches computed recommendation lists per (feed type, user) to avoid
// recomputation under read pressure. Two concurrent misses for the same user may
// both recompute and both write; last write wins, which is acceptable for this
// cache (the payloads differ only by freshness).
type RecoCache struct {
	lru *lru.Cache[string, entry]
	ttl time.Duration
	now func() time.Time
}

// NewRecoCache creates a recommendation cache with the given max entries and TTL.
func NewRecoCache(maxEntries int, ttl time.Duration) (*RecoCache, error) {
	lruCache, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, err
	}

	return &RecoCache{lru: lruCache, ttl: ttl, now: time.Now}, nil
}

func key(recType models.RecType, userID string) string {
	return string(recType) + ":" + userID
}

// Get returns the live cached payload for (recType, userID), or ok=false when
// absent or expired. Expired entries are removed on read and never returned.
func (c *RecoCache) Get(recType models.RecType, userID string) ([]models.RecommendationScore, bool) {
	k := key(recType, userID)

	e, ok := c.lru.Get(k)
	if !ok {
		return nil, false
	}

	if c.now().Sub(e.computedAt) >= c.ttl {
		c.lru.Remove(k)

		return nil, false
	}

	return e.payload, true
}

// Put stores the payload for (recType, userID), replacing any previous entry.
func (c *RecoCache) Put(recType models.RecType, userID string, payload []models.RecommendationScore) {
	c.lru.Add(key(recType, userID), entry{payload: payload, computedAt: c.now()})
}

// Invalidate removes the user's entries across all feed types. Called on
// negative and not-interested feedback so the next request recomputes.
func (c *RecoCache) Invalidate(userID string) {
	for _, t := range []models.RecType{models.RecTypePosts, models.RecTypePapers, models.RecTypeMixed} {
		c.lru.Remove(key(t, userID))
	}
}

// Len returns the number of entries, live or not yet swept.
func (c *RecoCache) Len() int {
	return c.lru.Len()
}
