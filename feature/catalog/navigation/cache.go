package navigation

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// DefaultTTL bounds how stale a navigation snapshot may get when no save
// invalidates it first.
const DefaultTTL = 5 * time.Minute

type cacheEntry struct {
	snap  *Snapshot
	built time.Time
	ttl   time.Duration
}

// IsExpired returns true if this entry has expired based on its TTL.
func (e *cacheEntry) IsExpired() bool {
	if e.ttl == 0 {
		return true // No caching
	}
	return time.Since(e.built) > e.ttl
}

// Cache holds navigation snapshots per product with TTL expiry and stampede
// protection. Reconciliation invalidates a product's entry on commit, so a
// hit is never older than the last save.
type Cache struct {
	db  *gorm.DB
	ttl time.Duration

	mu      sync.RWMutex
	entries map[uint]*cacheEntry
	sf      singleflight.Group
}

// NewCache builds a snapshot cache over the given database handle. A zero
// ttl disables caching entirely.
func NewCache(db *gorm.DB, ttl time.Duration) *Cache {
	return &Cache{
		db:      db,
		ttl:     ttl,
		entries: make(map[uint]*cacheEntry),
	}
}

// Snapshot returns the product's navigation snapshot, building it at most
// once per expiry even under concurrent lookups.
func (c *Cache) Snapshot(productID uint) (*Snapshot, error) {
	// Fast path: fresh entry already present
	c.mu.RLock()
	entry, exists := c.entries[productID]
	c.mu.RUnlock()

	if exists && !entry.IsExpired() {
		return entry.snap, nil
	}

	// Slow path: build under singleflight to prevent stampedes
	result, err, _ := c.sf.Do(strconv.FormatUint(uint64(productID), 10), func() (interface{}, error) {
		// Double-check after acquiring singleflight lock
		c.mu.RLock()
		entry, exists := c.entries[productID]
		c.mu.RUnlock()

		if exists && !entry.IsExpired() {
			return entry.snap, nil
		}

		snap, err := buildSnapshot(c.db, productID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[productID] = &cacheEntry{snap: snap, built: time.Now(), ttl: c.ttl}
		c.mu.Unlock()

		return snap, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Snapshot), nil
}

// Invalidate drops the product's entry so the next lookup rebuilds it.
func (c *Cache) Invalidate(productID uint) {
	c.mu.Lock()
	delete(c.entries, productID)
	c.mu.Unlock()
}

func buildSnapshot(db *gorm.DB, productID uint) (*Snapshot, error) {
	rel, err := BuildRelation(db, productID)
	if err != nil {
		return nil, err
	}
	groups, err := BuildGroupViews(db, rel)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Relation: rel, Groups: groups}, nil
}
