package prices

import (
	"sort"
	"sync"

	"trade-sync/src/models"
)

// -----------------------------------------------------------------------------
// Cache holds the last known snapshot per symbol. Only the tick dispatcher
// writes to it; everything else reads copies.
// -----------------------------------------------------------------------------

type Cache struct {
	snapshots map[string]models.MPriceSnapshot
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewCache() *Cache {
	return &Cache{
		snapshots: make(map[string]models.MPriceSnapshot),
	}
}

// -----------------------------------------------------------------------------

// Get returns the snapshot for symbol and whether one exists.
func (c *Cache) Get(symbol string) (models.MPriceSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.snapshots[symbol]
	return s, ok
}

// -----------------------------------------------------------------------------

// Replace stores next under next.Symbol and returns what it replaced (the
// zero snapshot if the symbol was unknown).
func (c *Cache) Replace(next models.MPriceSnapshot) models.MPriceSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.snapshots[next.Symbol]
	c.snapshots[next.Symbol] = next
	return prev
}

// -----------------------------------------------------------------------------

// Seed loads an initial set of snapshots. Keys win over the Symbol field so
// a snapshot can only ever land under the symbol it was fetched for.
func (c *Cache) Seed(initial map[string]models.MPriceSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sym, snap := range initial {
		if sym == "" {
			continue
		}
		snap.Symbol = sym
		c.snapshots[sym] = snap
	}
}

// -----------------------------------------------------------------------------

// Snapshot returns a copy of the whole cache.
func (c *Cache) Snapshot() map[string]models.MPriceSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]models.MPriceSnapshot, len(c.snapshots))
	for k, v := range c.snapshots {
		out[k] = v
	}
	return out
}

// -----------------------------------------------------------------------------

// Symbols returns the cached symbols in sorted order.
func (c *Cache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.snapshots))
	for k := range c.snapshots {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// -----------------------------------------------------------------------------

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snapshots)
}
