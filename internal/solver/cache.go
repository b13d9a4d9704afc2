package solver

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/narrowphase"
)

// Key identifies a persistent contact point across steps.
type Key struct {
	A, B    body.ID
	Feature narrowphase.FeatureID
}

type cacheEntry struct {
	normal   float64
	tangent  mgl64.Vec3
	lastSeen uint64
}

// Cache keeps accumulated impulses of recent contact points so the next
// step can start from them.
type Cache struct {
	entries map[Key]cacheEntry
	// last step each body pair stored any point
	pairs map[[2]body.ID]uint64
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[Key]cacheEntry),
		pairs:   make(map[[2]body.ID]uint64),
	}
}

func (c *Cache) Len() int { return len(c.entries) }

// Lookup returns the impulses stored for k.
func (c *Cache) Lookup(k Key) (normal float64, tangent mgl64.Vec3, ok bool) {
	e, ok := c.entries[k]
	return e.normal, e.tangent, ok
}

func (c *Cache) Store(k Key, normal float64, tangent mgl64.Vec3, step uint64) {
	c.entries[k] = cacheEntry{normal: normal, tangent: tangent, lastSeen: step}
	c.pairs[[2]body.ID{k.A, k.B}] = step
}

// Touching reports whether a and b had a cached point, whatever its
// feature, within the grace period.
func (c *Cache) Touching(a, b body.ID) bool {
	_, ok := c.pairs[[2]body.ID{a, b}]
	return ok
}

// Prune drops entries not refreshed within grace steps of step and
// returns how many were removed.
func (c *Cache) Prune(step uint64, grace int) int {
	removed := 0
	for k, e := range c.entries {
		if step-e.lastSeen > uint64(grace) {
			delete(c.entries, k)
			removed++
		}
	}
	for k, last := range c.pairs {
		if step-last > uint64(grace) {
			delete(c.pairs, k)
		}
	}
	return removed
}

// RemoveBody drops every entry involving id.
func (c *Cache) RemoveBody(id body.ID) {
	for k := range c.entries {
		if k.A == id || k.B == id {
			delete(c.entries, k)
		}
	}
	for k := range c.pairs {
		if k[0] == id || k[1] == id {
			delete(c.pairs, k)
		}
	}
}
