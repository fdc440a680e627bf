// Package plancache bounds the set of per-issue execution plans kept in
// memory for long-running sessions that touch many issues.
package plancache

import (
	"sync"

	"github.com/hochfrequenz/claude-exec-monitor/internal/domain"
)

// DefaultCapacity is the number of plans retained before eviction kicks in
const DefaultCapacity = 30

// Cache is a bounded plan store keyed by issue number. Writes move an entry
// to most-recently-written; eviction removes the least-recently-written
// entries once the bound is exceeded.
type Cache struct {
	capacity int

	mu    sync.Mutex
	plans map[int]*domain.ExecutionPlan
	order []int // issue numbers, least recently written first
}

// New creates a cache with the given capacity; values <= 0 use the default
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		plans:    make(map[int]*domain.ExecutionPlan),
	}
}

// Put stores a plan, overwriting any existing entry for the same issue and
// marking it most recently written. The entry just written is never evicted
// by its own write.
func (c *Cache) Put(plan *domain.ExecutionPlan) {
	if plan == nil {
		return
	}
	issue := plan.Issue.Number

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.plans[issue]; exists {
		c.removeFromOrder(issue)
	}
	c.plans[issue] = plan
	c.order = append(c.order, issue)

	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.plans, oldest)
	}
}

// Get returns a copy of the cached plan for an issue, or nil. Readers get
// their own plan so cached state cannot be mutated from outside.
func (c *Cache) Get(issue int) *domain.ExecutionPlan {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plans[issue].Clone()
}

// Len returns the number of cached plans
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.plans)
}

// Clear drops every cached plan
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans = make(map[int]*domain.ExecutionPlan)
	c.order = nil
}

func (c *Cache) removeFromOrder(issue int) {
	for i, n := range c.order {
		if n == issue {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
