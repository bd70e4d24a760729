// Package cache remembers the last price seen for each product title so
// unchanged products can be skipped within a run.
//
// Titles are not unique identifiers: two products sharing a title share an entry.
package cache

import "sync"

// PriceCache maps product titles to the last observed price.
type PriceCache struct {
	mu     sync.Mutex
	prices map[string]float64
}

// New returns an empty cache.
func New() *PriceCache {
	return &PriceCache{prices: make(map[string]float64)}
}

// Lookup returns the last price recorded for title.
func (c *PriceCache) Lookup(title string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	price, ok := c.prices[title]
	return price, ok
}

// Update records price as the latest price for title.
func (c *PriceCache) Update(title string, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[title] = price
}

// Observe decides whether a sighting of title at price needs processing.
// It returns false when the title is known at the same price. Otherwise the
// new price is stored and true is returned. The check and the store happen
// under one lock.
func (c *PriceCache) Observe(title string, price float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.prices[title]; ok && last == price {
		return false
	}
	c.prices[title] = price
	return true
}

// Len reports how many titles are cached.
func (c *PriceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prices)
}
