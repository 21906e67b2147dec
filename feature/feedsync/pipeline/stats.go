package pipeline

import (
	"sync"

	"feed-sync/core/notifier"
)

// statsCollector accumulates run counters from concurrent group workers.
type statsCollector struct {
	mu    sync.Mutex
	stats notifier.Stats
}

func (c *statsCollector) created(variants int) {
	c.mu.Lock()
	c.stats.Created++
	c.stats.VariantsCreated += variants
	c.stats.Processed++
	c.mu.Unlock()
}

func (c *statsCollector) updated(variantsUpdated, variantsCreated int) {
	c.mu.Lock()
	c.stats.Updated++
	c.stats.VariantsUpdated += variantsUpdated
	c.stats.VariantsCreated += variantsCreated
	c.stats.Processed++
	c.mu.Unlock()
}

func (c *statsCollector) skipped() {
	c.mu.Lock()
	c.stats.Skipped++
	c.stats.Processed++
	c.mu.Unlock()
}

func (c *statsCollector) errored() {
	c.mu.Lock()
	c.stats.Errored++
	c.stats.Processed++
	c.mu.Unlock()
}

func (c *statsCollector) deleted() {
	c.mu.Lock()
	c.stats.Deleted++
	c.mu.Unlock()
}

func (c *statsCollector) snapshot() notifier.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
