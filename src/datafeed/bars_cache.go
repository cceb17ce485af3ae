package datafeed

import (
	"sync"

	"dex-datafeed/src/models"
)

// BarsCache maps a ticker to the last bar emitted for it.
type BarsCache struct {
	mu   sync.RWMutex
	bars map[string]models.MBar
}

func NewBarsCache() *BarsCache {
	return &BarsCache{bars: make(map[string]models.MBar)}
}

// -----------------------------------------------------------------------------

// Get returns a copy of the cached bar.
func (c *BarsCache) Get(ticker string) (*models.MBar, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bar, ok := c.bars[ticker]
	if !ok {
		return nil, false
	}
	return &bar, true
}

// -----------------------------------------------------------------------------

func (c *BarsCache) Put(ticker string, bar models.MBar) {
	c.mu.Lock()
	c.bars[ticker] = bar
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (c *BarsCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.bars)
}
