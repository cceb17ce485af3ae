package datafeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dex-datafeed/src/helpers"
	"dex-datafeed/src/interfaces"
	"dex-datafeed/src/metrics"
	"dex-datafeed/src/models"
)

// PriceReferenceCache holds the latest reference-asset to fiat rate.
// The slot is only replaced on a successful refresh.
type PriceReferenceCache struct {
	source interfaces.IQuoteSource
	now    func() time.Time

	mu  sync.RWMutex
	ref *models.MPriceReference
}

// -----------------------------------------------------------------------------

func NewPriceReferenceCache(source interfaces.IQuoteSource) *PriceReferenceCache {
	return &PriceReferenceCache{source: source, now: time.Now}
}

// -----------------------------------------------------------------------------

// Refresh fetches the latest reference quote. On failure the previous rate is kept.
func (c *PriceReferenceCache) Refresh(ctx context.Context) error {
	start := time.Now()
	quote, err := c.source.LatestReferenceQuote(ctx)
	metrics.UpstreamDuration.WithLabelValues("reference_quote").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues("reference_quote").Inc()
		return helpers.NewReferenceUnavailableError(err)
	}
	if quote == nil {
		return helpers.NewReferenceUnavailableError(fmt.Errorf("no reference trade found"))
	}
	if quote.QuotePrice <= 0 {
		return helpers.NewReferenceUnavailableError(fmt.Errorf("invalid reference price %v", quote.QuotePrice))
	}

	ref := models.MPriceReference{
		Symbol:     quote.BaseSymbol + "/" + quote.QuoteSymbol,
		Rate:       quote.QuotePrice,
		ObservedAt: c.now(),
	}

	c.mu.Lock()
	c.ref = &ref
	c.mu.Unlock()

	metrics.ReferenceRate.Set(ref.Rate)
	return nil
}

// -----------------------------------------------------------------------------

// Convert multiplies amount by the cached rate. ok is false when no rate is cached.
func (c *PriceReferenceCache) Convert(amount float64) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ref == nil {
		return 0, false
	}
	return amount * c.ref.Rate, true
}

// -----------------------------------------------------------------------------

func (c *PriceReferenceCache) Reference() (models.MPriceReference, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ref == nil {
		return models.MPriceReference{}, false
	}
	return *c.ref, true
}

// -----------------------------------------------------------------------------

// Set installs a rate directly.
func (c *PriceReferenceCache) Set(ref models.MPriceReference) {
	c.mu.Lock()
	c.ref = &ref
	c.mu.Unlock()
}
