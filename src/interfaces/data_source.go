package interfaces

import (
	"context"

	"dex-datafeed/src/models"
)

// -----------------------------------------------------------------------------
// IQuoteSource is the historical trade-aggregate provider.
// -----------------------------------------------------------------------------

type IQuoteSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// LatestTrade returns the most recent trade of baseAsset on exchange.
	// A nil trade with a nil error means no trade matched.
	LatestTrade(ctx context.Context, exchange, baseAsset string) (*models.MTokenTrade, error)

	// -----------------------------------------------------------------------------

	// LatestReferenceQuote returns the latest reference-asset price in the fiat asset.
	// A nil quote with a nil error means no trade matched.
	LatestReferenceQuote(ctx context.Context) (*models.MReferenceQuote, error)

	// -----------------------------------------------------------------------------

	// Aggregates returns time-bucketed OHLCV rows in ascending bucket order.
	Aggregates(ctx context.Context, query models.MAggregateQuery) ([]models.MRawAggregate, error)
}

// -----------------------------------------------------------------------------
// IStreamSource is the most-recent-swap provider used for live polling.
// -----------------------------------------------------------------------------

type IStreamSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// LatestSwap returns the most recent swap of token against the reference asset.
	// A nil swap with a nil error means the pool has no swaps.
	LatestSwap(ctx context.Context, token string) (*models.MSwap, error)
}
