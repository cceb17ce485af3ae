package interfaces

import (
	"context"

	"dex-datafeed/src/models"
)

// -----------------------------------------------------------------------------
// IBarSink receives finished history pages and live bar updates.
// -----------------------------------------------------------------------------

type IBarSink interface {

	// Name identifies the sink in logs
	Name() string

	// -----------------------------------------------------------------------------

	// WriteBars stores or forwards bars for one ticker/resolution pair.
	WriteBars(ctx context.Context, ticker, resolution string, bars []models.MBar) error

	// -----------------------------------------------------------------------------

	// Close releases the underlying connection
	Close() error
}

// -----------------------------------------------------------------------------
// IBarArchive is a queryable IBarSink backed by a database.
// -----------------------------------------------------------------------------

type IBarArchive interface {
	IBarSink

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// GetBars returns archived bars with fromMs <= time <= toMs in ascending order.
	GetBars(ctx context.Context, ticker, resolution string, fromMs, toMs int64) ([]models.MBar, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes data older than the retention policy.
	CleanupOldData() error
}
