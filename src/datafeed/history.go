package datafeed

import (
	"time"

	"dex-datafeed/src/logger"
	"dex-datafeed/src/metrics"
	"dex-datafeed/src/models"
)

// HistoricalBarBuilder converts quote-source aggregates into fiat bars.
type HistoricalBarBuilder struct {
	reference *PriceReferenceCache
	logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewHistoricalBarBuilder(reference *PriceReferenceCache, log *logger.Logger) *HistoricalBarBuilder {
	if log == nil {
		log = logger.NewLogger(nil, "HistoricalBarBuilder")
	}
	return &HistoricalBarBuilder{reference: reference, logger: log}
}

// -----------------------------------------------------------------------------

// Build keeps bars with from*1000 < time <= to*1000, preserving input order.
// Records with an unparsable bucket time are dropped. Without a cached
// reference rate the page is empty.
func (b *HistoricalBarBuilder) Build(raw []models.MRawAggregate, from, to int64) []models.MBar {
	if _, ok := b.reference.Reference(); !ok {
		return []models.MBar{}
	}

	lower := from * 1000
	upper := to * 1000

	bars := make([]models.MBar, 0, len(raw))
	for i, r := range raw {
		ts, err := time.Parse(time.RFC3339, r.Minute)
		if err != nil {
			metrics.BarsTotal.WithLabelValues("history_skipped").Inc()
			b.logger.Warning("Dropping aggregate %d: invalid bucket time %q", i, r.Minute)
			continue
		}
		ms := ts.UnixMilli()
		if ms <= lower || ms > upper {
			continue
		}

		open, _ := b.reference.Convert(float64(r.Open))
		high, _ := b.reference.Convert(r.High)
		low, _ := b.reference.Convert(r.Low)
		closePrice, _ := b.reference.Convert(float64(r.Close))

		bars = append(bars, models.MBar{
			Time:   ms,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: r.Volume,
		})
	}

	return bars
}
