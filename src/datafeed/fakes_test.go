package datafeed

import (
	"context"
	"io"
	"sync"

	"dex-datafeed/src/logger"
	"dex-datafeed/src/models"
)

func quietLogger() *logger.Logger {
	return logger.NewLoggerWithWriter(&models.MConfig{LogLevel: "ERROR"}, "test", io.Discard)
}

// -----------------------------------------------------------------------------

type fakeQuoteSource struct {
	mu sync.Mutex

	trade      *models.MTokenTrade
	tradeErr   error
	quote      *models.MReferenceQuote
	quoteErr   error
	aggregates []models.MRawAggregate
	aggErr     error

	tradeCalls int
	quoteCalls int
	lastQuery  models.MAggregateQuery
}

func (f *fakeQuoteSource) Name() string { return "fake-quotes" }

func (f *fakeQuoteSource) LatestTrade(ctx context.Context, exchange, baseAsset string) (*models.MTokenTrade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tradeCalls++
	return f.trade, f.tradeErr
}

func (f *fakeQuoteSource) LatestReferenceQuote(ctx context.Context) (*models.MReferenceQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quoteCalls++
	return f.quote, f.quoteErr
}

func (f *fakeQuoteSource) Aggregates(ctx context.Context, query models.MAggregateQuery) ([]models.MRawAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = query
	return f.aggregates, f.aggErr
}

func (f *fakeQuoteSource) TradeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tradeCalls
}

// -----------------------------------------------------------------------------

type fakeStreamSource struct {
	mu    sync.Mutex
	swap  *models.MSwap
	err   error
	calls int
}

func (f *fakeStreamSource) Name() string { return "fake-stream" }

func (f *fakeStreamSource) LatestSwap(ctx context.Context, token string) (*models.MSwap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.swap == nil {
		return nil, f.err
	}
	s := *f.swap
	return &s, f.err
}

func (f *fakeStreamSource) Set(swap *models.MSwap, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swap = swap
	f.err = err
}

func (f *fakeStreamSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// -----------------------------------------------------------------------------

type recordingSink struct {
	mu     sync.Mutex
	writes map[string][]models.MBar
	closed bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{writes: make(map[string][]models.MBar)}
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) WriteBars(ctx context.Context, ticker, resolution string, bars []models.MBar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ticker + "/" + resolution
	s.writes[key] = append(s.writes[key], bars...)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) Bars(key string) []models.MBar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MBar(nil), s.writes[key]...)
}

// swapAt builds a swap whose fiat price is price: net0=1, net1=1, amountUSD=price.
func swapAt(ts int64, price string) *models.MSwap {
	return &models.MSwap{
		Timestamp:  ts,
		Amount0In:  "1",
		Amount0Out: "0",
		Amount1In:  "0",
		Amount1Out: "1",
		AmountUSD:  price,
	}
}
